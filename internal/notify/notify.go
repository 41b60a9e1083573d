// Package notify triggers out-of-band notifications (recipient emails, HR
// alerts) after document lifecycle changes. Delivery belongs to downstream
// consumers; a Notifier only hands the notice off and never fails the caller.
package notify

import (
	"context"
	"log/slog"
	"time"

	id "docvault/pkg/domain"
	"docvault/pkg/requestcontext"
)

type Kind string

const (
	KindGrantIssued        Kind = "grant_issued"
	KindDocumentRevoked    Kind = "document_revoked"
	KindDocumentReinstated Kind = "document_reinstated"
)

// Notice describes one lifecycle change worth telling someone about.
type Notice struct {
	Kind       Kind
	TenantID   id.TenantID
	DocumentID id.DocumentID
	// Recipient is set for grant notices.
	Recipient id.Recipient
	GrantID   id.GrantID
	// Subject is the applicant or employee the document is about, when known.
	Subject      id.Subject
	RevocationID id.RevocationID
	Reason       string
	// Message is the recipient-facing wording.
	Message    string
	Actor      id.ActorID
	RequestID  string
	OccurredAt time.Time
}

// Notifier is fire-and-forget: implementations must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Nop discards notices.
type Nop struct{}

func (Nop) Notify(context.Context, Notice) {}

// Log writes notices to the structured log instead of a broker.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, n Notice) {
	l.logger.InfoContext(ctx, "notification triggered",
		"kind", string(n.Kind),
		"tenant_id", n.TenantID.String(),
		"document_id", n.DocumentID.String(),
		"recipient", n.Recipient.String(),
		"reason", n.Reason,
		"request_id", requestcontext.RequestID(ctx),
	)
}
