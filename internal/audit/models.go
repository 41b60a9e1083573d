// Package audit defines the append-only document audit trail: what happened
// to which document, who did it, and when.
package audit

import (
	"time"
	"unicode/utf8"

	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

// Action is the closed set of things that can happen to a document.
type Action string

const (
	ActionCreated         Action = "created"
	ActionAssigned        Action = "assigned"
	ActionViewed          Action = "viewed"
	ActionDownloaded      Action = "downloaded"
	ActionStatusChanged   Action = "status_changed"
	ActionRevoked         Action = "revoked"
	ActionReinstated      Action = "reinstated"
	ActionExpired         Action = "expired"
	ActionEmailSent       Action = "email_sent"
	ActionAccessDenied    Action = "access_denied"
	ActionMetadataChanged Action = "metadata_changed"
)

var actions = map[Action]struct{}{
	ActionCreated: {}, ActionAssigned: {}, ActionViewed: {}, ActionDownloaded: {},
	ActionStatusChanged: {}, ActionRevoked: {}, ActionReinstated: {}, ActionExpired: {},
	ActionEmailSent: {}, ActionAccessDenied: {}, ActionMetadataChanged: {},
}

func (a Action) IsValid() bool {
	_, ok := actions[a]
	return ok
}

func (a Action) String() string { return string(a) }

// ParseAction rejects anything outside the closed set.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown audit action: "+s)
	}
	return a, nil
}

const (
	MaxReasonLength   = 500
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// Metadata is the typed extension record attached to an event. Extra carries
// producer-specific keys that have no dedicated field yet.
type Metadata struct {
	GrantID      id.GrantID
	RevocationID id.RevocationID
	AccessLevel  string
	Browser      string
	OS           string
	Extra        map[string]string
}

// IsZero reports whether no metadata is set.
func (m Metadata) IsZero() bool {
	return m.GrantID.IsNil() && m.RevocationID.IsNil() && m.AccessLevel == "" &&
		m.Browser == "" && m.OS == "" && len(m.Extra) == 0
}

func (m Metadata) clone() Metadata {
	if m.Extra != nil {
		extra := make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			extra[k] = v
		}
		m.Extra = extra
	}
	return m
}

// Event is one immutable audit record. ID and Timestamp are assigned by the
// ledger when the event is recorded; values set by callers are overwritten.
type Event struct {
	ID              id.EventID
	TenantID        id.TenantID
	DocumentID      id.DocumentID
	Subject         id.Subject
	Action          Action
	PerformedBy     id.ActorID
	PerformedByRole id.Role
	IPAddress       string
	UserAgent       string
	// OldStatus and NewStatus are only set on status_changed.
	OldStatus string
	NewStatus string
	Reason    string
	Metadata  Metadata
	RequestID string
	Timestamp time.Time
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (e Event) Clone() Event {
	e.Metadata = e.Metadata.clone()
	return e
}

// Validate checks required fields only. Content correctness is the caller's job.
func (e *Event) Validate() error {
	switch {
	case e.TenantID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "audit event requires tenant")
	case e.DocumentID.IsNil():
		return dErrors.New(dErrors.CodeValidation, "audit event requires document")
	case !e.Action.IsValid():
		return dErrors.New(dErrors.CodeValidation, "audit event requires a known action")
	case e.PerformedBy == "":
		return dErrors.New(dErrors.CodeValidation, "audit event requires performer")
	}
	return nil
}

// TruncateReason cuts s to MaxReasonLength runes.
func TruncateReason(s string) string {
	if utf8.RuneCountInString(s) <= MaxReasonLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxReasonLength])
}

// Query selects events within one tenant. Zero-valued fields do not filter.
type Query struct {
	DocumentID  id.DocumentID
	Actions     []Action
	PerformedBy id.ActorID
	Since       time.Time
	Until       time.Time
	Limit       int
	// Ascending flips the default newest-first order.
	Ascending bool
}

// Normalize clamps Limit into [1, MaxQueryLimit], defaulting to DefaultQueryLimit.
func (q Query) Normalize() Query {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultQueryLimit
	case q.Limit > MaxQueryLimit:
		q.Limit = MaxQueryLimit
	}
	return q
}

// Matches applies every filter except Limit and ordering.
func (q Query) Matches(e *Event) bool {
	if !q.DocumentID.IsNil() && e.DocumentID != q.DocumentID {
		return false
	}
	if q.PerformedBy != "" && e.PerformedBy != q.PerformedBy {
		return false
	}
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && e.Timestamp.After(q.Until) {
		return false
	}
	if len(q.Actions) == 0 {
		return true
	}
	for _, a := range q.Actions {
		if e.Action == a {
			return true
		}
	}
	return false
}
