// Package revocation models the revocation ledger: a document moves from
// active to revoked and, by a super-admin, to reinstated. Each cycle leaves
// one record behind; records are never deleted.
package revocation

import (
	"strings"
	"time"
	"unicode/utf8"

	"docvault/internal/document"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

// Reason is the closed set of revocation reasons.
type Reason string

const (
	ReasonDuplicateOffer    Reason = "duplicate_offer"
	ReasonCandidateRejected Reason = "candidate_rejected"
	ReasonPositionCancelled Reason = "position_cancelled"
	ReasonBusinessDecision  Reason = "business_decision"
	ReasonProcessError      Reason = "process_error"
	ReasonComplianceIssue   Reason = "compliance_issue"
	ReasonOther             Reason = "other"
)

var recipientMessages = map[Reason]string{
	ReasonDuplicateOffer:    "Duplicate offer communication",
	ReasonCandidateRejected: "Position has been filled",
	ReasonPositionCancelled: "Position has been cancelled",
	ReasonBusinessDecision:  "Business restructuring",
	ReasonProcessError:      "Process error correction",
	ReasonComplianceIssue:   "Compliance requirement",
	ReasonOther:             "Organizational update",
}

func (r Reason) IsValid() bool {
	_, ok := recipientMessages[r]
	return ok
}

func (r Reason) String() string { return string(r) }

// RecipientMessage is the wording shown to the person the document was
// addressed to. It never exposes internal details.
func (r Reason) RecipientMessage() string {
	if msg, ok := recipientMessages[r]; ok {
		return msg
	}
	return recipientMessages[ReasonOther]
}

func ParseReason(s string) (Reason, error) {
	r := Reason(strings.TrimSpace(s))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "reason must be one of duplicate_offer, candidate_rejected, position_cancelled, business_decision, process_error, compliance_issue, other")
	}
	return r, nil
}

type Status string

const (
	StatusRevoked    Status = "revoked"
	StatusReinstated Status = "reinstated"
)

const (
	MaxDetailsLength         = 1000
	MaxReinstateReasonLength = 1000
)

// DocumentSnapshot is the document as it was just before revocation.
// Reinstatement restores Status from here.
type DocumentSnapshot struct {
	Type        string
	Status      document.Status
	TemplateID  string
	GeneratedAt *time.Time
	FilePath    string
}

// SnapshotOf copies the fields reinstatement and compliance review need.
func SnapshotOf(doc *document.Document) DocumentSnapshot {
	return DocumentSnapshot{
		Type:        doc.Type,
		Status:      doc.Status,
		TemplateID:  doc.TemplateID,
		GeneratedAt: doc.GeneratedAt,
		FilePath:    doc.FilePath,
	}
}

// Record is one revocation cycle of one document.
type Record struct {
	ID            id.RevocationID
	TenantID      id.TenantID
	DocumentID    id.DocumentID
	Subject       id.Subject
	RevokedBy     id.ActorID
	RevokedByRole id.Role
	RevokedAt     time.Time
	Reason        Reason
	ReasonDetails string
	Status        Status
	IsActive      bool
	Snapshot      DocumentSnapshot

	ReinstatedBy     id.ActorID
	ReinstatedByRole id.Role
	ReinstatedAt     *time.Time
	ReinstatedReason string
}

// IsEffective reports whether this record currently revokes its document.
func (r *Record) IsEffective() bool {
	return r.Status == StatusRevoked && r.IsActive
}

// CanReinstate returns an invalid-state error unless the record is revoked.
func (r *Record) CanReinstate() error {
	if !r.IsEffective() {
		return dErrors.New(dErrors.CodeInvalidState, "only revoked documents can be reinstated")
	}
	return nil
}

// ApplyReinstatement closes the record. Callers check CanReinstate first.
func (r *Record) ApplyReinstatement(actor id.Actor, reason string, at time.Time) {
	r.Status = StatusReinstated
	r.ReinstatedBy = actor.ID
	r.ReinstatedByRole = actor.Role
	r.ReinstatedAt = &at
	r.ReinstatedReason = reason
}

// RestoreStatus is the document status reinstatement writes back.
func (r *Record) RestoreStatus() document.Status {
	if r.Snapshot.Status == "" || r.Snapshot.Status == document.StatusRevoked {
		return document.StatusGenerated
	}
	return r.Snapshot.Status
}

func (r *Record) Clone() *Record {
	c := *r
	if r.ReinstatedAt != nil {
		t := *r.ReinstatedAt
		c.ReinstatedAt = &t
	}
	if r.Snapshot.GeneratedAt != nil {
		t := *r.Snapshot.GeneratedAt
		c.Snapshot.GeneratedAt = &t
	}
	return &c
}

// Marker is the part of an effective revocation the access gate needs.
type Marker struct {
	RevocationID id.RevocationID
	Reason       Reason
	RevokedAt    time.Time
}

func (r *Record) Marker() Marker {
	return Marker{RevocationID: r.ID, Reason: r.Reason, RevokedAt: r.RevokedAt}
}

type RevokeRequest struct {
	TenantID      id.TenantID
	DocumentID    id.DocumentID
	Subject       id.Subject
	Actor         id.Actor
	Reason        Reason
	ReasonDetails string
}

func (r RevokeRequest) Validate() error {
	if r.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tenant_id is required")
	}
	if r.DocumentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "document_id is required")
	}
	if r.Actor.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "revoking actor is required")
	}
	if !r.Reason.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "invalid revocation reason")
	}
	if utf8.RuneCountInString(r.ReasonDetails) > MaxDetailsLength {
		return dErrors.New(dErrors.CodeValidation, "reason_details must be at most 1000 characters")
	}
	return nil
}

type ReinstateRequest struct {
	TenantID     id.TenantID
	RevocationID id.RevocationID
	Actor        id.Actor
	Reason       string
}

func (r ReinstateRequest) Validate() error {
	if r.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tenant_id is required")
	}
	if r.RevocationID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "revocation_id is required")
	}
	if utf8.RuneCountInString(r.Reason) > MaxReinstateReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 1000 characters")
	}
	return nil
}

// StatusView is the read-only composition of a document and its ledger.
type StatusView struct {
	DocumentID      id.DocumentID
	DocumentStatus  document.Status
	EffectiveStatus document.Status
	IsRevoked       bool
	RevocationID    *id.RevocationID
	Reason          Reason
	ReasonDetails   string
	RevokedAt       *time.Time
	RevokedBy       id.ActorID
	CanReinstate    bool
}
