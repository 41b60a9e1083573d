// Package grant models share tokens: bearer credentials that let one
// recipient view or download one document until they expire or are
// deactivated.
package grant

import (
	"time"
	"unicode/utf8"

	"docvault/internal/document"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

type AccessLevel string

const (
	LevelView     AccessLevel = "view"
	LevelDownload AccessLevel = "download"
	LevelShare    AccessLevel = "share"
	LevelNone     AccessLevel = "none"
)

// ParseAccessLevel defaults an empty level to view.
func ParseAccessLevel(s string) (AccessLevel, error) {
	switch l := AccessLevel(s); l {
	case "":
		return LevelView, nil
	case LevelView, LevelDownload, LevelShare, LevelNone:
		return l, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "access level must be one of view, download, share, none")
}

// Permits reports whether the level covers action. Each level includes the
// ones below it; none permits nothing.
func (l AccessLevel) Permits(action document.Action) bool {
	switch l {
	case LevelView:
		return action == document.ActionView
	case LevelDownload, LevelShare:
		return action == document.ActionView || action == document.ActionDownload
	}
	return false
}

// InvalidReason says why a token did not validate. Empty means valid.
type InvalidReason string

const (
	ReasonNotFound InvalidReason = "not_found"
	ReasonInactive InvalidReason = "inactive"
	ReasonExpired  InvalidReason = "expired"
)

const (
	MaxNotesLength = 1000

	DeactivatedByRevocation = "Document revoked"
	DeactivatedByExpiry     = "expired"
)

// Grant is one share token. Token and GrantedAt never change; IsActive only
// ever goes from true to false.
type Grant struct {
	ID             id.GrantID
	TenantID       id.TenantID
	DocumentID     id.DocumentID
	Recipient      id.Recipient
	Token          string
	AccessLevel    AccessLevel
	IsActive       bool
	ExpiresAt      *time.Time
	RevokedAt      *time.Time
	RevokedReason  string
	GrantedBy      id.ActorID
	GrantedAt      time.Time
	Notes          string
	AccessCount    int64
	LastAccessedAt *time.Time
}

// Check applies the validity rule without touching the grant. Expiry is
// derived from ExpiresAt; a grant exactly at its expiry instant is still valid.
func (g *Grant) Check(now time.Time) InvalidReason {
	if !g.IsActive {
		return ReasonInactive
	}
	if g.ExpiresAt != nil && now.After(*g.ExpiresAt) {
		return ReasonExpired
	}
	return ""
}

// Deactivate marks the grant inactive. It reports false when the grant was
// already inactive and leaves it unchanged.
func (g *Grant) Deactivate(reason string, at time.Time) bool {
	if !g.IsActive {
		return false
	}
	g.IsActive = false
	g.RevokedAt = &at
	g.RevokedReason = reason
	return true
}

// IssueRequest asks for a new grant. Actor is the staff member sharing.
type IssueRequest struct {
	TenantID    id.TenantID
	DocumentID  id.DocumentID
	Recipient   id.Recipient
	AccessLevel AccessLevel
	ExpiresAt   *time.Time
	Notes       string
	Actor       id.Actor
}

func (r *IssueRequest) Validate(now time.Time) error {
	if r.TenantID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "tenant is required")
	}
	if r.DocumentID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "document is required")
	}
	if err := r.Recipient.Validate(); err != nil {
		return err
	}
	if r.Actor.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "granting actor is required")
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(now) {
		return dErrors.New(dErrors.CodeValidation, "expires_at must be in the future")
	}
	if utf8.RuneCountInString(r.Notes) > MaxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 1000 characters")
	}
	return nil
}

// ValidationResult is the outcome of presenting a token. Grant is set
// whenever the token matched a record, even when it is not valid.
type ValidationResult struct {
	Valid  bool
	Grant  *Grant
	Reason InvalidReason
}

type DeactivateRequest struct {
	TenantID id.TenantID
	GrantID  id.GrantID
	Reason   string
	Actor    id.Actor
}
