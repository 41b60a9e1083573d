// Package document holds the slice of the HR document record that access
// control needs. Documents are produced elsewhere; this service reads them and
// writes back only their status.
package document

import (
	"time"

	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

// Status is the document's stored lifecycle status. It is free-form upstream;
// these are the values docvault itself reads or writes.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusGenerated  Status = "generated"
	StatusAssigned   Status = "assigned"
	StatusViewed     Status = "viewed"
	StatusDownloaded Status = "downloaded"
	StatusRevoked    Status = "revoked"
)

func (s Status) String() string { return string(s) }

// Document is the external document record.
type Document struct {
	TenantID    id.TenantID
	ID          id.DocumentID
	Type        string
	Status      Status
	TemplateID  string
	FilePath    string
	GeneratedAt *time.Time
	ExpiresAt   *time.Time
	UpdatedAt   time.Time
}

// IsExpired reports whether the document's own expiry has passed.
func (d *Document) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && now.After(*d.ExpiresAt)
}

// Action is what a caller wants to do with a document's content.
type Action string

const (
	ActionView     Action = "view"
	ActionDownload Action = "download"
)

// ParseAction accepts view or download; empty defaults to view.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case "", ActionView:
		return ActionView, nil
	case ActionDownload:
		return ActionDownload, nil
	}
	return "", dErrors.New(dErrors.CodeValidation, "action must be view or download")
}
