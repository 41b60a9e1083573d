package handler

import (
	"strings"
	"time"
	"unicode/utf8"

	"docvault/internal/grant"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

// IssueGrantRequest is the body of POST /documents/{documentID}/grants.
type IssueGrantRequest struct {
	RecipientType string     `json:"recipient_type"`
	RecipientID   string     `json:"recipient_id"`
	AccessLevel   string     `json:"access_level"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Notes         string     `json:"notes"`

	recipient id.Recipient
	level     grant.AccessLevel
}

func (r *IssueGrantRequest) Normalize() {
	r.RecipientType = strings.ToLower(strings.TrimSpace(r.RecipientType))
	r.RecipientID = strings.TrimSpace(r.RecipientID)
	r.AccessLevel = strings.ToLower(strings.TrimSpace(r.AccessLevel))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *IssueGrantRequest) Validate() error {
	if r.RecipientType == "" && r.RecipientID == "" {
		return dErrors.New(dErrors.CodeValidation, "at least one recipient must be specified (user, applicant or employee)")
	}
	recipient, err := id.ParseRecipient(r.RecipientType, r.RecipientID)
	if err != nil {
		return err
	}
	level, err := grant.ParseAccessLevel(r.AccessLevel)
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(r.Notes) > grant.MaxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes must be at most 1000 characters")
	}
	r.recipient = recipient
	r.level = level
	return nil
}

// DeactivateGrantRequest is the body of POST /grants/{grantID}/deactivate.
type DeactivateGrantRequest struct {
	Reason string `json:"reason"`
}

func (r *DeactivateGrantRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *DeactivateGrantRequest) Validate() error {
	if utf8.RuneCountInString(r.Reason) > 500 {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 500 characters")
	}
	return nil
}
