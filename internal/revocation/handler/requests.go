package handler

import (
	"strings"
	"unicode/utf8"

	"docvault/internal/revocation"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

// RevokeRequest is the body of POST /documents/{documentID}/revoke.
type RevokeRequest struct {
	Reason        string `json:"reason"`
	ReasonDetails string `json:"reason_details"`
	SubjectType   string `json:"subject_type"`
	SubjectID     string `json:"subject_id"`

	reason  revocation.Reason
	subject id.Subject
}

func (r *RevokeRequest) Normalize() {
	r.Reason = strings.ToLower(strings.TrimSpace(r.Reason))
	r.ReasonDetails = strings.TrimSpace(r.ReasonDetails)
	r.SubjectType = strings.ToLower(strings.TrimSpace(r.SubjectType))
	r.SubjectID = strings.TrimSpace(r.SubjectID)
}

func (r *RevokeRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	reason, err := revocation.ParseReason(r.Reason)
	if err != nil {
		return err
	}
	if reason == revocation.ReasonOther && r.ReasonDetails == "" {
		return dErrors.New(dErrors.CodeValidation, "reason_details is required when reason is other")
	}
	if utf8.RuneCountInString(r.ReasonDetails) > revocation.MaxDetailsLength {
		return dErrors.New(dErrors.CodeValidation, "reason_details must be at most 1000 characters")
	}
	subject, err := parseSubject(r.SubjectType, r.SubjectID)
	if err != nil {
		return err
	}
	r.reason = reason
	r.subject = subject
	return nil
}

func parseSubject(kind, raw string) (id.Subject, error) {
	if kind == "" && raw == "" {
		return id.Subject{}, nil
	}
	switch id.SubjectKind(kind) {
	case id.SubjectApplicant:
		applicantID, err := id.ParseApplicantID(raw)
		if err != nil {
			return id.Subject{}, err
		}
		return id.ApplicantSubject(applicantID), nil
	case id.SubjectEmployee:
		employeeID, err := id.ParseEmployeeID(raw)
		if err != nil {
			return id.Subject{}, err
		}
		return id.EmployeeSubject(employeeID), nil
	}
	return id.Subject{}, dErrors.New(dErrors.CodeValidation, "subject_type must be applicant or employee")
}

// ReinstateRequest is the body of POST /revocations/{revocationID}/reinstate.
type ReinstateRequest struct {
	Reason string `json:"reason"`
}

func (r *ReinstateRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *ReinstateRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if utf8.RuneCountInString(r.Reason) > revocation.MaxReinstateReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason must be at most 1000 characters")
	}
	return nil
}
