package handler

import (
	"time"

	"docvault/internal/grant"
)

type GrantResponse struct {
	ID             string     `json:"id"`
	DocumentID     string     `json:"document_id"`
	RecipientType  string     `json:"recipient_type"`
	RecipientID    string     `json:"recipient_id"`
	Token          string     `json:"token,omitempty"`
	AccessLevel    string     `json:"access_level"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedReason  string     `json:"revoked_reason,omitempty"`
	GrantedBy      string     `json:"granted_by"`
	GrantedAt      time.Time  `json:"granted_at"`
	Notes          string     `json:"notes,omitempty"`
	AccessCount    int64      `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// toGrantResponse omits the token unless withToken; only the issuer sees it.
func toGrantResponse(g *grant.Grant, withToken bool) GrantResponse {
	resp := GrantResponse{
		ID:             g.ID.String(),
		DocumentID:     g.DocumentID.String(),
		RecipientType:  string(g.Recipient.Kind),
		RecipientID:    g.Recipient.ID.String(),
		AccessLevel:    string(g.AccessLevel),
		IsActive:       g.IsActive,
		ExpiresAt:      g.ExpiresAt,
		RevokedAt:      g.RevokedAt,
		RevokedReason:  g.RevokedReason,
		GrantedBy:      string(g.GrantedBy),
		GrantedAt:      g.GrantedAt,
		Notes:          g.Notes,
		AccessCount:    g.AccessCount,
		LastAccessedAt: g.LastAccessedAt,
	}
	if withToken {
		resp.Token = g.Token
	}
	return resp
}

type GrantListResponse struct {
	Grants []GrantResponse `json:"grants"`
}

// ValidationResponse never carries recipient or tenant identifiers.
type ValidationResponse struct {
	Valid       bool       `json:"valid"`
	Reason      string     `json:"reason,omitempty"`
	DocumentID  string     `json:"document_id,omitempty"`
	AccessLevel string     `json:"access_level,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func toValidationResponse(res *grant.ValidationResult) ValidationResponse {
	if !res.Valid {
		return ValidationResponse{Reason: string(res.Reason)}
	}
	return ValidationResponse{
		Valid:       true,
		DocumentID:  res.Grant.DocumentID.String(),
		AccessLevel: string(res.Grant.AccessLevel),
		ExpiresAt:   res.Grant.ExpiresAt,
	}
}
