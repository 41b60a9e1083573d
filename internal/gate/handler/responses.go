package handler

import (
	"net/http"

	"docvault/internal/document"
	"docvault/internal/gate"
)

// AccessResponse is returned when the gate lets a read through.
type AccessResponse struct {
	Allowed      bool    `json:"allowed"`
	DocumentID   string  `json:"document_id"`
	DocumentType string  `json:"document_type,omitempty"`
	FilePath     string  `json:"file_path,omitempty"`
	Action       string  `json:"action"`
	GrantID      string  `json:"grant_id,omitempty"`
	AccessCount  *int64  `json:"access_count,omitempty"`
}

// DenialResponse keeps the error envelope shape and adds the revocation id
// when a revocation caused the refusal.
type DenialResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RevocationID     string `json:"revocation_id,omitempty"`
}

func toAccessResponse(d *gate.Decision, action document.Action) AccessResponse {
	resp := AccessResponse{
		Allowed:      true,
		DocumentID:   d.Document.ID.String(),
		DocumentType: d.Document.Type,
		FilePath:     d.Document.FilePath,
		Action:       string(action),
	}
	if d.Grant != nil {
		resp.GrantID = d.Grant.ID.String()
		count := d.Grant.AccessCount
		resp.AccessCount = &count
	}
	return resp
}

func toDenialResponse(d *gate.Decision) DenialResponse {
	resp := DenialResponse{
		Error:            string(d.DenialCode),
		ErrorDescription: d.DenialReason,
	}
	if d.RevocationID != nil {
		resp.RevocationID = d.RevocationID.String()
	}
	return resp
}

// denialStatus maps a refusal to its HTTP status.
func denialStatus(code gate.DenialCode) int {
	switch code {
	case gate.DenialNotFound:
		return http.StatusNotFound
	case gate.DenialExpired:
		return http.StatusGone
	case gate.DenialTokenInvalid:
		return http.StatusUnauthorized
	default:
		return http.StatusForbidden
	}
}
