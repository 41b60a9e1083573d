package handler

import (
	"time"

	"docvault/internal/revocation"
)

type SnapshotResponse struct {
	Type        string     `json:"type,omitempty"`
	Status      string     `json:"status"`
	TemplateID  string     `json:"template_id,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	FilePath    string     `json:"file_path,omitempty"`
}

type RevocationResponse struct {
	ID               string           `json:"id"`
	DocumentID       string           `json:"document_id"`
	SubjectType      string           `json:"subject_type,omitempty"`
	SubjectID        string           `json:"subject_id,omitempty"`
	Status           string           `json:"status"`
	IsActive         bool             `json:"is_active"`
	Reason           string           `json:"reason"`
	ReasonDetails    string           `json:"reason_details,omitempty"`
	RecipientMessage string           `json:"recipient_message"`
	RevokedBy        string           `json:"revoked_by"`
	RevokedByRole    string           `json:"revoked_by_role"`
	RevokedAt        time.Time        `json:"revoked_at"`
	ReinstatedBy     string           `json:"reinstated_by,omitempty"`
	ReinstatedByRole string           `json:"reinstated_by_role,omitempty"`
	ReinstatedAt     *time.Time       `json:"reinstated_at,omitempty"`
	ReinstatedReason string           `json:"reinstated_reason,omitempty"`
	Snapshot         SnapshotResponse `json:"document_snapshot"`
}

func toRevocationResponse(rec *revocation.Record) RevocationResponse {
	resp := RevocationResponse{
		ID:               rec.ID.String(),
		DocumentID:       rec.DocumentID.String(),
		Status:           string(rec.Status),
		IsActive:         rec.IsActive,
		Reason:           rec.Reason.String(),
		ReasonDetails:    rec.ReasonDetails,
		RecipientMessage: rec.Reason.RecipientMessage(),
		RevokedBy:        string(rec.RevokedBy),
		RevokedByRole:    string(rec.RevokedByRole),
		RevokedAt:        rec.RevokedAt,
		ReinstatedBy:     string(rec.ReinstatedBy),
		ReinstatedByRole: string(rec.ReinstatedByRole),
		ReinstatedAt:     rec.ReinstatedAt,
		ReinstatedReason: rec.ReinstatedReason,
		Snapshot: SnapshotResponse{
			Type:        rec.Snapshot.Type,
			Status:      string(rec.Snapshot.Status),
			TemplateID:  rec.Snapshot.TemplateID,
			GeneratedAt: rec.Snapshot.GeneratedAt,
			FilePath:    rec.Snapshot.FilePath,
		},
	}
	if !rec.Subject.IsZero() {
		resp.SubjectType = string(rec.Subject.Kind)
		resp.SubjectID = rec.Subject.ID.String()
	}
	return resp
}

type HistoryResponse struct {
	DocumentID  string               `json:"document_id"`
	Revocations []RevocationResponse `json:"revocations"`
}

type StatusResponse struct {
	DocumentID      string     `json:"document_id"`
	EffectiveStatus string     `json:"effective_status"`
	DocumentStatus  string     `json:"document_status"`
	IsRevoked       bool       `json:"is_revoked"`
	RevocationID    string     `json:"revocation_id,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	ReasonDetails   string     `json:"reason_details,omitempty"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	RevokedBy       string     `json:"revoked_by,omitempty"`
	CanReinstate    bool       `json:"can_reinstate"`
}

func toStatusResponse(v *revocation.StatusView) StatusResponse {
	resp := StatusResponse{
		DocumentID:      v.DocumentID.String(),
		EffectiveStatus: v.EffectiveStatus.String(),
		DocumentStatus:  v.DocumentStatus.String(),
		IsRevoked:       v.IsRevoked,
		Reason:          v.Reason.String(),
		ReasonDetails:   v.ReasonDetails,
		RevokedAt:       v.RevokedAt,
		RevokedBy:       string(v.RevokedBy),
		CanReinstate:    v.CanReinstate,
	}
	if v.RevocationID != nil {
		resp.RevocationID = v.RevocationID.String()
	}
	return resp
}
