package handler

import (
	"time"

	"docvault/internal/audit"
	id "docvault/pkg/domain"
)

type TrailResponse struct {
	DocumentID string          `json:"document_id"`
	Count      int             `json:"count"`
	Events     []EventResponse `json:"events"`
}

type EventResponse struct {
	ID              string            `json:"id"`
	Action          string            `json:"action"`
	PerformedBy     string            `json:"performed_by"`
	PerformedByRole string            `json:"performed_by_role,omitempty"`
	SubjectKind     string            `json:"subject_kind,omitempty"`
	SubjectID       string            `json:"subject_id,omitempty"`
	IPAddress       string            `json:"ip_address,omitempty"`
	UserAgent       string            `json:"user_agent,omitempty"`
	OldStatus       string            `json:"old_status,omitempty"`
	NewStatus       string            `json:"new_status,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	RequestID       string            `json:"request_id,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

func toTrailResponse(docID id.DocumentID, events []audit.Event) *TrailResponse {
	resp := &TrailResponse{
		DocumentID: docID.String(),
		Count:      len(events),
		Events:     make([]EventResponse, 0, len(events)),
	}
	for i := range events {
		resp.Events = append(resp.Events, toEventResponse(&events[i]))
	}
	return resp
}

func toEventResponse(e *audit.Event) EventResponse {
	out := EventResponse{
		ID:              e.ID.String(),
		Action:          string(e.Action),
		PerformedBy:     string(e.PerformedBy),
		PerformedByRole: string(e.PerformedByRole),
		IPAddress:       e.IPAddress,
		UserAgent:       e.UserAgent,
		OldStatus:       e.OldStatus,
		NewStatus:       e.NewStatus,
		Reason:          e.Reason,
		RequestID:       e.RequestID,
		Timestamp:       e.Timestamp,
	}
	if !e.Subject.IsZero() {
		out.SubjectKind = string(e.Subject.Kind)
		out.SubjectID = e.Subject.ID.String()
	}
	if !e.Metadata.IsZero() {
		out.Metadata = flattenMetadata(e.Metadata)
	}
	return out
}

func flattenMetadata(m audit.Metadata) map[string]string {
	out := make(map[string]string, len(m.Extra)+5)
	for k, v := range m.Extra {
		out[k] = v
	}
	if !m.GrantID.IsNil() {
		out["grant_id"] = m.GrantID.String()
	}
	if !m.RevocationID.IsNil() {
		out["revocation_id"] = m.RevocationID.String()
	}
	if m.AccessLevel != "" {
		out["access_level"] = m.AccessLevel
	}
	if m.Browser != "" {
		out["browser"] = m.Browser
	}
	if m.OS != "" {
		out["os"] = m.OS
	}
	return out
}
