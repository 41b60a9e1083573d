package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"docvault/internal/audit"
	id "docvault/pkg/domain"
	txcontext "docvault/pkg/platform/tx"
)

// Postgres appends to document_audit_events. The table rejects UPDATE and
// DELETE at the database level.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// metadataRecord is the JSONB shape of audit.Metadata.
type metadataRecord struct {
	GrantID      string            `json:"grant_id,omitempty"`
	RevocationID string            `json:"revocation_id,omitempty"`
	AccessLevel  string            `json:"access_level,omitempty"`
	Browser      string            `json:"browser,omitempty"`
	OS           string            `json:"os,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func encodeMetadata(m audit.Metadata) ([]byte, error) {
	rec := metadataRecord{
		AccessLevel: m.AccessLevel,
		Browser:     m.Browser,
		OS:          m.OS,
		Extra:       m.Extra,
	}
	if !m.GrantID.IsNil() {
		rec.GrantID = m.GrantID.String()
	}
	if !m.RevocationID.IsNil() {
		rec.RevocationID = m.RevocationID.String()
	}
	return json.Marshal(rec)
}

func decodeMetadata(raw []byte) (audit.Metadata, error) {
	var rec metadataRecord
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec); err != nil {
			return audit.Metadata{}, fmt.Errorf("decode audit metadata: %w", err)
		}
	}
	m := audit.Metadata{
		AccessLevel: rec.AccessLevel,
		Browser:     rec.Browser,
		OS:          rec.OS,
		Extra:       rec.Extra,
	}
	if rec.GrantID != "" {
		g, err := id.ParseGrantID(rec.GrantID)
		if err != nil {
			return audit.Metadata{}, fmt.Errorf("decode audit metadata grant: %w", err)
		}
		m.GrantID = g
	}
	if rec.RevocationID != "" {
		r, err := id.ParseRevocationID(rec.RevocationID)
		if err != nil {
			return audit.Metadata{}, fmt.Errorf("decode audit metadata revocation: %w", err)
		}
		m.RevocationID = r
	}
	return m, nil
}

func (s *Postgres) Append(ctx context.Context, event *audit.Event) error {
	meta, err := encodeMetadata(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	var subjectID *uuid.UUID
	if !event.Subject.IsZero() {
		sid := event.Subject.ID
		subjectID = &sid
	}

	_, err = txcontext.Or(ctx, s.db).ExecContext(ctx, `
		INSERT INTO document_audit_events (
			id, tenant_id, document_id, subject_kind, subject_id, action,
			performed_by, performed_by_role, ip_address, user_agent,
			old_status, new_status, reason, metadata, request_id, occurred_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		uuid.UUID(event.ID),
		uuid.UUID(event.TenantID),
		uuid.UUID(event.DocumentID),
		string(event.Subject.Kind),
		subjectID,
		string(event.Action),
		string(event.PerformedBy),
		string(event.PerformedByRole),
		event.IPAddress,
		event.UserAgent,
		event.OldStatus,
		event.NewStatus,
		event.Reason,
		meta,
		event.RequestID,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context, tenantID id.TenantID, q audit.Query) ([]audit.Event, error) {
	q = q.Normalize()

	where := []string{"tenant_id = $1"}
	args := []any{uuid.UUID(tenantID)}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !q.DocumentID.IsNil() {
		add("document_id = $%d", uuid.UUID(q.DocumentID))
	}
	if len(q.Actions) > 0 {
		names := make([]string, len(q.Actions))
		for i, a := range q.Actions {
			names[i] = string(a)
		}
		add("action = ANY($%d::text[])", pq.Array(names))
	}
	if q.PerformedBy != "" {
		add("performed_by = $%d", string(q.PerformedBy))
	}
	if !q.Since.IsZero() {
		add("occurred_at >= $%d", q.Since)
	}
	if !q.Until.IsZero() {
		add("occurred_at <= $%d", q.Until)
	}
	order := "DESC"
	if q.Ascending {
		order = "ASC"
	}
	args = append(args, q.Limit)

	query := fmt.Sprintf(`
		SELECT id, document_id, subject_kind, subject_id, action,
			   performed_by, performed_by_role, ip_address, user_agent,
			   old_status, new_status, reason, metadata, request_id, occurred_at
		FROM document_audit_events
		WHERE %s
		ORDER BY occurred_at %s, id
		LIMIT $%d
	`, strings.Join(where, " AND "), order, len(args))

	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]audit.Event, 0)
	for rows.Next() {
		var (
			e           audit.Event
			eventID     uuid.UUID
			documentID  uuid.UUID
			subjectKind string
			subjectID   uuid.NullUUID
			action      string
			performedBy string
			role        string
			meta        []byte
		)
		if err := rows.Scan(
			&eventID, &documentID, &subjectKind, &subjectID, &action,
			&performedBy, &role, &e.IPAddress, &e.UserAgent,
			&e.OldStatus, &e.NewStatus, &e.Reason, &meta, &e.RequestID, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id.EventID(eventID)
		e.TenantID = tenantID
		e.DocumentID = id.DocumentID(documentID)
		if subjectID.Valid {
			e.Subject = id.Subject{Kind: id.SubjectKind(subjectKind), ID: subjectID.UUID}
		}
		e.Action = audit.Action(action)
		e.PerformedBy = id.ActorID(performedBy)
		e.PerformedByRole = id.Role(role)
		if e.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
