package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docvault/internal/document"
	"docvault/internal/platform/postgres"
	"docvault/internal/revocation"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
	txcontext "docvault/pkg/platform/tx"
)

const activeRevocationConstraint = "uq_active_revocation"

const revocationColumns = `id, tenant_id, document_id, subject_kind, subject_id, revoked_by, revoked_by_role,
	revoked_at, reason, reason_details, status, is_active, reinstated_by, reinstated_by_role,
	reinstated_at, reinstated_reason, snapshot_type, snapshot_status, snapshot_template_id,
	snapshot_generated_at, snapshot_file_path`

// Postgres stores records in document_revocations. The partial unique index
// uq_active_revocation keeps concurrent revokes of one document from both
// committing.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*revocation.Record, error) {
	var (
		rec            revocation.Record
		revID          uuid.UUID
		tenantID       uuid.UUID
		documentID     uuid.UUID
		subjectKind    string
		subjectID      uuid.NullUUID
		revokedBy      string
		revokedByRole  string
		reason         string
		status         string
		reinstatedBy   string
		reinstatedRole string
		reinstatedAt   sql.NullTime
		snapshotStatus string
		generatedAt    sql.NullTime
	)
	if err := row.Scan(
		&revID, &tenantID, &documentID, &subjectKind, &subjectID, &revokedBy, &revokedByRole,
		&rec.RevokedAt, &reason, &rec.ReasonDetails, &status, &rec.IsActive, &reinstatedBy, &reinstatedRole,
		&reinstatedAt, &rec.ReinstatedReason, &rec.Snapshot.Type, &snapshotStatus, &rec.Snapshot.TemplateID,
		&generatedAt, &rec.Snapshot.FilePath,
	); err != nil {
		return nil, err
	}
	rec.ID = id.RevocationID(revID)
	rec.TenantID = id.TenantID(tenantID)
	rec.DocumentID = id.DocumentID(documentID)
	if subjectID.Valid {
		rec.Subject = id.Subject{Kind: id.SubjectKind(subjectKind), ID: subjectID.UUID}
	}
	rec.RevokedBy = id.ActorID(revokedBy)
	rec.RevokedByRole = id.Role(revokedByRole)
	rec.RevokedAt = rec.RevokedAt.UTC()
	rec.Reason = revocation.Reason(reason)
	rec.Status = revocation.Status(status)
	rec.ReinstatedBy = id.ActorID(reinstatedBy)
	rec.ReinstatedByRole = id.Role(reinstatedRole)
	rec.ReinstatedAt = timePtr(reinstatedAt)
	rec.Snapshot.Status = document.Status(snapshotStatus)
	rec.Snapshot.GeneratedAt = timePtr(generatedAt)
	return &rec, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func (s *Postgres) Create(ctx context.Context, rec *revocation.Record) error {
	var subjectID *uuid.UUID
	if !rec.Subject.IsZero() {
		sid := rec.Subject.ID
		subjectID = &sid
	}
	_, err := txcontext.Or(ctx, s.db).ExecContext(ctx, `
		INSERT INTO document_revocations (`+revocationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		uuid.UUID(rec.ID), uuid.UUID(rec.TenantID), uuid.UUID(rec.DocumentID),
		string(rec.Subject.Kind), subjectID, string(rec.RevokedBy), string(rec.RevokedByRole),
		rec.RevokedAt, string(rec.Reason), rec.ReasonDetails, string(rec.Status), rec.IsActive,
		string(rec.ReinstatedBy), string(rec.ReinstatedByRole), rec.ReinstatedAt, rec.ReinstatedReason,
		rec.Snapshot.Type, string(rec.Snapshot.Status), rec.Snapshot.TemplateID,
		rec.Snapshot.GeneratedAt, rec.Snapshot.FilePath,
	)
	if postgres.IsUniqueViolation(err, activeRevocationConstraint) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert revocation: %w", err)
	}
	return nil
}

func (s *Postgres) FindActive(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Record, error) {
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+revocationColumns+`
		FROM document_revocations
		WHERE tenant_id = $1 AND document_id = $2 AND status = 'revoked' AND is_active`,
		uuid.UUID(tenantID), uuid.UUID(documentID),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find active revocation: %w", err)
	}
	return rec, nil
}

func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID, revocationID id.RevocationID) (*revocation.Record, error) {
	return s.findByID(ctx, txcontext.Or(ctx, s.db), tenantID, revocationID, false)
}

func (s *Postgres) findByID(ctx context.Context, q txcontext.Execer, tenantID id.TenantID, revocationID id.RevocationID, forUpdate bool) (*revocation.Record, error) {
	query := `SELECT ` + revocationColumns + ` FROM document_revocations WHERE tenant_id = $1 AND id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rec, err := scanRecord(q.QueryRowContext(ctx, query, uuid.UUID(tenantID), uuid.UUID(revocationID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find revocation: %w", err)
	}
	return rec, nil
}

// Execute locks the row with SELECT FOR UPDATE. Outside a transaction it
// opens its own.
func (s *Postgres) Execute(ctx context.Context, tenantID id.TenantID, revocationID id.RevocationID, validate func(*revocation.Record) error, mutate func(*revocation.Record)) (*revocation.Record, error) {
	if tx, ok := txcontext.From(ctx); ok {
		return s.execute(ctx, tx, tenantID, revocationID, validate, mutate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin revocation tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	rec, err := s.execute(ctx, tx, tenantID, revocationID, validate, mutate)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit revocation tx: %w", err)
	}
	return rec, nil
}

func (s *Postgres) execute(ctx context.Context, tx *sql.Tx, tenantID id.TenantID, revocationID id.RevocationID, validate func(*revocation.Record) error, mutate func(*revocation.Record)) (*revocation.Record, error) {
	rec, err := s.findByID(ctx, tx, tenantID, revocationID, true)
	if err != nil {
		return nil, err
	}
	if err := validate(rec); err != nil {
		return nil, err
	}
	mutate(rec)

	_, err = tx.ExecContext(ctx, `
		UPDATE document_revocations
		SET status = $3, is_active = $4, reinstated_by = $5, reinstated_by_role = $6,
			reinstated_at = $7, reinstated_reason = $8
		WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(revocationID),
		string(rec.Status), rec.IsActive, string(rec.ReinstatedBy), string(rec.ReinstatedByRole),
		rec.ReinstatedAt, rec.ReinstatedReason,
	)
	if err != nil {
		return nil, fmt.Errorf("update revocation: %w", err)
	}
	return rec, nil
}

func (s *Postgres) ListByDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*revocation.Record, error) {
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, `
		SELECT `+revocationColumns+`
		FROM document_revocations
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY revoked_at DESC, id`,
		uuid.UUID(tenantID), uuid.UUID(documentID),
	)
	if err != nil {
		return nil, fmt.Errorf("list revocations: %w", err)
	}
	defer rows.Close()

	var out []*revocation.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revocation: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revocations: %w", err)
	}
	return out, nil
}
