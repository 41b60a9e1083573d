package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docvault/internal/document"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
	txcontext "docvault/pkg/platform/tx"
)

// Postgres reads and updates rows of the documents table. It joins any
// transaction carried in the context.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Put upserts a document row.
func (s *Postgres) Put(ctx context.Context, doc *document.Document) error {
	_, err := txcontext.Or(ctx, s.db).ExecContext(ctx, `
		INSERT INTO documents (tenant_id, id, type, status, template_id, file_path, generated_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (tenant_id, id) DO UPDATE SET
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			template_id = EXCLUDED.template_id,
			file_path = EXCLUDED.file_path,
			generated_at = EXCLUDED.generated_at,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
	`, uuid.UUID(doc.TenantID), uuid.UUID(doc.ID), doc.Type, string(doc.Status),
		doc.TemplateID, doc.FilePath, doc.GeneratedAt, doc.ExpiresAt)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, tenantID id.TenantID, docID id.DocumentID) (*document.Document, error) {
	var (
		doc         document.Document
		status      string
		generatedAt sql.NullTime
		expiresAt   sql.NullTime
	)
	err := txcontext.Or(ctx, s.db).QueryRowContext(ctx, `
		SELECT type, status, template_id, file_path, generated_at, expires_at, updated_at
		FROM documents
		WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(docID)).Scan(
		&doc.Type, &status, &doc.TemplateID, &doc.FilePath, &generatedAt, &expiresAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	doc.TenantID = tenantID
	doc.ID = docID
	doc.Status = document.Status(status)
	doc.GeneratedAt = nullTime(generatedAt)
	doc.ExpiresAt = nullTime(expiresAt)
	return &doc, nil
}

func (s *Postgres) SetStatus(ctx context.Context, tenantID id.TenantID, docID id.DocumentID, status document.Status) error {
	res, err := txcontext.Or(ctx, s.db).ExecContext(ctx, `
		UPDATE documents SET status = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
	`, uuid.UUID(tenantID), uuid.UUID(docID), string(status))
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
