package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"docvault/internal/grant"
	"docvault/internal/platform/postgres"
	id "docvault/pkg/domain"
	"docvault/pkg/platform/sentinel"
	txcontext "docvault/pkg/platform/tx"
)

const tokenConstraint = "uq_grant_token"

const grantColumns = `id, tenant_id, document_id, recipient_kind, recipient_id, token, access_level,
	is_active, expires_at, revoked_at, revoked_reason, granted_by, granted_at, notes,
	access_count, last_accessed_at`

// Postgres stores grants in document_access_grants. Counters are updated in
// SQL so concurrent validations never lose an increment.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrant(row rowScanner) (*grant.Grant, error) {
	var (
		g             grant.Grant
		grantID       uuid.UUID
		tenantID      uuid.UUID
		documentID    uuid.UUID
		recipientKind string
		level         string
		grantedBy     string
		expiresAt     sql.NullTime
		revokedAt     sql.NullTime
		lastAccessed  sql.NullTime
	)
	if err := row.Scan(
		&grantID, &tenantID, &documentID, &recipientKind, &g.Recipient.ID, &g.Token, &level,
		&g.IsActive, &expiresAt, &revokedAt, &g.RevokedReason, &grantedBy, &g.GrantedAt, &g.Notes,
		&g.AccessCount, &lastAccessed,
	); err != nil {
		return nil, err
	}
	g.ID = id.GrantID(grantID)
	g.TenantID = id.TenantID(tenantID)
	g.DocumentID = id.DocumentID(documentID)
	g.Recipient.Kind = id.RecipientKind(recipientKind)
	g.AccessLevel = grant.AccessLevel(level)
	g.GrantedBy = id.ActorID(grantedBy)
	g.GrantedAt = g.GrantedAt.UTC()
	g.ExpiresAt = timePtr(expiresAt)
	g.RevokedAt = timePtr(revokedAt)
	g.LastAccessedAt = timePtr(lastAccessed)
	return &g, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func (s *Postgres) Create(ctx context.Context, g *grant.Grant) error {
	_, err := txcontext.Or(ctx, s.db).ExecContext(ctx, `
		INSERT INTO document_access_grants (`+grantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		uuid.UUID(g.ID), uuid.UUID(g.TenantID), uuid.UUID(g.DocumentID),
		string(g.Recipient.Kind), g.Recipient.ID, g.Token, string(g.AccessLevel),
		g.IsActive, g.ExpiresAt, g.RevokedAt, g.RevokedReason, string(g.GrantedBy), g.GrantedAt, g.Notes,
		g.AccessCount, g.LastAccessedAt,
	)
	if postgres.IsUniqueViolation(err, tokenConstraint) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("insert access grant: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, tenantID id.TenantID, grantID id.GrantID) (*grant.Grant, error) {
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM document_access_grants WHERE tenant_id = $1 AND id = $2`,
		uuid.UUID(tenantID), uuid.UUID(grantID))
	return s.one(row, "find access grant")
}

func (s *Postgres) FindByToken(ctx context.Context, tenantID id.TenantID, token string) (*grant.Grant, error) {
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+grantColumns+` FROM document_access_grants WHERE tenant_id = $1 AND token = $2`,
		uuid.UUID(tenantID), token)
	return s.one(row, "find access grant by token")
}

func (s *Postgres) one(row rowScanner, op string) (*grant.Grant, error) {
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

func (s *Postgres) IncrementAccess(ctx context.Context, tenantID id.TenantID, grantID id.GrantID, at time.Time) (*grant.Grant, error) {
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx, `
		UPDATE document_access_grants
		SET access_count = access_count + 1, last_accessed_at = $3
		WHERE tenant_id = $1 AND id = $2 AND is_active
		RETURNING `+grantColumns,
		uuid.UUID(tenantID), uuid.UUID(grantID), at)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := s.FindByID(ctx, tenantID, grantID); findErr != nil {
			return nil, findErr
		}
		return nil, sentinel.ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("increment grant access: %w", err)
	}
	return g, nil
}

func (s *Postgres) Deactivate(ctx context.Context, tenantID id.TenantID, grantID id.GrantID, reason string, at time.Time) (*grant.Grant, bool, error) {
	row := txcontext.Or(ctx, s.db).QueryRowContext(ctx, `
		UPDATE document_access_grants
		SET is_active = FALSE, revoked_at = $3, revoked_reason = $4
		WHERE tenant_id = $1 AND id = $2 AND is_active
		RETURNING `+grantColumns,
		uuid.UUID(tenantID), uuid.UUID(grantID), at, reason)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		existing, findErr := s.FindByID(ctx, tenantID, grantID)
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("deactivate access grant: %w", err)
	}
	return g, true, nil
}

func (s *Postgres) DeactivateAllForDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, reason string, at time.Time) (int, error) {
	res, err := txcontext.Or(ctx, s.db).ExecContext(ctx, `
		UPDATE document_access_grants
		SET is_active = FALSE, revoked_at = $3, revoked_reason = $4
		WHERE tenant_id = $1 AND document_id = $2 AND is_active
	`, uuid.UUID(tenantID), uuid.UUID(documentID), at, reason)
	if err != nil {
		return 0, fmt.Errorf("deactivate document grants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deactivate document grants: %w", err)
	}
	return int(n), nil
}

func (s *Postgres) list(ctx context.Context, op, query string, args ...any) ([]*grant.Grant, error) {
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := make([]*grant.Grant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *Postgres) ListByDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*grant.Grant, error) {
	return s.list(ctx, "list document grants", `
		SELECT `+grantColumns+`
		FROM document_access_grants
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY granted_at DESC
	`, uuid.UUID(tenantID), uuid.UUID(documentID))
}

func (s *Postgres) ListExpired(ctx context.Context, tenantID id.TenantID, now time.Time, limit int) ([]*grant.Grant, error) {
	return s.list(ctx, "list expired grants", `
		SELECT `+grantColumns+`
		FROM document_access_grants
		WHERE tenant_id = $1 AND is_active AND expires_at IS NOT NULL AND expires_at < $2
		ORDER BY expires_at
		LIMIT $3
	`, uuid.UUID(tenantID), now, limit)
}

func (s *Postgres) DeactivateBatch(ctx context.Context, tenantID id.TenantID, grantIDs []id.GrantID, reason string, at time.Time) ([]id.GrantID, error) {
	if len(grantIDs) == 0 {
		return nil, nil
	}
	raw := make([]string, len(grantIDs))
	for i, gid := range grantIDs {
		raw[i] = gid.String()
	}
	rows, err := txcontext.Or(ctx, s.db).QueryContext(ctx, `
		UPDATE document_access_grants
		SET is_active = FALSE, revoked_at = $3, revoked_reason = $4
		WHERE tenant_id = $1 AND id = ANY($2::uuid[]) AND is_active
		RETURNING id
	`, uuid.UUID(tenantID), pq.Array(raw), at, reason)
	if err != nil {
		return nil, fmt.Errorf("deactivate grant batch: %w", err)
	}
	defer rows.Close()

	changed := make([]id.GrantID, 0, len(grantIDs))
	for rows.Next() {
		var gid uuid.UUID
		if err := rows.Scan(&gid); err != nil {
			return nil, fmt.Errorf("deactivate grant batch: %w", err)
		}
		changed = append(changed, id.GrantID(gid))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("deactivate grant batch: %w", err)
	}
	return changed, nil
}
