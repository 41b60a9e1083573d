package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Run("pgx error with matching constraint", func(t *testing.T) {
		err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "uq_active_revocation"})
		assert.True(t, IsUniqueViolation(err, "uq_active_revocation"))
		assert.True(t, IsUniqueViolation(err, ""))
		assert.False(t, IsUniqueViolation(err, "uq_grant_token"))
	})

	t.Run("lib/pq error", func(t *testing.T) {
		err := &pq.Error{Code: "23505", Constraint: "uq_grant_token"}
		assert.True(t, IsUniqueViolation(err, "uq_grant_token"))
	})

	t.Run("other codes and plain errors", func(t *testing.T) {
		assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
		assert.False(t, IsUniqueViolation(errors.New("duplicate key"), ""))
	})
}

func TestSchemaIsEmbedded(t *testing.T) {
	assert.Contains(t, schema, "document_revocations")
	assert.Contains(t, schema, "uq_active_revocation")
}
