package grant

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault/internal/document"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
)

func TestAccessLevelPermits(t *testing.T) {
	cases := []struct {
		level    AccessLevel
		view     bool
		download bool
	}{
		{LevelView, true, false},
		{LevelDownload, true, true},
		{LevelShare, true, true},
		{LevelNone, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.level), func(t *testing.T) {
			assert.Equal(t, tc.view, tc.level.Permits(document.ActionView))
			assert.Equal(t, tc.download, tc.level.Permits(document.ActionDownload))
		})
	}
}

func TestParseAccessLevel(t *testing.T) {
	l, err := ParseAccessLevel("")
	require.NoError(t, err)
	assert.Equal(t, LevelView, l)

	_, err = ParseAccessLevel("admin")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestGrantCheck(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	assert.Empty(t, (&Grant{IsActive: true}).Check(now))
	assert.Empty(t, (&Grant{IsActive: true, ExpiresAt: &now}).Check(now), "valid at the expiry instant")
	assert.Equal(t, ReasonExpired, (&Grant{IsActive: true, ExpiresAt: &past}).Check(now))
	assert.Equal(t, ReasonInactive, (&Grant{IsActive: false, ExpiresAt: &past}).Check(now))
}

func TestGrantDeactivateIsOneWay(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	g := &Grant{IsActive: true}

	require.True(t, g.Deactivate("Document revoked", now))
	assert.False(t, g.IsActive)
	assert.Equal(t, "Document revoked", g.RevokedReason)

	assert.False(t, g.Deactivate("again", now.Add(time.Hour)))
	assert.Equal(t, "Document revoked", g.RevokedReason)
	assert.Equal(t, now, *g.RevokedAt)
}

func TestIssueRequestValidate(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	valid := func() IssueRequest {
		return IssueRequest{
			TenantID:   id.TenantID(uuid.New()),
			DocumentID: id.DocumentID(uuid.New()),
			Recipient:  id.ApplicantRecipient(id.ApplicantID(uuid.New())),
			Actor:      id.Actor{ID: "hr-1", Role: id.RoleHR},
		}
	}

	t.Run("valid", func(t *testing.T) {
		r := valid()
		assert.NoError(t, r.Validate(now))
	})

	t.Run("missing recipient", func(t *testing.T) {
		r := valid()
		r.Recipient = id.Recipient{}
		err := r.Validate(now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "recipient")
	})

	t.Run("expiry in the past", func(t *testing.T) {
		r := valid()
		past := now.Add(-time.Hour)
		r.ExpiresAt = &past
		assert.Error(t, r.Validate(now))
	})

	t.Run("notes too long", func(t *testing.T) {
		r := valid()
		r.Notes = strings.Repeat("n", MaxNotesLength+1)
		assert.Error(t, r.Validate(now))
	})
}

func TestNewToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		tok, err := NewToken()
		require.NoError(t, err)
		assert.Len(t, tok, 43)
		assert.NotContains(t, tok, "=")
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}
