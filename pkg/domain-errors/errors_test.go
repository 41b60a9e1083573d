package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodePropagation(t *testing.T) {
	t.Run("wrap keeps the underlying cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodePersistence, "failed to load grant")

		require.Error(t, err)
		assert.True(t, HasCode(err, CodePersistence))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to load grant: connection reset", err.Error())
	})

	t.Run("wrapping nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("revoke: %w", New(CodeConflict, "document is already revoked"))
		assert.True(t, Is(err, CodeConflict))
		assert.Equal(t, CodeConflict, CodeOf(err))
	})

	t.Run("plain errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(errors.New("boom"), CodeNotFound))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:   http.StatusBadRequest,
		CodeNotFound:     http.StatusNotFound,
		CodeConflict:     http.StatusConflict,
		CodeInvalidState: http.StatusConflict,
		CodeForbidden:    http.StatusForbidden,
		CodeTokenInvalid: http.StatusUnauthorized,
		CodePersistence:  http.StatusServiceUnavailable,
		CodeInternal:     http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, ToHTTPStatus(code), "code %s", code)
	}
}
