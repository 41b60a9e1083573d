package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/httputil"
	"docvault/pkg/requestcontext"
)

// Principal is what a verified bearer token says about the caller.
type Principal struct {
	TenantID id.TenantID
	Actor    id.Actor
}

// TokenValidator verifies a bearer token and extracts the principal.
type TokenValidator interface {
	ValidateToken(token string) (*Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and injects the
// tenant and actor into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			principal, err := validator.ValidateToken(strings.TrimSpace(token))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithActor(ctx, principal.TenantID, principal.Actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
