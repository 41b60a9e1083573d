package testutil

import (
	"net/http"

	id "docvault/pkg/domain"
	"docvault/pkg/requestcontext"
)

// WithActor attaches an authenticated caller to the request, as the auth
// middleware would.
func WithActor(req *http.Request, tenantID id.TenantID, actorID id.ActorID, role id.Role) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), tenantID, id.Actor{ID: actorID, Role: role})
	return req.WithContext(ctx)
}
