package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docvault/internal/grant"
	"docvault/internal/policy"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/httputil"
	"docvault/pkg/requestcontext"
)

// Service is the grant registry as the HTTP layer sees it.
type Service interface {
	Issue(ctx context.Context, req grant.IssueRequest) (*grant.Grant, error)
	Validate(ctx context.Context, tenantID id.TenantID, token string) (*grant.ValidationResult, error)
	Deactivate(ctx context.Context, req grant.DeactivateRequest) (*grant.Grant, error)
	ListForDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*grant.Grant, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the staff endpoints; they expect an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/documents/{documentID}/grants", h.HandleIssue)
	r.Get("/documents/{documentID}/grants", h.HandleList)
	r.Post("/grants/{grantID}/deactivate", h.HandleDeactivate)
}

// RegisterPublic mounts the bearer-token endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/share/{tenantID}/{token}/validate", h.HandleValidate)
}

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := requireActor(w, ctx)
	if !ok {
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[IssueGrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	g, err := h.service.Issue(ctx, grant.IssueRequest{
		TenantID:    requestcontext.TenantID(ctx),
		DocumentID:  docID,
		Recipient:   req.recipient,
		AccessLevel: req.level,
		ExpiresAt:   req.ExpiresAt,
		Notes:       req.Notes,
		Actor:       actor,
	})
	if err != nil {
		h.logError(ctx, "issue access grant failed", err, "document_id", docID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toGrantResponse(g, true))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := requireActor(w, ctx)
	if !ok {
		return
	}
	if err := policy.Require(actor.Role, policy.CapReadHistory); err != nil {
		httputil.WriteError(w, err)
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	grants, err := h.service.ListForDocument(ctx, requestcontext.TenantID(ctx), docID)
	if err != nil {
		h.logError(ctx, "list access grants failed", err, "document_id", docID.String())
		httputil.WriteError(w, err)
		return
	}
	resp := GrantListResponse{Grants: make([]GrantResponse, 0, len(grants))}
	for _, g := range grants {
		resp.Grants = append(resp.Grants, toGrantResponse(g, false))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := requireActor(w, ctx)
	if !ok {
		return
	}
	grantID, err := id.ParseGrantID(chi.URLParam(r, "grantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[DeactivateGrantRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	g, err := h.service.Deactivate(ctx, grant.DeactivateRequest{
		TenantID: requestcontext.TenantID(ctx),
		GrantID:  grantID,
		Reason:   req.Reason,
		Actor:    actor,
	})
	if err != nil {
		h.logError(ctx, "deactivate access grant failed", err, "grant_id", grantID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toGrantResponse(g, false))
}

// HandleValidate answers whether a share token is usable and counts the use.
// A malformed tenant in the link reads as an unknown token.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteJSON(w, http.StatusOK, ValidationResponse{Reason: string(grant.ReasonNotFound)})
		return
	}
	res, err := h.service.Validate(ctx, tenantID, chi.URLParam(r, "token"))
	if err != nil {
		h.logError(ctx, "validate share token failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toValidationResponse(res))
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodePersistence) {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}

func requireActor(w http.ResponseWriter, ctx context.Context) (id.Actor, bool) {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.Actor{}, false
	}
	return actor, true
}
