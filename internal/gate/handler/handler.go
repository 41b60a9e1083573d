package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docvault/internal/document"
	"docvault/internal/gate"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/httputil"
	"docvault/pkg/requestcontext"
)

type Service interface {
	Enforce(ctx context.Context, req gate.EnforceRequest) (*gate.Decision, error)
	AccessWithToken(ctx context.Context, req gate.TokenAccessRequest) (*gate.Decision, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the staff routes; they expect an authenticated actor.
func (h *Handler) Register(r chi.Router) {
	r.Get("/documents/{documentID}/access", h.HandleEnforce)
}

// RegisterPublic mounts the share-link route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/share/{tenantID}/{token}", h.HandleShareAccess)
}

func (h *Handler) HandleEnforce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := document.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	d, err := h.service.Enforce(ctx, gate.EnforceRequest{
		TenantID:   requestcontext.TenantID(ctx),
		DocumentID: docID,
		Action:     action,
		Actor:      actor,
	})
	if err != nil {
		h.logError(ctx, "enforce document access failed", err, "document_id", docID.String())
		httputil.WriteError(w, err)
		return
	}
	h.writeDecision(w, d, action)
}

// HandleShareAccess serves a share link. A malformed tenant in the link reads
// as an unknown token.
func (h *Handler) HandleShareAccess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	action, err := document.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		h.writeDecision(w, &gate.Decision{DenialCode: gate.DenialTokenInvalid, DenialReason: "not_found"}, action)
		return
	}

	d, err := h.service.AccessWithToken(ctx, gate.TokenAccessRequest{
		TenantID: tenantID,
		Token:    chi.URLParam(r, "token"),
		Action:   action,
	})
	if err != nil {
		h.logError(ctx, "share link access failed", err)
		httputil.WriteError(w, err)
		return
	}
	h.writeDecision(w, d, action)
}

func (h *Handler) writeDecision(w http.ResponseWriter, d *gate.Decision, action document.Action) {
	if !d.Allowed {
		httputil.WriteJSON(w, denialStatus(d.DenialCode), toDenialResponse(d))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccessResponse(d, action))
}

func (h *Handler) logError(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodePersistence) {
		h.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	h.logger.WarnContext(ctx, msg, attrs...)
}
