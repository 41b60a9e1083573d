package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docvault/internal/policy"
	"docvault/internal/revocation"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/httputil"
	"docvault/pkg/requestcontext"
)

// Service is the revocation ledger as the HTTP layer sees it.
type Service interface {
	Revoke(ctx context.Context, req revocation.RevokeRequest) (*revocation.Record, error)
	Reinstate(ctx context.Context, req revocation.ReinstateRequest) (*revocation.Record, error)
	GetStatus(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.StatusView, error)
	History(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*revocation.Record, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/documents/{documentID}/status", h.HandleStatus)
	r.Post("/documents/{documentID}/revoke", h.HandleRevoke)
	r.Get("/documents/{documentID}/revocation-history", h.HandleHistory)
	r.Post("/revocations/{revocationID}/reinstate", h.HandleReinstate)
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Revoke(ctx, revocation.RevokeRequest{
		TenantID:      requestcontext.TenantID(ctx),
		DocumentID:    docID,
		Subject:       req.subject,
		Actor:         actor,
		Reason:        req.reason,
		ReasonDetails: req.ReasonDetails,
	})
	if err != nil {
		h.logError(ctx, "revoke document failed", err, "document_id", docID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toRevocationResponse(rec))
}

func (h *Handler) HandleReinstate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, ok := requireActor(w, ctx)
	if !ok {
		return
	}
	revID, err := id.ParseRevocationID(chi.URLParam(r, "revocationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReinstateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Reinstate(ctx, revocation.ReinstateRequest{
		TenantID:     requestcontext.TenantID(ctx),
		RevocationID: revID,
		Actor:        actor,
		Reason:       req.Reason,
	})
	if err != nil {
		h.logError(ctx, "reinstate document failed", err, "revocation_id", revID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRevocationResponse(rec))
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireActor(w, ctx); !ok {
		return
	}
	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.GetStatus(ctx, requestcontext.TenantID(ctx), docID)
	if err != nil {
		h.logError(ctx, "get document status failed", err, "document_id", docID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(view))
}

func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
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
	records, err := h.service.History(ctx, requestcontext.TenantID(ctx), docID)
	if err != nil {
		h.logError(ctx, "list revocation history failed", err, "document_id", docID.String())
		httputil.WriteError(w, err)
		return
	}
	resp := HistoryResponse{
		DocumentID:  docID.String(),
		Revocations: make([]RevocationResponse, 0, len(records)),
	}
	for _, rec := range records {
		resp.Revocations = append(resp.Revocations, toRevocationResponse(rec))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
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
