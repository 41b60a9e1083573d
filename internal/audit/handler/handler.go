package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"docvault/internal/audit"
	"docvault/internal/policy"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/httputil"
	platformstrings "docvault/pkg/platform/strings"
	"docvault/pkg/requestcontext"
)

// Service is the read side of the audit ledger.
type Service interface {
	Query(ctx context.Context, tenantID id.TenantID, q audit.Query) ([]audit.Event, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/documents/{documentID}/audit-trail", h.HandleAuditTrail)
}

// HandleAuditTrail handles GET /documents/{documentID}/audit-trail.
// Filters: limit, action (comma separated), performed_by, since, until (RFC 3339), order=asc.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if err := policy.Require(actor.Role, policy.CapReadAudit); err != nil {
		httputil.WriteError(w, err)
		return
	}

	docID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q.DocumentID = docID

	events, err := h.service.Query(ctx, requestcontext.TenantID(ctx), q)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit trail query failed",
			"request_id", requestID,
			"document_id", docID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTrailResponse(docID, events))
}

func parseQuery(r *http.Request) (audit.Query, error) {
	values := r.URL.Query()
	var q audit.Query

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return q, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
		}
		q.Limit = n
	}
	if raw := values.Get("action"); raw != "" {
		for _, part := range platformstrings.SplitList(raw) {
			a, err := audit.ParseAction(part)
			if err != nil {
				return q, err
			}
			q.Actions = append(q.Actions, a)
		}
	}
	q.PerformedBy = id.ActorID(strings.TrimSpace(values.Get("performed_by")))

	var err error
	if q.Since, err = parseTime(values.Get("since"), "since"); err != nil {
		return q, err
	}
	if q.Until, err = parseTime(values.Get("until"), "until"); err != nil {
		return q, err
	}
	q.Ascending = strings.EqualFold(values.Get("order"), "asc")
	return q, nil
}

func parseTime(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must be an RFC 3339 timestamp")
	}
	return t, nil
}
