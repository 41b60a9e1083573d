package service

import (
	"context"
	"log/slog"
	"time"

	"docvault/internal/audit"
	"docvault/internal/audit/metrics"
	"docvault/internal/platform/config"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/requestcontext"
)

// Store persists audit events. Implementations never update or delete.
type Store interface {
	Append(ctx context.Context, event *audit.Event) error
	List(ctx context.Context, tenantID id.TenantID, q audit.Query) ([]audit.Event, error)
}

// Service is the audit ledger. Record always surfaces storage failures;
// Emit applies the configured failure mode.
type Service struct {
	store       Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	failureMode string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFailureMode selects config.AuditBestEffort or config.AuditFailClosed.
func WithFailureMode(mode string) Option {
	return func(s *Service) {
		s.failureMode = mode
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit store is required")
	}
	svc := &Service{
		store:       store,
		logger:      slog.Default(),
		failureMode: config.AuditBestEffort,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Record appends one event. ID and Timestamp are always assigned here; IP,
// User-Agent and request ID fall back to the request context when unset.
func (s *Service) Record(ctx context.Context, event audit.Event) (*audit.Event, error) {
	event.ID = id.NewEventID()
	event.Timestamp = requestcontext.Now(ctx).UTC()
	if event.IPAddress == "" {
		event.IPAddress = requestcontext.ClientIP(ctx)
	}
	if event.UserAgent == "" {
		event.UserAgent = requestcontext.UserAgent(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Metadata.Browser == "" && event.Metadata.OS == "" {
		event.Metadata.Browser, event.Metadata.OS = describeAgent(event.UserAgent)
	}
	event.Reason = audit.TruncateReason(event.Reason)

	if err := event.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Append(ctx, &event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record audit event")
	}
	if s.metrics != nil {
		s.metrics.IncRecorded(string(event.Action))
	}
	return &event, nil
}

// Emit records event under the configured failure mode. In best-effort mode
// failures are logged and counted and the caller proceeds.
func (s *Service) Emit(ctx context.Context, event audit.Event) error {
	_, err := s.Record(ctx, event)
	if err == nil {
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncWriteFailure(string(event.Action), s.failureMode)
	}
	if s.failureMode == config.AuditFailClosed {
		s.logger.ErrorContext(ctx, "CRITICAL: audit event lost, failing operation",
			"error", err,
			"action", event.Action,
			"document_id", event.DocumentID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return err
	}
	s.logger.WarnContext(ctx, "failed to record audit event",
		"error", err,
		"action", event.Action,
		"document_id", event.DocumentID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// Query returns events for the tenant, newest first unless q.Ascending.
func (s *Service) Query(ctx context.Context, tenantID id.TenantID, q audit.Query) ([]audit.Event, error) {
	if tenantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "tenant is required")
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Until.Before(q.Since) {
		return nil, dErrors.New(dErrors.CodeValidation, "until must not be before since")
	}
	start := time.Now()
	events, err := s.store.List(ctx, tenantID, q.Normalize())
	if s.metrics != nil {
		s.metrics.ObserveQuery(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit trail")
	}
	return events, nil
}
