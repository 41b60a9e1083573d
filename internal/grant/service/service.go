package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docvault/internal/audit"
	"docvault/internal/grant"
	"docvault/internal/grant/metrics"
	"docvault/internal/notify"
	"docvault/internal/policy"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/sentinel"
	"docvault/pkg/requestcontext"
)

const maxTokenAttempts = 3

// Store persists grants. Create returns sentinel.ErrAlreadyUsed when the
// token collides; lookups return sentinel.ErrNotFound.
type Store interface {
	Create(ctx context.Context, g *grant.Grant) error
	FindByID(ctx context.Context, tenantID id.TenantID, grantID id.GrantID) (*grant.Grant, error)
	FindByToken(ctx context.Context, tenantID id.TenantID, token string) (*grant.Grant, error)
	// IncrementAccess bumps the counter of an active grant atomically and
	// returns sentinel.ErrInvalidState when the grant is no longer active.
	IncrementAccess(ctx context.Context, tenantID id.TenantID, grantID id.GrantID, at time.Time) (*grant.Grant, error)
	// Deactivate reports whether the grant changed; an inactive grant is left as is.
	Deactivate(ctx context.Context, tenantID id.TenantID, grantID id.GrantID, reason string, at time.Time) (*grant.Grant, bool, error)
	DeactivateAllForDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, reason string, at time.Time) (int, error)
	ListByDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*grant.Grant, error)
	ListExpired(ctx context.Context, tenantID id.TenantID, now time.Time, limit int) ([]*grant.Grant, error)
	// DeactivateBatch returns the ids that were still active and are now inactive.
	DeactivateBatch(ctx context.Context, tenantID id.TenantID, grantIDs []id.GrantID, reason string, at time.Time) ([]id.GrantID, error)
}

// ShareChecker refuses documents that are missing or revoked.
type ShareChecker interface {
	CheckShareable(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) error
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store    Store
	shares   ShareChecker
	auditor  AuditEmitter
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	newToken func() (string, error)
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

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithTokenGenerator replaces grant.NewToken; tests use it to force collisions.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newToken = gen
	}
}

func New(store Store, shares ShareChecker, auditor AuditEmitter, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "grant store is required")
	}
	if shares == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "share checker is required")
	}
	if auditor == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit emitter is required")
	}
	svc := &Service{
		store:    store,
		shares:   shares,
		auditor:  auditor,
		notifier: notify.Nop{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("docvault/grant"),
		newToken: grant.NewToken,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Issue shares a document with exactly one recipient.
func (s *Service) Issue(ctx context.Context, req grant.IssueRequest) (*grant.Grant, error) {
	ctx, span := s.tracer.Start(ctx, "grant.Issue", trace.WithAttributes(
		attribute.String("document_id", req.DocumentID.String()),
	))
	defer span.End()

	g, err := s.issue(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue failed")
		return nil, err
	}
	return g, nil
}

func (s *Service) issue(ctx context.Context, req grant.IssueRequest) (*grant.Grant, error) {
	if err := policy.Require(req.Actor.Role, policy.CapIssueGrant); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if req.AccessLevel == "" {
		req.AccessLevel = grant.LevelView
	}
	if err := req.Validate(now); err != nil {
		return nil, err
	}
	if err := s.shares.CheckShareable(ctx, req.TenantID, req.DocumentID); err != nil {
		return nil, err
	}

	g := &grant.Grant{
		ID:          id.NewGrantID(),
		TenantID:    req.TenantID,
		DocumentID:  req.DocumentID,
		Recipient:   req.Recipient,
		AccessLevel: req.AccessLevel,
		IsActive:    true,
		ExpiresAt:   req.ExpiresAt,
		GrantedBy:   req.Actor.ID,
		GrantedAt:   now,
		Notes:       req.Notes,
	}
	if err := s.createWithFreshToken(ctx, g); err != nil {
		return nil, err
	}

	if err := s.auditor.Emit(ctx, audit.Event{
		TenantID:        g.TenantID,
		DocumentID:      g.DocumentID,
		Subject:         g.Recipient.Subject(),
		Action:          audit.ActionAssigned,
		PerformedBy:     req.Actor.ID,
		PerformedByRole: req.Actor.Role,
		Metadata: audit.Metadata{
			GrantID:     g.ID,
			AccessLevel: string(g.AccessLevel),
			Extra:       map[string]string{"recipient": g.Recipient.String()},
		},
	}); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Notice{
		Kind:       notify.KindGrantIssued,
		TenantID:   g.TenantID,
		DocumentID: g.DocumentID,
		Recipient:  g.Recipient,
		GrantID:    g.ID,
		Subject:    g.Recipient.Subject(),
		Actor:      req.Actor.ID,
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: now,
	})
	if s.metrics != nil {
		s.metrics.IncIssued(string(g.AccessLevel))
	}
	s.logger.InfoContext(ctx, "access grant issued",
		"grant_id", g.ID.String(),
		"document_id", g.DocumentID.String(),
		"access_level", string(g.AccessLevel),
		"request_id", requestcontext.RequestID(ctx),
	)
	return g, nil
}

func (s *Service) createWithFreshToken(ctx context.Context, g *grant.Grant) error {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate share token")
		}
		g.Token = token
		err = s.store.Create(ctx, g)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.Wrap(err, dErrors.CodePersistence, "failed to store access grant")
		}
		if s.metrics != nil {
			s.metrics.IncTokenCollision()
		}
		s.logger.WarnContext(ctx, "share token collision, regenerating",
			"attempt", attempt,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return dErrors.New(dErrors.CodeInternal, "could not generate a unique share token")
}

// Validate checks a presented token and, when it is valid, counts the access.
func (s *Service) Validate(ctx context.Context, tenantID id.TenantID, token string) (*grant.ValidationResult, error) {
	res, err := s.Inspect(ctx, tenantID, token)
	if err != nil || !res.Valid {
		return res, err
	}
	updated, err := s.RecordAccess(ctx, res.Grant)
	if err != nil {
		return nil, err
	}
	res.Grant = updated
	return res, nil
}

// Inspect is Validate without counting. Expired grants are reported, never mutated.
func (s *Service) Inspect(ctx context.Context, tenantID id.TenantID, token string) (*grant.ValidationResult, error) {
	if token == "" {
		s.countValidation(grant.ReasonNotFound)
		return &grant.ValidationResult{Reason: grant.ReasonNotFound}, nil
	}
	g, err := s.store.FindByToken(ctx, tenantID, token)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.countValidation(grant.ReasonNotFound)
		return &grant.ValidationResult{Reason: grant.ReasonNotFound}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to look up share token")
	}
	reason := g.Check(requestcontext.Now(ctx))
	s.countValidation(reason)
	return &grant.ValidationResult{Valid: reason == "", Grant: g, Reason: reason}, nil
}

// RecordAccess counts one successful use of g and returns the updated grant.
func (s *Service) RecordAccess(ctx context.Context, g *grant.Grant) (*grant.Grant, error) {
	updated, err := s.store.IncrementAccess(ctx, g.TenantID, g.ID, requestcontext.Now(ctx))
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "access grant is no longer active")
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeTokenInvalid, "access grant not found")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to record grant access")
	}
	return updated, nil
}

// Deactivate switches one grant off for good. Deactivating an inactive grant
// succeeds without changes or audit.
func (s *Service) Deactivate(ctx context.Context, req grant.DeactivateRequest) (*grant.Grant, error) {
	if err := policy.Require(req.Actor.Role, policy.CapDeactivateGrant); err != nil {
		return nil, err
	}
	reason := req.Reason
	if reason == "" {
		reason = "Access revoked"
	}
	g, changed, err := s.store.Deactivate(ctx, req.TenantID, req.GrantID, reason, requestcontext.Now(ctx))
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "access grant not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to deactivate access grant")
	}
	if !changed {
		return g, nil
	}

	if err := s.auditor.Emit(ctx, audit.Event{
		TenantID:        g.TenantID,
		DocumentID:      g.DocumentID,
		Subject:         g.Recipient.Subject(),
		Action:          audit.ActionMetadataChanged,
		PerformedBy:     req.Actor.ID,
		PerformedByRole: req.Actor.Role,
		Reason:          reason,
		Metadata: audit.Metadata{
			GrantID:     g.ID,
			AccessLevel: string(g.AccessLevel),
			Extra:       map[string]string{"change": "grant_deactivated"},
		},
	}); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.AddDeactivated("manual", 1)
	}
	return g, nil
}

// DeactivateAllForDocument is the revocation cascade. It is safe to repeat.
func (s *Service) DeactivateAllForDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, reason string) (int, error) {
	n, err := s.store.DeactivateAllForDocument(ctx, tenantID, documentID, reason, requestcontext.Now(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodePersistence, "failed to deactivate document grants")
	}
	if s.metrics != nil && n > 0 {
		s.metrics.AddDeactivated("revocation", n)
	}
	return n, nil
}

// ListForDocument returns every grant ever issued for the document, newest first.
func (s *Service) ListForDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) ([]*grant.Grant, error) {
	grants, err := s.store.ListByDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list access grants")
	}
	return grants, nil
}

func (s *Service) Get(ctx context.Context, tenantID id.TenantID, grantID id.GrantID) (*grant.Grant, error) {
	g, err := s.store.FindByID(ctx, tenantID, grantID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "access grant not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load access grant")
	}
	return g, nil
}

func (s *Service) countValidation(reason grant.InvalidReason) {
	if s.metrics == nil {
		return
	}
	outcome := string(reason)
	if outcome == "" {
		outcome = "valid"
	}
	s.metrics.IncValidation(outcome)
}
