package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docvault/internal/audit"
	"docvault/internal/document"
	"docvault/internal/gate"
	"docvault/internal/gate/metrics"
	"docvault/internal/grant"
	"docvault/internal/revocation"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/sentinel"
	"docvault/pkg/requestcontext"
)

type Documents interface {
	Get(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*document.Document, error)
}

// Revocations answers whether a document is currently revoked. A nil marker
// means it is not.
type Revocations interface {
	Lookup(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*revocation.Marker, error)
}

// Grants is the token side of the registry.
type Grants interface {
	Inspect(ctx context.Context, tenantID id.TenantID, token string) (*grant.ValidationResult, error)
	RecordAccess(ctx context.Context, g *grant.Grant) (*grant.Grant, error)
}

type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

const (
	pathStaff = "staff"
	pathToken = "token"
)

type Service struct {
	documents   Documents
	revocations Revocations
	grants      Grants
	auditor     AuditEmitter
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
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

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// SetGrants enables AccessWithToken. The gate is built before the grant
// registry, which needs CheckShareable, so this is a setter and not a
// constructor argument.
func (s *Service) SetGrants(g Grants) {
	s.grants = g
}

func New(documents Documents, revocations Revocations, auditor AuditEmitter, opts ...Option) (*Service, error) {
	if documents == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "document store is required")
	}
	if revocations == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "revocation ledger is required")
	}
	if auditor == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit emitter is required")
	}
	svc := &Service{
		documents:   documents,
		revocations: revocations,
		auditor:     auditor,
		logger:      slog.Default(),
		tracer:      otel.Tracer("docvault/gate"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Enforce checks, in order, that the document exists, is not revoked and has
// not expired. Allowed reads are recorded as viewed or downloaded.
func (s *Service) Enforce(ctx context.Context, req gate.EnforceRequest) (*gate.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "gate.Enforce", trace.WithAttributes(
		attribute.String("document_id", req.DocumentID.String()),
		attribute.String("action", string(req.Action)),
	))
	defer span.End()

	d, err := s.check(ctx, req.TenantID, req.DocumentID, req.Actor, id.Subject{})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if d.Allowed {
		if err := s.recordRead(ctx, d.Document, req.Action, req.Actor, id.Subject{}, nil); err != nil {
			return nil, err
		}
	}
	s.count(pathStaff, d)
	span.SetAttributes(attribute.Bool("allowed", d.Allowed))
	return d, nil
}

// AccessWithToken serves a share link: the grant must be valid and cover the
// action, then the document passes Enforce's checks. The grant's counter
// moves only once all checks have passed.
func (s *Service) AccessWithToken(ctx context.Context, req gate.TokenAccessRequest) (*gate.Decision, error) {
	ctx, span := s.tracer.Start(ctx, "gate.AccessWithToken", trace.WithAttributes(
		attribute.String("action", string(req.Action)),
	))
	defer span.End()

	if s.grants == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "grant registry is not configured")
	}
	d, err := s.accessWithToken(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.count(pathToken, d)
	span.SetAttributes(attribute.Bool("allowed", d.Allowed))
	return d, nil
}

func (s *Service) accessWithToken(ctx context.Context, req gate.TokenAccessRequest) (*gate.Decision, error) {
	res, err := s.grants.Inspect(ctx, req.TenantID, req.Token)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		// Unknown tokens carry no document to attribute a denial to.
		if res.Grant != nil {
			if err := s.recordDenial(ctx, res.Grant.TenantID, res.Grant.DocumentID, recipientActor(res.Grant), res.Grant.Recipient.Subject(), "share token "+string(res.Reason), res.Grant.ID, nil); err != nil {
				return nil, err
			}
		}
		return deniedToken(string(res.Reason)), nil
	}

	g := res.Grant
	actor := recipientActor(g)
	subject := g.Recipient.Subject()
	if !g.AccessLevel.Permits(req.Action) {
		if err := s.recordDenial(ctx, g.TenantID, g.DocumentID, actor, subject, "access level "+string(g.AccessLevel)+" does not permit "+string(req.Action), g.ID, nil); err != nil {
			return nil, err
		}
		d := &gate.Decision{DenialCode: gate.DenialInsufficient, DenialReason: "this link does not permit " + string(req.Action)}
		return d, nil
	}

	d, err := s.check(ctx, g.TenantID, g.DocumentID, actor, subject)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		return d, nil
	}

	updated, err := s.grants.RecordAccess(ctx, g)
	if dErrors.HasCode(err, dErrors.CodeTokenInvalid) {
		return deniedToken(string(grant.ReasonInactive)), nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.recordRead(ctx, d.Document, req.Action, actor, subject, &updated.ID); err != nil {
		return nil, err
	}
	d.Grant = updated
	return d, nil
}

// CheckShareable refuses to share documents that are missing or revoked.
func (s *Service) CheckShareable(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) error {
	if _, err := s.loadDocument(ctx, tenantID, documentID); err != nil {
		return err
	}
	marker, err := s.revocations.Lookup(ctx, tenantID, documentID)
	if err != nil {
		return err
	}
	if marker != nil {
		return dErrors.New(dErrors.CodeConflict, "revoked documents cannot be shared")
	}
	return nil
}

// check runs the document checks and records denials.
func (s *Service) check(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, actor id.Actor, subject id.Subject) (*gate.Decision, error) {
	doc, err := s.loadDocument(ctx, tenantID, documentID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return &gate.Decision{DenialCode: gate.DenialNotFound, DenialReason: "document not found"}, nil
	}
	if err != nil {
		return nil, err
	}

	marker, err := s.revocations.Lookup(ctx, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	if marker != nil {
		revID := marker.RevocationID
		if err := s.recordDenial(ctx, tenantID, documentID, actor, subject, "revoked: "+marker.Reason.String(), id.GrantID{}, &revID); err != nil {
			return nil, err
		}
		return &gate.Decision{
			DenialCode:   gate.DenialRevoked,
			DenialReason: "this document has been revoked: " + marker.Reason.RecipientMessage(),
			RevocationID: &revID,
			Revocation:   marker.Reason,
		}, nil
	}

	if doc.IsExpired(requestcontext.Now(ctx)) {
		if err := s.recordDenial(ctx, tenantID, documentID, actor, subject, "expired", id.GrantID{}, nil); err != nil {
			return nil, err
		}
		return &gate.Decision{DenialCode: gate.DenialExpired, DenialReason: "document access expired"}, nil
	}
	return &gate.Decision{Allowed: true, Document: doc}, nil
}

func (s *Service) loadDocument(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID) (*document.Document, error) {
	doc, err := s.documents.Get(ctx, tenantID, documentID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "failed to load document")
	}
	return doc, nil
}

func (s *Service) recordDenial(ctx context.Context, tenantID id.TenantID, documentID id.DocumentID, actor id.Actor, subject id.Subject, reason string, grantID id.GrantID, revocationID *id.RevocationID) error {
	meta := audit.Metadata{GrantID: grantID}
	if revocationID != nil {
		meta.RevocationID = *revocationID
	}
	s.logger.InfoContext(ctx, "document access denied",
		"document_id", documentID.String(),
		"actor", actor.ID.String(),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	return s.auditor.Emit(ctx, audit.Event{
		TenantID:        tenantID,
		DocumentID:      documentID,
		Subject:         subject,
		Action:          audit.ActionAccessDenied,
		PerformedBy:     actor.ID,
		PerformedByRole: actor.Role,
		Reason:          reason,
		Metadata:        meta,
	})
}

func (s *Service) recordRead(ctx context.Context, doc *document.Document, action document.Action, actor id.Actor, subject id.Subject, grantID *id.GrantID) error {
	event := audit.Event{
		TenantID:        doc.TenantID,
		DocumentID:      doc.ID,
		Subject:         subject,
		Action:          audit.ActionViewed,
		PerformedBy:     actor.ID,
		PerformedByRole: actor.Role,
	}
	if action == document.ActionDownload {
		event.Action = audit.ActionDownloaded
	}
	if grantID != nil {
		event.Metadata.GrantID = *grantID
	}
	return s.auditor.Emit(ctx, event)
}

func (s *Service) count(path string, d *gate.Decision) {
	if s.metrics == nil {
		return
	}
	outcome := "allowed"
	if !d.Allowed {
		outcome = string(d.DenialCode)
	}
	s.metrics.IncDecision(path, outcome)
}

// recipientActor attributes share-link reads to the recipient; recipients
// hold no staff role.
func recipientActor(g *grant.Grant) id.Actor {
	return id.Actor{ID: g.Recipient.Actor()}
}

func deniedToken(reason string) *gate.Decision {
	return &gate.Decision{DenialCode: gate.DenialTokenInvalid, DenialReason: reason}
}
