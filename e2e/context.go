// Package e2e runs the Gherkin acceptance features against a fully wired
// in-memory docvault behind an httptest server.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	audithandler "docvault/internal/audit/handler"
	auditservice "docvault/internal/audit/service"
	auditstore "docvault/internal/audit/store"
	"docvault/internal/document"
	docstore "docvault/internal/document/store"
	gatehandler "docvault/internal/gate/handler"
	gateservice "docvault/internal/gate/service"
	granthandler "docvault/internal/grant/handler"
	grantservice "docvault/internal/grant/service"
	grantstore "docvault/internal/grant/store"
	"docvault/internal/identity"
	"docvault/internal/platform/metrics"
	"docvault/internal/ratelimit"
	ratelimitmw "docvault/internal/ratelimit/middleware"
	ratelimitservice "docvault/internal/ratelimit/service"
	ratelimitstore "docvault/internal/ratelimit/store"
	"docvault/internal/revocation/cache"
	revocationhandler "docvault/internal/revocation/handler"
	revocationservice "docvault/internal/revocation/service"
	revocationstore "docvault/internal/revocation/store"
	httptransport "docvault/internal/transport/http"
	id "docvault/pkg/domain"
)

const signingKey = "e2e-signing-key"

// TestContext is the per-scenario state shared by every step package.
type TestContext struct {
	server    *httptest.Server
	jwt       *identity.JWTService
	documents *docstore.InMemory
	logger    *slog.Logger

	shareLimit ratelimit.Limit
	tenantID   id.TenantID
	docID      id.DocumentID
	remembered map[string]string

	lastStatus int
	lastBody   []byte
}

func newTestContext() *TestContext {
	return &TestContext{
		jwt:        identity.NewJWTService(signingKey, "docvault"),
		documents:  docstore.NewInMemory(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		shareLimit: ratelimit.Limit{Requests: 1000, Window: time.Minute},
		tenantID:   id.TenantID(uuid.New()),
		remembered: map[string]string{},
	}
}

// start wires the stack on first use so that Given steps can still adjust
// settings such as the share-link limit.
func (tc *TestContext) start() error {
	if tc.server != nil {
		return nil
	}
	auditor, err := auditservice.New(auditstore.NewInMemory(), auditservice.WithLogger(tc.logger))
	if err != nil {
		return err
	}
	ledger := revocationstore.NewInMemory()
	revCache := cache.NewInMemory(time.Minute)
	gate, err := gateservice.New(tc.documents, revocationservice.NewLookup(ledger, revCache, tc.logger, nil), auditor,
		gateservice.WithLogger(tc.logger))
	if err != nil {
		return err
	}
	grants, err := grantservice.New(grantstore.NewInMemory(), gate, auditor, grantservice.WithLogger(tc.logger))
	if err != nil {
		return err
	}
	gate.SetGrants(grants)
	revocations, err := revocationservice.New(ledger, tc.documents, grants, auditor,
		revocationservice.WithLogger(tc.logger),
		revocationservice.WithCache(revCache),
		revocationservice.WithTx(revocationservice.NewShardedTx(time.Second)),
	)
	if err != nil {
		return err
	}

	limiter := ratelimitservice.New(nil, ratelimitstore.NewInMemory(), ratelimitservice.WithLogger(tc.logger))
	reg := prometheus.NewRegistry()
	grantHandler := granthandler.New(grants, tc.logger)
	gateHandler := gatehandler.New(gate, tc.logger)
	router := httptransport.NewRouter(httptransport.Config{
		Logger:         tc.logger,
		Metrics:        metrics.NewWithRegisterer(reg),
		Gatherer:       reg,
		Validator:      tc.jwt,
		RequestTimeout: 5 * time.Second,
		Staff: []httptransport.StaffRoutes{
			revocationhandler.New(revocations, tc.logger),
			grantHandler,
			gateHandler,
			audithandler.New(auditor, tc.logger),
		},
		Public: []httptransport.PublicRoutes{grantHandler, gateHandler},
		PublicMiddleware: []func(http.Handler) http.Handler{
			ratelimitmw.New(limiter, tc.shareLimit, tc.logger).ShareLinks,
		},
	})
	tc.server = httptest.NewServer(router)
	return nil
}

func (tc *TestContext) close() {
	if tc.server != nil {
		tc.server.Close()
	}
}

// LimitShareLinks caps public share-link requests per client IP.
func (tc *TestContext) LimitShareLinks(requests int, window time.Duration) error {
	if tc.server != nil {
		return fmt.Errorf("share-link limit must be set before the first request")
	}
	tc.shareLimit = ratelimit.Limit{Requests: requests, Window: window}
	return nil
}

// SeedDocument stores an assigned document for the scenario's tenant.
func (tc *TestContext) SeedDocument(docType string) error {
	tc.docID = id.DocumentID(uuid.New())
	now := time.Now()
	return tc.documents.Put(context.Background(), &document.Document{
		TenantID:    tc.tenantID,
		ID:          tc.docID,
		Type:        docType,
		Status:      document.StatusAssigned,
		FilePath:    "/documents/" + tc.docID.String() + ".pdf",
		GeneratedAt: &now,
	})
}

func (tc *TestContext) TenantID() id.TenantID     { return tc.tenantID }
func (tc *TestContext) DocumentID() id.DocumentID { return tc.docID }

func (tc *TestContext) Remember(key, value string) { tc.remembered[key] = value }

func (tc *TestContext) Recall(key string) (string, error) {
	v, ok := tc.remembered[key]
	if !ok {
		return "", fmt.Errorf("nothing remembered as %q", key)
	}
	return v, nil
}

// AsStaff sends an authenticated request with a short-lived token for role.
func (tc *TestContext) AsStaff(method, path string, role id.Role, body any) error {
	token, err := tc.jwt.GenerateAccessToken(string(role)+"-1", tc.tenantID, role, time.Minute)
	if err != nil {
		return err
	}
	return tc.do(method, path, body, map[string]string{"Authorization": "Bearer " + token})
}

// Anonymous sends an unauthenticated GET from the given client IP.
func (tc *TestContext) Anonymous(path, clientIP string) error {
	return tc.do(http.MethodGet, path, nil, map[string]string{"X-Forwarded-For": clientIP})
}

func (tc *TestContext) do(method, path string, body any, headers map[string]string) error {
	if err := tc.start(); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, tc.server.URL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.server.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) LastStatus() int   { return tc.lastStatus }
func (tc *TestContext) LastBody() []byte { return tc.lastBody }

// Field reads a top-level field of the last JSON response.
func (tc *TestContext) Field(name string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w: %s", err, tc.lastBody)
	}
	v, ok := body[name]
	if !ok {
		return nil, fmt.Errorf("response has no field %q: %s", name, tc.lastBody)
	}
	return v, nil
}
