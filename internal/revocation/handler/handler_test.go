package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	auditservice "docvault/internal/audit/service"
	auditstore "docvault/internal/audit/store"
	"docvault/internal/document"
	docstore "docvault/internal/document/store"
	grantservice "docvault/internal/grant/service"
	grantstore "docvault/internal/grant/store"
	"docvault/internal/revocation/service"
	"docvault/internal/revocation/store"
	id "docvault/pkg/domain"
	"docvault/pkg/testutil"
)

type shareable struct{}

func (shareable) CheckShareable(context.Context, id.TenantID, id.DocumentID) error { return nil }

type HandlerSuite struct {
	suite.Suite
	router    chi.Router
	documents *docstore.InMemory
	tenantID  id.TenantID
	docID     id.DocumentID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor, err := auditservice.New(auditstore.NewInMemory())
	s.Require().NoError(err)
	grants, err := grantservice.New(grantstore.NewInMemory(), shareable{}, auditor)
	s.Require().NoError(err)
	s.documents = docstore.NewInMemory()
	svc, err := service.New(store.NewInMemory(), s.documents, grants, auditor, service.WithLogger(logger))
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, logger).Register(s.router)
	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
	s.Require().NoError(s.documents.Put(context.Background(), &document.Document{
		TenantID: s.tenantID,
		ID:       s.docID,
		Status:   document.StatusViewed,
	}))
}

func (s *HandlerSuite) as(role id.Role, req *http.Request) *http.Request {
	return testutil.WithActor(req, s.tenantID, id.ActorID(string(role)+"-1"), role)
}

func (s *HandlerSuite) revoke(body map[string]any) *RevocationResponse {
	req := s.as(id.RoleHR, testutil.NewJSONRequest(s.T(), http.MethodPost, "/documents/"+s.docID.String()+"/revoke", body))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[RevocationResponse](s.T(), rr)
}

func (s *HandlerSuite) TestRevokeAndStatus() {
	rec := s.revoke(map[string]any{"reason": "candidate_rejected"})
	s.Equal("revoked", rec.Status)
	s.Equal("Position has been filled", rec.RecipientMessage)
	s.Equal("viewed", rec.Snapshot.Status)

	s.Run("status shows the revocation", func() {
		rr := testutil.DoRequest(s.router, s.as(id.RoleManager, testutil.NewRequest(s.T(), http.MethodGet, "/documents/"+s.docID.String()+"/status")))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[StatusResponse](s.T(), rr)
		s.True(resp.IsRevoked)
		s.Equal("revoked", resp.EffectiveStatus)
		s.Equal(rec.ID, resp.RevocationID)
		s.False(resp.CanReinstate)
	})

	s.Run("revoking again conflicts", func() {
		req := s.as(id.RoleAdmin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/documents/"+s.docID.String()+"/revoke", map[string]any{"reason": "process_error"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("hr cannot reinstate", func() {
		req := s.as(id.RoleHR, testutil.NewJSONRequest(s.T(), http.MethodPost, "/revocations/"+rec.ID+"/reinstate", map[string]any{"reason": "reopened"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("super-admin reinstates", func() {
		req := s.as(id.RoleSuperAdmin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/revocations/"+rec.ID+"/reinstate", map[string]any{"reason": "reopened"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[RevocationResponse](s.T(), rr)
		s.Equal("reinstated", resp.Status)
		s.Equal("reopened", resp.ReinstatedReason)

		doc, err := s.documents.Get(context.Background(), s.tenantID, s.docID)
		s.Require().NoError(err)
		s.Equal(document.StatusViewed, doc.Status)
	})

	s.Run("reinstating again is an invalid state", func() {
		req := s.as(id.RoleSuperAdmin, testutil.NewJSONRequest(s.T(), http.MethodPost, "/revocations/"+rec.ID+"/reinstate", map[string]any{"reason": "again"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "invalid_state")
	})

	s.Run("history keeps the reinstated record", func() {
		rr := testutil.DoRequest(s.router, s.as(id.RoleHR, testutil.NewRequest(s.T(), http.MethodGet, "/documents/"+s.docID.String()+"/revocation-history")))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[HistoryResponse](s.T(), rr)
		s.Require().Len(resp.Revocations, 1)
		s.Equal("reinstated", resp.Revocations[0].Status)
	})
}

func (s *HandlerSuite) TestRevokeValidation() {
	path := "/documents/" + s.docID.String() + "/revoke"
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing reason", map[string]any{}},
		{"unknown reason", map[string]any{"reason": "budget"}},
		{"other without details", map[string]any{"reason": "other"}},
		{"bad subject", map[string]any{"reason": "process_error", "subject_type": "contractor", "subject_id": uuid.NewString()}},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			rr := testutil.DoRequest(s.router, s.as(id.RoleHR, testutil.NewJSONRequest(s.T(), http.MethodPost, path, tc.body)))
			testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		})
	}
}

func (s *HandlerSuite) TestAccessControl() {
	s.Run("unauthenticated", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/documents/"+s.docID.String()+"/status"))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("employee cannot revoke", func() {
		req := s.as(id.RoleEmployee, testutil.NewJSONRequest(s.T(), http.MethodPost, "/documents/"+s.docID.String()+"/revoke", map[string]any{"reason": "process_error"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})

	s.Run("manager cannot read history", func() {
		rr := testutil.DoRequest(s.router, s.as(id.RoleManager, testutil.NewRequest(s.T(), http.MethodGet, "/documents/"+s.docID.String()+"/revocation-history")))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	})

	s.Run("unknown document", func() {
		rr := testutil.DoRequest(s.router, s.as(id.RoleHR, testutil.NewRequest(s.T(), http.MethodGet, "/documents/"+uuid.NewString()+"/status")))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}
