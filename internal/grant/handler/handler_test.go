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
	"docvault/internal/grant/service"
	"docvault/internal/grant/store"
	id "docvault/pkg/domain"
	"docvault/pkg/testutil"
)

type shareable struct{}

func (shareable) CheckShareable(context.Context, id.TenantID, id.DocumentID) error { return nil }

type HandlerSuite struct {
	suite.Suite
	router   chi.Router
	tenantID id.TenantID
	docID    id.DocumentID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	auditor, err := auditservice.New(auditstore.NewInMemory())
	s.Require().NoError(err)
	svc, err := service.New(store.NewInMemory(), shareable{}, auditor)
	s.Require().NoError(err)

	h := New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
	h.RegisterPublic(s.router)
	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
}

func (s *HandlerSuite) asHR(req *http.Request) *http.Request {
	return testutil.WithActor(req, s.tenantID, "hr-1", id.RoleHR)
}

func (s *HandlerSuite) issue(body map[string]any) *GrantResponse {
	req := s.asHR(testutil.NewJSONRequest(s.T(), http.MethodPost, "/documents/"+s.docID.String()+"/grants", body))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[GrantResponse](s.T(), rr)
}

func (s *HandlerSuite) TestIssueAndValidate() {
	g := s.issue(map[string]any{"recipient_type": "applicant", "recipient_id": uuid.NewString()})
	s.Equal("view", g.AccessLevel)
	s.NotEmpty(g.Token)
	s.True(g.IsActive)

	s.Run("public validation counts the access", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/share/"+s.tenantID.String()+"/"+g.Token+"/validate"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[ValidationResponse](s.T(), rr)
		s.True(resp.Valid)
		s.Equal(s.docID.String(), resp.DocumentID)
	})

	s.Run("list hides tokens", func() {
		rr := testutil.DoRequest(s.router, s.asHR(testutil.NewRequest(s.T(), http.MethodGet, "/documents/"+s.docID.String()+"/grants")))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[GrantListResponse](s.T(), rr)
		s.Require().Len(resp.Grants, 1)
		s.Empty(resp.Grants[0].Token)
		s.EqualValues(1, resp.Grants[0].AccessCount)
	})

	s.Run("deactivate then validate reports inactive", func() {
		req := s.asHR(testutil.NewJSONRequest(s.T(), http.MethodPost, "/grants/"+g.ID+"/deactivate", map[string]any{"reason": "wrong recipient"}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "is_active", false)

		rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/share/"+s.tenantID.String()+"/"+g.Token+"/validate"))
		resp := testutil.UnmarshalResponse[ValidationResponse](s.T(), rr)
		s.False(resp.Valid)
		s.Equal("inactive", resp.Reason)
		s.Empty(resp.DocumentID)
	})
}

func (s *HandlerSuite) TestIssueValidation() {
	cases := []struct {
		name string
		body map[string]any
	}{
		{"no recipient", map[string]any{"access_level": "view"}},
		{"unknown recipient type", map[string]any{"recipient_type": "vendor", "recipient_id": uuid.NewString()}},
		{"unknown level", map[string]any{"recipient_type": "user", "recipient_id": uuid.NewString(), "access_level": "owner"}},
		{"past expiry", map[string]any{"recipient_type": "user", "recipient_id": uuid.NewString(), "expires_at": "2001-01-01T00:00:00Z"}},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			req := s.asHR(testutil.NewJSONRequest(s.T(), http.MethodPost, "/documents/"+s.docID.String()+"/grants", tc.body))
			rr := testutil.DoRequest(s.router, req)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		})
	}
}

func (s *HandlerSuite) TestValidateUnknownTenantLink() {
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/share/garbage/sometoken/validate"))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	testutil.AssertJSONContains(s.T(), rr, "reason", "not_found")
}

func (s *HandlerSuite) TestInternRoleCannotIssue() {
	req := testutil.WithActor(
		testutil.NewJSONRequest(s.T(), http.MethodPost, "/documents/"+s.docID.String()+"/grants",
			map[string]any{"recipient_type": "user", "recipient_id": uuid.NewString()}),
		s.tenantID, "intern-1", id.RoleIntern)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}
