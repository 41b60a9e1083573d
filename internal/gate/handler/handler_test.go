package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	auditservice "docvault/internal/audit/service"
	auditstore "docvault/internal/audit/store"
	"docvault/internal/document"
	docstore "docvault/internal/document/store"
	gateservice "docvault/internal/gate/service"
	"docvault/internal/grant"
	grantservice "docvault/internal/grant/service"
	grantstore "docvault/internal/grant/store"
	"docvault/internal/revocation"
	"docvault/internal/revocation/cache"
	revservice "docvault/internal/revocation/service"
	revstore "docvault/internal/revocation/store"
	id "docvault/pkg/domain"
	"docvault/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router      chi.Router
	documents   *docstore.InMemory
	grants      *grantservice.Service
	revocations *revservice.Service
	tenantID    id.TenantID
	docID       id.DocumentID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditor, err := auditservice.New(auditstore.NewInMemory())
	s.Require().NoError(err)
	s.documents = docstore.NewInMemory()
	ledger := revstore.NewInMemory()
	c := cache.NewInMemory(time.Minute)

	gate, err := gateservice.New(s.documents, revservice.NewLookup(ledger, c, logger, nil), auditor, gateservice.WithLogger(logger))
	s.Require().NoError(err)
	s.grants, err = grantservice.New(grantstore.NewInMemory(), gate, auditor, grantservice.WithLogger(logger))
	s.Require().NoError(err)
	gate.SetGrants(s.grants)
	s.revocations, err = revservice.New(ledger, s.documents, s.grants, auditor, revservice.WithCache(c), revservice.WithLogger(logger))
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	h := New(gate, logger)
	h.Register(s.router)
	h.RegisterPublic(s.router)

	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
	s.Require().NoError(s.documents.Put(context.Background(), &document.Document{
		TenantID: s.tenantID,
		ID:       s.docID,
		Type:     "offer_letter",
		Status:   document.StatusAssigned,
		FilePath: "/letters/offer.pdf",
	}))
}

func (s *HandlerSuite) staff(path string) *http.Request {
	return testutil.WithActor(testutil.NewRequest(s.T(), http.MethodGet, path), s.tenantID, "emp-1", id.RoleEmployee)
}

func (s *HandlerSuite) issue(level grant.AccessLevel) *grant.Grant {
	g, err := s.grants.Issue(context.Background(), grant.IssueRequest{
		TenantID:    s.tenantID,
		DocumentID:  s.docID,
		Recipient:   id.ApplicantRecipient(id.ApplicantID(uuid.New())),
		AccessLevel: level,
		Actor:       id.Actor{ID: "hr-1", Role: id.RoleHR},
	})
	s.Require().NoError(err)
	return g
}

func (s *HandlerSuite) revoke() *revocation.Record {
	rec, err := s.revocations.Revoke(context.Background(), revocation.RevokeRequest{
		TenantID:   s.tenantID,
		DocumentID: s.docID,
		Actor:      id.Actor{ID: "hr-1", Role: id.RoleHR},
		Reason:     revocation.ReasonCandidateRejected,
	})
	s.Require().NoError(err)
	return rec
}

func (s *HandlerSuite) TestStaffAccess() {
	s.Run("allowed", func() {
		rr := testutil.DoRequest(s.router, s.staff("/documents/"+s.docID.String()+"/access?action=download"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[AccessResponse](s.T(), rr)
		s.True(resp.Allowed)
		s.Equal("download", resp.Action)
		s.Equal("/letters/offer.pdf", resp.FilePath)
	})

	s.Run("unauthenticated", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/documents/"+s.docID.String()+"/access"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("bad action", func() {
		rr := testutil.DoRequest(s.router, s.staff("/documents/"+s.docID.String()+"/access?action=print"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("unknown document", func() {
		rr := testutil.DoRequest(s.router, s.staff("/documents/"+uuid.NewString()+"/access"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})

	s.Run("revoked", func() {
		rec := s.revoke()
		rr := testutil.DoRequest(s.router, s.staff("/documents/"+s.docID.String()+"/access"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "revoked")
		testutil.AssertJSONContains(s.T(), rr, "revocation_id", rec.ID.String())
		testutil.AssertJSONContains(s.T(), rr, "error_description", "this document has been revoked: Position has been filled")
	})
}

func (s *HandlerSuite) TestStaffAccessExpired() {
	past := time.Now().Add(-time.Hour)
	s.Require().NoError(s.documents.Put(context.Background(), &document.Document{
		TenantID: s.tenantID, ID: s.docID, Status: document.StatusAssigned, ExpiresAt: &past,
	}))
	rr := testutil.DoRequest(s.router, s.staff("/documents/"+s.docID.String()+"/access"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusGone, "expired")
}

func (s *HandlerSuite) TestShareLink() {
	g := s.issue(grant.LevelView)
	link := "/share/" + s.tenantID.String() + "/" + g.Token

	s.Run("view", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, link))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[AccessResponse](s.T(), rr)
		s.Equal(g.ID.String(), resp.GrantID)
		s.Require().NotNil(resp.AccessCount)
		s.EqualValues(1, *resp.AccessCount)
	})

	s.Run("download needs a download link", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, link+"?action=download"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "insufficient_access")
	})

	s.Run("unknown token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/share/"+s.tenantID.String()+"/nope"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "token_invalid")
	})

	s.Run("malformed tenant reads as unknown token", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/share/not-a-tenant/"+g.Token))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "token_invalid")
	})

	s.Run("revocation deactivates the link", func() {
		s.revoke()
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, link))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "token_invalid")
		testutil.AssertJSONContains(s.T(), rr, "error_description", "inactive")
	})
}
