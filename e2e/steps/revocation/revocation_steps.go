// Package revocation holds revoke, reinstate and status steps.
package revocation

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"

	id "docvault/pkg/domain"
)

// TestContext is the part of the scenario context these steps use.
type TestContext interface {
	DocumentID() id.DocumentID
	AsStaff(method, path string, role id.Role, body any) error
	LastStatus() int
	LastBody() []byte
	Field(name string) (any, error)
	Remember(key, value string)
	Recall(key string) (string, error)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &revocationSteps{tc: tc}
	ctx.Step(`^the (\w+) user revokes the document because "([^"]*)"$`, s.revoke)
	ctx.Step(`^the (\w+) user reinstates the document saying "([^"]*)"$`, s.reinstate)
	ctx.Step(`^the document status should be "([^"]*)"$`, s.statusShouldBe)
	ctx.Step(`^the document should not be revoked$`, s.notRevoked)
}

type revocationSteps struct {
	tc TestContext
}

func (s *revocationSteps) revoke(_ context.Context, role, reason string) error {
	path := fmt.Sprintf("/documents/%s/revoke", s.tc.DocumentID())
	if err := s.tc.AsStaff(http.MethodPost, path, id.Role(role), map[string]string{"reason": reason}); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return nil
	}
	rid, err := s.tc.Field("id")
	if err != nil {
		return err
	}
	s.tc.Remember("revocation_id", fmt.Sprint(rid))
	return nil
}

func (s *revocationSteps) reinstate(_ context.Context, role, reason string) error {
	rid, err := s.tc.Recall("revocation_id")
	if err != nil {
		return err
	}
	return s.tc.AsStaff(http.MethodPost, "/revocations/"+rid+"/reinstate", id.Role(role), map[string]string{"reason": reason})
}

func (s *revocationSteps) status() (map[string]any, error) {
	path := fmt.Sprintf("/documents/%s/status", s.tc.DocumentID())
	if err := s.tc.AsStaff(http.MethodGet, path, id.RoleHR, nil); err != nil {
		return nil, err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return nil, fmt.Errorf("status returned %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	effective, err := s.tc.Field("effective_status")
	if err != nil {
		return nil, err
	}
	revoked, err := s.tc.Field("is_revoked")
	if err != nil {
		return nil, err
	}
	return map[string]any{"effective_status": effective, "is_revoked": revoked}, nil
}

func (s *revocationSteps) statusShouldBe(_ context.Context, want string) error {
	st, err := s.status()
	if err != nil {
		return err
	}
	if got := fmt.Sprint(st["effective_status"]); got != want {
		return fmt.Errorf("expected effective status %q, got %q", want, got)
	}
	return nil
}

func (s *revocationSteps) notRevoked(_ context.Context) error {
	st, err := s.status()
	if err != nil {
		return err
	}
	if st["is_revoked"] != false {
		return fmt.Errorf("document is still revoked")
	}
	return nil
}
