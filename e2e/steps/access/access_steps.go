// Package access holds staff document-access and audit-trail steps.
package access

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cucumber/godog"

	id "docvault/pkg/domain"
)

// TestContext is the part of the scenario context these steps use.
type TestContext interface {
	SeedDocument(docType string) error
	DocumentID() id.DocumentID
	AsStaff(method, path string, role id.Role, body any) error
	LastStatus() int
	LastBody() []byte
	Field(name string) (any, error)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &accessSteps{tc: tc}
	ctx.Step(`^an assigned "([^"]*)" document$`, s.assignedDocument)
	ctx.Step(`^the (\w+) user (views|downloads) the document$`, s.staffAccess)
	ctx.Step(`^the response status should be (\d+)$`, s.statusShouldBe)
	ctx.Step(`^the response error should be "([^"]*)"$`, s.errorShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.fieldShouldBe)
	ctx.Step(`^the audit trail should record (\d+) "([^"]*)" events?$`, s.auditTrailRecords)
}

type accessSteps struct {
	tc TestContext
}

func (s *accessSteps) assignedDocument(_ context.Context, docType string) error {
	return s.tc.SeedDocument(docType)
}

func (s *accessSteps) staffAccess(_ context.Context, role, verb string) error {
	action := "view"
	if verb == "downloads" {
		action = "download"
	}
	path := fmt.Sprintf("/documents/%s/access?action=%s", s.tc.DocumentID(), action)
	return s.tc.AsStaff(http.MethodGet, path, id.Role(role), nil)
}

func (s *accessSteps) statusShouldBe(_ context.Context, want int) error {
	if got := s.tc.LastStatus(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.LastBody())
	}
	return nil
}

func (s *accessSteps) errorShouldBe(_ context.Context, want string) error {
	return s.fieldShouldBe(nil, "error", want)
}

func (s *accessSteps) fieldShouldBe(_ context.Context, name, want string) error {
	v, err := s.tc.Field(name)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != want {
		return fmt.Errorf("expected %s %q, got %q", name, want, got)
	}
	return nil
}

func (s *accessSteps) auditTrailRecords(_ context.Context, want int, action string) error {
	path := fmt.Sprintf("/documents/%s/audit-trail?action=%s", s.tc.DocumentID(), action)
	if err := s.tc.AsStaff(http.MethodGet, path, id.RoleHR, nil); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return fmt.Errorf("audit trail returned %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	count, err := s.tc.Field("count")
	if err != nil {
		return err
	}
	if n, ok := count.(float64); !ok || int(n) != want {
		return fmt.Errorf("expected %d %q events, got %v", want, action, count)
	}
	return nil
}
