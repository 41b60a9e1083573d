// Package sharing holds share-link steps: issuing grants, opening links and
// share-link throttling.
package sharing

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	id "docvault/pkg/domain"
)

const defaultClientIP = "203.0.113.10"

// TestContext is the part of the scenario context these steps use.
type TestContext interface {
	TenantID() id.TenantID
	DocumentID() id.DocumentID
	AsStaff(method, path string, role id.Role, body any) error
	Anonymous(path, clientIP string) error
	LimitShareLinks(requests int, window time.Duration) error
	LastStatus() int
	LastBody() []byte
	Field(name string) (any, error)
	Remember(key, value string)
	Recall(key string) (string, error)
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	s := &sharingSteps{tc: tc}
	ctx.Step(`^share links are limited to (\d+) requests per minute$`, s.limitShareLinks)
	ctx.Step(`^the hr user shares the document with an applicant at "(view|download)" level$`, s.share)
	ctx.Step(`^the applicant opens the share link$`, s.open)
	ctx.Step(`^the applicant opens the share link from "([^"]*)"$`, s.openFrom)
	ctx.Step(`^the applicant downloads through the share link$`, s.download)
	ctx.Step(`^the applicant opens the share link (\d+) times$`, s.openTimes)
	ctx.Step(`^the share link should report (\d+) access(?:es)?$`, s.accessCount)
}

type sharingSteps struct {
	tc TestContext
}

func (s *sharingSteps) limitShareLinks(_ context.Context, requests int) error {
	return s.tc.LimitShareLinks(requests, time.Minute)
}

func (s *sharingSteps) share(_ context.Context, level string) error {
	path := fmt.Sprintf("/documents/%s/grants", s.tc.DocumentID())
	body := map[string]string{
		"recipient_type": "applicant",
		"recipient_id":   uuid.NewString(),
		"access_level":   level,
	}
	if err := s.tc.AsStaff(http.MethodPost, path, id.RoleHR, body); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return fmt.Errorf("issuing the grant returned %d: %s", s.tc.LastStatus(), s.tc.LastBody())
	}
	token, err := s.tc.Field("token")
	if err != nil {
		return err
	}
	s.tc.Remember("token", fmt.Sprint(token))
	return nil
}

func (s *sharingSteps) link(action string) (string, error) {
	token, err := s.tc.Recall("token")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/share/%s/%s?action=%s", s.tc.TenantID(), token, action), nil
}

func (s *sharingSteps) open(ctx context.Context) error {
	return s.openFrom(ctx, defaultClientIP)
}

func (s *sharingSteps) openFrom(_ context.Context, clientIP string) error {
	path, err := s.link("view")
	if err != nil {
		return err
	}
	return s.tc.Anonymous(path, clientIP)
}

func (s *sharingSteps) download(_ context.Context) error {
	path, err := s.link("download")
	if err != nil {
		return err
	}
	return s.tc.Anonymous(path, defaultClientIP)
}

func (s *sharingSteps) openTimes(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		if err := s.open(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *sharingSteps) accessCount(_ context.Context, want int) error {
	v, err := s.tc.Field("access_count")
	if err != nil {
		return err
	}
	if n, ok := v.(float64); !ok || int(n) != want {
		return fmt.Errorf("expected access count %d, got %v", want, v)
	}
	return nil
}
