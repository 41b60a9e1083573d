package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"docvault/internal/audit"
	"docvault/internal/audit/service/mocks"
	"docvault/internal/audit/store"
	"docvault/internal/platform/config"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	store    *store.InMemory
	service  *Service
	tenantID id.TenantID
	docID    id.DocumentID
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	svc, err := New(s.store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	s.service = svc
	s.tenantID = id.TenantID(uuid.New())
	s.docID = id.DocumentID(uuid.New())
	s.now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) ctx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	return requestcontext.WithClientMetadata(ctx, "203.0.113.7",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
}

func (s *ServiceSuite) event(action audit.Action) audit.Event {
	return audit.Event{
		TenantID:        s.tenantID,
		DocumentID:      s.docID,
		Action:          action,
		PerformedBy:     "hr-1",
		PerformedByRole: id.RoleHR,
	}
}

func (s *ServiceSuite) TestNew() {
	_, err := New(nil)
	s.Require().Error(err)
	s.Contains(err.Error(), "audit store is required")
}

func (s *ServiceSuite) TestRecord() {
	s.Run("assigns id and server time, fills client metadata", func() {
		e := s.event(audit.ActionViewed)
		e.Timestamp = time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)

		got, err := s.service.Record(s.ctx(), e)
		s.Require().NoError(err)
		s.False(got.ID.IsNil())
		s.Equal(s.now, got.Timestamp)
		s.Equal("203.0.113.7", got.IPAddress)
		s.Equal("req-42", got.RequestID)
		s.True(strings.HasPrefix(got.Metadata.Browser, "Chrome"))
		s.NotEmpty(got.Metadata.OS)
	})

	s.Run("reason is truncated to the limit", func() {
		e := s.event(audit.ActionRevoked)
		e.Reason = strings.Repeat("é", audit.MaxReasonLength+20)

		got, err := s.service.Record(s.ctx(), e)
		s.Require().NoError(err)
		s.Equal(audit.MaxReasonLength, len([]rune(got.Reason)))
	})

	s.Run("missing performer is rejected", func() {
		e := s.event(audit.ActionViewed)
		e.PerformedBy = ""
		_, err := s.service.Record(s.ctx(), e)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown action is rejected", func() {
		_, err := s.service.Record(s.ctx(), s.event(audit.Action("printed")))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestEmitFailureModes() {
	storeErr := errors.New("disk full")

	s.Run("best effort swallows store failure", func() {
		ctrl := gomock.NewController(s.T())
		mockStore := mocks.NewMockStore(ctrl)
		mockStore.EXPECT().Append(gomock.Any(), gomock.Any()).Return(storeErr)

		svc, err := New(mockStore, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		s.Require().NoError(err)
		s.NoError(svc.Emit(s.ctx(), s.event(audit.ActionRevoked)))
	})

	s.Run("fail closed surfaces persistence error", func() {
		ctrl := gomock.NewController(s.T())
		mockStore := mocks.NewMockStore(ctrl)
		mockStore.EXPECT().Append(gomock.Any(), gomock.Any()).Return(storeErr)

		svc, err := New(mockStore,
			WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			WithFailureMode(config.AuditFailClosed),
		)
		s.Require().NoError(err)
		err = svc.Emit(s.ctx(), s.event(audit.ActionRevoked))
		s.True(dErrors.HasCode(err, dErrors.CodePersistence))
		s.ErrorIs(err, storeErr)
	})
}

func (s *ServiceSuite) TestQuery() {
	for i, action := range []audit.Action{audit.ActionCreated, audit.ActionViewed, audit.ActionRevoked} {
		ctx := requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(i)*time.Minute))
		_, err := s.service.Record(ctx, s.event(action))
		s.Require().NoError(err)
	}
	other := s.event(audit.ActionViewed)
	other.TenantID = id.TenantID(uuid.New())
	_, err := s.service.Record(context.Background(), other)
	s.Require().NoError(err)

	s.Run("newest first within tenant", func() {
		events, err := s.service.Query(context.Background(), s.tenantID, audit.Query{DocumentID: s.docID})
		s.Require().NoError(err)
		s.Require().Len(events, 3)
		s.Equal(audit.ActionRevoked, events[0].Action)
		s.Equal(audit.ActionCreated, events[2].Action)
	})

	s.Run("action filter and limit", func() {
		events, err := s.service.Query(context.Background(), s.tenantID, audit.Query{
			Actions: []audit.Action{audit.ActionViewed, audit.ActionCreated},
			Limit:   1,
		})
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionViewed, events[0].Action)
	})

	s.Run("inverted window is rejected", func() {
		_, err := s.service.Query(context.Background(), s.tenantID, audit.Query{
			Since: s.now,
			Until: s.now.Add(-time.Hour),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("store failure is internal", func() {
		ctrl := gomock.NewController(s.T())
		mockStore := mocks.NewMockStore(ctrl)
		mockStore.EXPECT().List(gomock.Any(), s.tenantID, gomock.Any()).Return(nil, errors.New("timeout"))
		svc, err := New(mockStore)
		s.Require().NoError(err)
		_, err = svc.Query(context.Background(), s.tenantID, audit.Query{})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
