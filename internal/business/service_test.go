package business

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certiva/internal/authz"
	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
	"certiva/pkg/platform/audit"
	auditmemory "certiva/pkg/platform/audit/store/memory"
	"certiva/pkg/requestcontext"
)

type BusinessServiceSuite struct {
	suite.Suite

	auditStore *auditmemory.Store
	service    *Service

	now time.Time
}

func TestBusinessServiceSuite(t *testing.T) {
	suite.Run(t, new(BusinessServiceSuite))
}

func (s *BusinessServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.auditStore = auditmemory.New()
	s.service = NewService(NewInMemoryStore(), audit.NewRecorder(s.auditStore, nil, logger))
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func (s *BusinessServiceSuite) ctxAs(actor id.Actor) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithTime(ctx, s.now)
}

func hrActor() id.Actor {
	return id.Actor{UserID: id.NewUserID(), Groups: []string{authz.GroupBusinessHR}}
}

func governmentActor() id.Actor {
	return id.Actor{UserID: id.NewUserID(), Groups: []string{authz.GroupGovernment}}
}

func (s *BusinessServiceSuite) register(ctx context.Context, name, regNo string) (*Business, error) {
	return s.service.Register(ctx, RegisterParams{Name: name, RegistrationNumber: regNo})
}

func (s *BusinessServiceSuite) TestRegister() {
	s.Run("any authenticated user may register and becomes first staff", func() {
		hr := hrActor()
		biz, err := s.service.Register(s.ctxAs(hr), RegisterParams{
			Name:               "Acme Ltd",
			RegistrationNumber: "REG100",
			ContactEmail:       "hr@acme.test",
			Address:            "  12 Harbour Road, Mombasa  ",
		})
		s.Require().NoError(err)
		s.False(biz.Verified)
		s.Equal(hr.UserID, biz.RegisteredBy)
		s.True(biz.IsStaff(hr.UserID))
		s.Equal("12 Harbour Road, Mombasa", biz.Address)

		stored, err := s.service.Get(s.ctxAs(hr), biz.ID)
		s.Require().NoError(err)
		s.Equal("12 Harbour Road, Mombasa", stored.Address)

		events, err := s.auditStore.ListRecent(context.Background(), 1)
		s.Require().NoError(err)
		s.Equal(audit.ActionBusinessRegistered, events[0].Action)
	})

	s.Run("duplicate registration number conflicts", func() {
		_, err := s.register(s.ctxAs(hrActor()), "First", "REG101")
		s.Require().NoError(err)
		_, err = s.register(s.ctxAs(hrActor()), "Second", "reg101")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("anonymous callers are rejected", func() {
		_, err := s.register(requestcontext.WithTime(context.Background(), s.now), "Ghost", "REG102")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *BusinessServiceSuite) TestSetVerified() {
	hr := hrActor()
	biz, err := s.register(s.ctxAs(hr), "Acme Ltd", "REG200")
	s.Require().NoError(err)

	s.Run("verify records who and when", func() {
		gov := governmentActor()
		verified, err := s.service.SetVerified(s.ctxAs(gov), biz.ID, true)
		s.Require().NoError(err)
		s.True(verified.Verified)
		s.Require().NotNil(verified.VerifiedBy)
		s.Equal(gov.UserID, *verified.VerifiedBy)
		s.Require().NotNil(verified.VerifiedAt)
		s.Equal(s.now, *verified.VerifiedAt)

		events, err := s.auditStore.ListRecent(context.Background(), 1)
		s.Require().NoError(err)
		s.Equal(audit.ActionBusinessVerified, events[0].Action)
	})

	s.Run("unverify clears both", func() {
		unverified, err := s.service.SetVerified(s.ctxAs(governmentActor()), biz.ID, false)
		s.Require().NoError(err)
		s.False(unverified.Verified)
		s.Nil(unverified.VerifiedBy)
		s.Nil(unverified.VerifiedAt)

		events, err := s.auditStore.ListRecent(context.Background(), 1)
		s.Require().NoError(err)
		s.Equal(audit.ActionBusinessUnverified, events[0].Action)
	})

	s.Run("staff may not verify their own business", func() {
		_, err := s.service.SetVerified(s.ctxAs(hr), biz.ID, true)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *BusinessServiceSuite) TestVisibility() {
	hr := hrActor()
	_, err := s.register(s.ctxAs(hr), "Mine", "REG300")
	s.Require().NoError(err)
	_, err = s.register(s.ctxAs(hrActor()), "Theirs", "REG301")
	s.Require().NoError(err)

	s.Run("ListMine returns only staffed businesses", func() {
		mine, err := s.service.ListMine(s.ctxAs(hr))
		s.Require().NoError(err)
		s.Require().Len(mine, 1)
		s.Equal("Mine", mine[0].Name)
	})

	s.Run("List requires the government role", func() {
		_, err := s.service.List(s.ctxAs(hr))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		all, err := s.service.List(s.ctxAs(governmentActor()))
		s.Require().NoError(err)
		s.Len(all, 2)
	})
}

func (s *BusinessServiceSuite) TestSetStaff() {
	hr := hrActor()
	colleague := id.NewUserID()
	biz, err := s.register(s.ctxAs(hr), "Acme Ltd", "REG400")
	s.Require().NoError(err)

	s.Run("existing staff may extend the staff set", func() {
		updated, err := s.service.SetStaff(s.ctxAs(hr), biz.ID, []id.UserID{hr.UserID, colleague})
		s.Require().NoError(err)
		s.True(updated.IsStaff(colleague))
	})

	s.Run("outsiders may not", func() {
		_, err := s.service.SetStaff(s.ctxAs(hrActor()), biz.ID, []id.UserID{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
