package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"certiva/internal/authz"
	"certiva/internal/business"
	"certiva/internal/institution"
	"certiva/internal/owner"
	"certiva/internal/verification"
	id "certiva/pkg/domain"
	"certiva/pkg/requestcontext"
)

type DashboardServiceSuite struct {
	suite.Suite

	owners     *owner.InMemoryStore
	insts      *institution.InMemoryStore
	businesses *business.InMemoryStore
	requests   *verification.InMemoryStore
	service    *Service

	instStaff id.UserID
	bizStaff  id.UserID

	now time.Time
}

func TestDashboardServiceSuite(t *testing.T) {
	suite.Run(t, new(DashboardServiceSuite))
}

func (s *DashboardServiceSuite) SetupTest() {
	s.owners = owner.NewInMemoryStore()
	s.insts = institution.NewInMemoryStore()
	s.businesses = business.NewInMemoryStore()
	s.requests = verification.NewInMemoryStore()
	s.service = NewService(s.owners, s.insts, s.businesses, s.requests)

	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.instStaff = id.NewUserID()
	s.bizStaff = id.NewUserID()

	ctx := context.Background()
	for _, idNo := range []string{"A100", "A101"} {
		_, err := s.owners.Upsert(ctx, owner.Profile{IDNo: idNo, CreatedAt: s.now})
		s.Require().NoError(err)
	}

	inst, err := institution.NewInstitution(id.NewInstitutionID(), "University of Nairobi", "UON", "", s.now)
	s.Require().NoError(err)
	inst.Staff = []id.UserID{s.instStaff}
	s.Require().NoError(s.insts.CreateIfCodeAvailable(ctx, inst))

	biz, err := business.NewBusiness(id.NewBusinessID(), "Acme Ltd", "REG100", "", "", s.bizStaff, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.businesses.CreateIfRegistrationAvailable(ctx, biz))

	hr := s.bizStaff
	pending := &verification.Request{
		ID: id.NewRequestID(), HRUser: &hr, IDNo: "A100",
		OTP: "111111", OTPExpiresAt: s.now.Add(10 * time.Minute),
		Status: verification.StatusPending, CreatedAt: s.now,
	}
	confirmed := &verification.Request{
		ID: id.NewRequestID(), HRUser: &hr, IDNo: "A101",
		OTP: "222222", OTPExpiresAt: s.now.Add(10 * time.Minute),
		Status: verification.StatusConfirmed, CreatedAt: s.now,
	}
	s.Require().NoError(s.requests.Create(ctx, pending))
	s.Require().NoError(s.requests.Create(ctx, confirmed))
}

func (s *DashboardServiceSuite) ctxAs(actor id.Actor) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *DashboardServiceSuite) TestOverview() {
	s.Run("anonymous callers see counts with every flag off", func() {
		out, err := s.service.Overview(context.Background())
		s.Require().NoError(err)
		s.Equal(authz.Roles{}, out.Roles)
		s.Equal(1, out.InstitutionCount)
		s.Equal(2, out.OwnerCount)
		s.Equal(1, out.BusinessCount)
		s.Equal(1, out.PendingRequests)
		s.Equal(1, out.ConfirmedRequests)
		s.Empty(out.MyInstitutions)
		s.Empty(out.MyBusinesses)
	})

	s.Run("institution staff get their institutions", func() {
		actor := id.Actor{UserID: s.instStaff, Groups: []string{authz.GroupInstitutionStaff}}
		out, err := s.service.Overview(s.ctxAs(actor))
		s.Require().NoError(err)
		s.True(out.Roles.InstitutionStaff)
		s.Require().Len(out.MyInstitutions, 1)
		s.Equal("University of Nairobi", out.MyInstitutions[0].Name)
		s.Empty(out.MyBusinesses)
	})

	s.Run("business hr get their businesses", func() {
		actor := id.Actor{UserID: s.bizStaff, Groups: []string{authz.GroupBusinessHR}}
		out, err := s.service.Overview(s.ctxAs(actor))
		s.Require().NoError(err)
		s.True(out.Roles.BusinessHR)
		s.Require().Len(out.MyBusinesses, 1)
		s.Equal("Acme Ltd", out.MyBusinesses[0].Name)
	})

	s.Run("superuser holds every flag but skips the quick lists", func() {
		actor := id.Actor{UserID: id.NewUserID(), Superuser: true}
		out, err := s.service.Overview(s.ctxAs(actor))
		s.Require().NoError(err)
		s.True(out.Roles.Government)
		s.True(out.Roles.Admin)
		s.Empty(out.MyInstitutions)
		s.Empty(out.MyBusinesses)
	})

	s.Run("group membership without staffing yields an empty quick list", func() {
		actor := id.Actor{UserID: id.NewUserID(), Groups: []string{authz.GroupBusinessHR}}
		out, err := s.service.Overview(s.ctxAs(actor))
		s.Require().NoError(err)
		s.True(out.Roles.BusinessHR)
		s.Empty(out.MyBusinesses)
	})
}
