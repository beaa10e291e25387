package verification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"certiva/internal/authz"
	"certiva/internal/business"
	"certiva/internal/institution"
	"certiva/internal/notify"
	"certiva/internal/owner"
	"certiva/internal/platform/metrics"
	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
	"certiva/pkg/platform/audit"
	auditmemory "certiva/pkg/platform/audit/store/memory"
	"certiva/pkg/requestcontext"
)

type VerificationServiceSuite struct {
	suite.Suite

	store      *InMemoryStore
	auditStore *auditmemory.Store
	owners     *owner.Service
	businesses *business.Service
	service    *Service

	now time.Time
}

func TestVerificationServiceSuite(t *testing.T) {
	suite.Run(t, new(VerificationServiceSuite))
}

func (s *VerificationServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.store = NewInMemoryStore()
	s.auditStore = auditmemory.New()
	recorder := audit.NewRecorder(s.auditStore, nil, logger)

	certStore := institution.NewInMemoryCertificateStore()
	s.owners = owner.NewService(owner.NewInMemoryStore(), certStore)
	instService := institution.NewService(institution.NewInMemoryStore(), certStore, s.owners, recorder)
	s.businesses = business.NewService(business.NewInMemoryStore(), recorder)

	dispatcher := notify.NewDispatcher(logger, nil, notify.NewConsole(logger))
	s.service = NewService(
		s.store, s.owners, s.businesses, instService,
		dispatcher, recorder, NopLimiter{}, metrics.NewWith(prometheus.NewRegistry()), logger,
	)

	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
}

func (s *VerificationServiceSuite) ctxAs(actor id.Actor) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *VerificationServiceSuite) anonCtx() context.Context {
	return requestcontext.WithTime(context.Background(), s.now)
}

// at shifts the request-scoped clock, simulating a later request.
func (s *VerificationServiceSuite) at(ctx context.Context, offset time.Duration) context.Context {
	return requestcontext.WithTime(ctx, s.now.Add(offset))
}

func (s *VerificationServiceSuite) registerOwner(idNo string) owner.Profile {
	prof, err := s.owners.Upsert(s.anonCtx(), owner.UpsertParams{
		IDNo:     idNo,
		FullName: "Asha Mwangi",
		Email:    "asha@example.com",
	})
	s.Require().NoError(err)
	return prof
}

func (s *VerificationServiceSuite) registerBusiness(staff id.Actor) *business.Business {
	biz, err := s.businesses.Register(s.ctxAs(staff), business.RegisterParams{
		Name:               "Acme Ltd",
		RegistrationNumber: "REG-" + staff.UserID.String()[:8],
		ContactEmail:       "hr@acme.test",
	})
	s.Require().NoError(err)
	return biz
}

func hrActor() id.Actor {
	return id.Actor{UserID: id.NewUserID(), Groups: []string{authz.GroupBusinessHR}}
}

func superuser() id.Actor {
	return id.Actor{UserID: id.NewUserID(), Superuser: true}
}

// =============================================================================
// Create
// =============================================================================

func (s *VerificationServiceSuite) TestCreate() {
	s.Run("creates pending request with six digit OTP and ten minute window", func() {
		s.registerOwner("A123")
		hr := hrActor()

		req, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: "A123"})
		s.Require().NoError(err)
		s.Equal(StatusPending, req.Status)
		s.Len(req.OTP, 6)
		s.Equal(s.now.Add(10*time.Minute), req.OTPExpiresAt)
		s.Require().NotNil(req.HRUser)
		s.Equal(hr.UserID, *req.HRUser)

		events, err := s.auditStore.ListRecent(context.Background(), 10)
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		s.Equal(audit.ActionRequestedVerification, events[0].Action)
		s.Require().NotNil(events[0].Actor)
		s.Equal(hr.UserID, *events[0].Actor)
	})

	s.Run("fails when no owner profile exists", func() {
		_, err := s.service.Create(s.ctxAs(hrActor()), CreateParams{IDNo: "NOBODY"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects anonymous callers", func() {
		s.registerOwner("A124")
		_, err := s.service.Create(s.anonCtx(), CreateParams{IDNo: "A124"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("allows staff acting for their business", func() {
		s.registerOwner("A125")
		hr := hrActor()
		biz := s.registerBusiness(hr)

		req, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: "A125", Business: &biz.ID})
		s.Require().NoError(err)
		s.Require().NotNil(req.Business)
		s.Equal(biz.ID, *req.Business)
	})

	s.Run("denies non-staff acting for a business", func() {
		s.registerOwner("A126")
		biz := s.registerBusiness(hrActor())

		outsider := hrActor()
		_, err := s.service.Create(s.ctxAs(outsider), CreateParams{IDNo: "A126", Business: &biz.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("superuser may act for any business", func() {
		s.registerOwner("A127")
		biz := s.registerBusiness(hrActor())

		_, err := s.service.Create(s.ctxAs(superuser()), CreateParams{IDNo: "A127", Business: &biz.ID})
		s.NoError(err)
	})
}

// =============================================================================
// Confirm
// =============================================================================

func (s *VerificationServiceSuite) TestConfirm() {
	s.Run("correct OTP within window confirms the request", func() {
		s.registerOwner("B100")
		req, err := s.service.Create(s.ctxAs(hrActor()), CreateParams{IDNo: "B100"})
		s.Require().NoError(err)

		confirmed, err := s.service.Confirm(s.anonCtx(), "B100", req.OTP)
		s.Require().NoError(err)
		s.Equal(StatusConfirmed, confirmed.Status)
		s.Require().NotNil(confirmed.ConfirmedAt)
		s.Equal(s.now, *confirmed.ConfirmedAt)

		events, err := s.auditStore.ListRecent(context.Background(), 1)
		s.Require().NoError(err)
		s.Equal(audit.ActionOwnerConfirmed, events[0].Action)
		s.Nil(events[0].Actor, "owner confirmation is unattributed")
	})

	s.Run("wrong OTP reads as not found", func() {
		s.registerOwner("B101")
		_, err := s.service.Create(s.ctxAs(hrActor()), CreateParams{IDNo: "B101"})
		s.Require().NoError(err)

		_, err = s.service.Confirm(s.anonCtx(), "B101", "000000")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("unknown ID number reads the same as wrong OTP", func() {
		_, err := s.service.Confirm(s.anonCtx(), "GHOST", "123456")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("expired OTP fails and persists the expired state", func() {
		s.registerOwner("B102")
		req, err := s.service.Create(s.ctxAs(hrActor()), CreateParams{IDNo: "B102"})
		s.Require().NoError(err)

		late := s.at(s.anonCtx(), 11*time.Minute)
		_, err = s.service.Confirm(late, "B102", req.OTP)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))

		stored, err := s.store.FindByID(context.Background(), req.ID)
		s.Require().NoError(err)
		s.Equal(StatusExpired, stored.Status)
	})

	s.Run("second confirm with the same OTP reads as not found", func() {
		s.registerOwner("B103")
		req, err := s.service.Create(s.ctxAs(hrActor()), CreateParams{IDNo: "B103"})
		s.Require().NoError(err)

		_, err = s.service.Confirm(s.anonCtx(), "B103", req.OTP)
		s.Require().NoError(err)

		_, err = s.service.Confirm(s.anonCtx(), "B103", req.OTP)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("matches the most recent pending request when OTPs collide", func() {
		s.registerOwner("B104")
		hr := hrActor()
		older, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: "B104"})
		s.Require().NoError(err)

		laterCtx := s.at(s.ctxAs(hr), time.Minute)
		newer, err := s.service.Create(laterCtx, CreateParams{IDNo: "B104"})
		s.Require().NoError(err)

		// Force identical OTPs so the tie-break is observable.
		_, err = s.store.Execute(context.Background(), newer.ID,
			func(*Request) error { return nil },
			func(r *Request) { r.OTP = older.OTP },
		)
		s.Require().NoError(err)

		confirmed, err := s.service.Confirm(s.at(s.anonCtx(), 2*time.Minute), "B104", older.OTP)
		s.Require().NoError(err)
		s.Equal(newer.ID, confirmed.ID)
	})

	s.Run("empty inputs are rejected", func() {
		_, err := s.service.Confirm(s.anonCtx(), "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *VerificationServiceSuite) TestConfirmThrottle() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	limiter := NewInMemoryLimiter(3, 5*time.Minute)
	recorder := audit.NewRecorder(s.auditStore, nil, logger)
	dispatcher := notify.NewDispatcher(logger, nil, notify.NewConsole(logger))
	instService := institution.NewService(institution.NewInMemoryStore(), institution.NewInMemoryCertificateStore(), s.owners, recorder)
	svc := NewService(
		s.store, s.owners, s.businesses, instService,
		dispatcher, recorder, limiter, metrics.NewWith(prometheus.NewRegistry()), logger,
	)

	s.registerOwner("T100")
	req, err := svc.Create(s.ctxAs(hrActor()), CreateParams{IDNo: "T100"})
	s.Require().NoError(err)

	for range 3 {
		_, err := svc.Confirm(s.anonCtx(), "T100", "000000")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	}

	// Fourth attempt is throttled even with the right code.
	_, err = svc.Confirm(s.anonCtx(), "T100", req.OTP)
	s.True(dErrors.HasCode(err, dErrors.CodeTooManyAttempts))

	// Outside the window the attempt proceeds, and success clears the counter.
	late := s.at(s.anonCtx(), 6*time.Minute)
	confirmed, err := svc.Confirm(late, "T100", req.OTP)
	s.Require().NoError(err)
	s.Equal(StatusConfirmed, confirmed.Status)
}

// =============================================================================
// View
// =============================================================================

func (s *VerificationServiceSuite) confirmedRequest(hr id.Actor, idNo string) *Request {
	s.registerOwner(idNo)
	req, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: idNo})
	s.Require().NoError(err)
	confirmed, err := s.service.Confirm(s.anonCtx(), idNo, req.OTP)
	s.Require().NoError(err)
	return confirmed
}

func (s *VerificationServiceSuite) TestView() {
	s.Run("requester views certificates and viewed_at is stamped", func() {
		hr := hrActor()
		req := s.confirmedRequest(hr, "V100")

		result, err := s.service.View(s.ctxAs(hr), req.ID)
		s.Require().NoError(err)
		s.Equal("V100", result.Owner.IDNo)
		s.Require().NotNil(result.Request.ViewedAt)
		s.Equal(s.now, *result.Request.ViewedAt)

		events, err := s.auditStore.ListRecent(context.Background(), 1)
		s.Require().NoError(err)
		s.Equal(audit.ActionHRViewed, events[0].Action)
	})

	s.Run("a later view overwrites viewed_at", func() {
		hr := hrActor()
		req := s.confirmedRequest(hr, "V101")

		_, err := s.service.View(s.ctxAs(hr), req.ID)
		s.Require().NoError(err)

		later := s.at(s.ctxAs(hr), 5*time.Minute)
		result, err := s.service.View(later, req.ID)
		s.Require().NoError(err)
		s.Equal(s.now.Add(5*time.Minute), *result.Request.ViewedAt)
	})

	s.Run("pending request denies viewing", func() {
		s.registerOwner("V102")
		hr := hrActor()
		req, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: "V102"})
		s.Require().NoError(err)

		_, err = s.service.View(s.ctxAs(hr), req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("confirmed request past its deadline denies viewing", func() {
		hr := hrActor()
		req := s.confirmedRequest(hr, "V103")

		late := s.at(s.ctxAs(hr), 15*time.Minute)
		_, err := s.service.View(late, req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeExpired))
	})

	s.Run("unrelated user is denied", func() {
		req := s.confirmedRequest(hrActor(), "V104")

		_, err := s.service.View(s.ctxAs(hrActor()), req.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("staff of the request business may view", func() {
		requester := hrActor()
		colleague := hrActor()
		biz := s.registerBusiness(requester)
		_, err := s.businesses.SetStaff(s.ctxAs(requester), biz.ID, []id.UserID{requester.UserID, colleague.UserID})
		s.Require().NoError(err)

		s.registerOwner("V105")
		req, err := s.service.Create(s.ctxAs(requester), CreateParams{IDNo: "V105", Business: &biz.ID})
		s.Require().NoError(err)
		_, err = s.service.Confirm(s.anonCtx(), "V105", req.OTP)
		s.Require().NoError(err)

		_, err = s.service.View(s.ctxAs(colleague), req.ID)
		s.NoError(err)
	})

	s.Run("superuser may view any request", func() {
		req := s.confirmedRequest(hrActor(), "V106")
		_, err := s.service.View(s.ctxAs(superuser()), req.ID)
		s.NoError(err)
	})
}

// =============================================================================
// Lazy expiry on reads
// =============================================================================

func (s *VerificationServiceSuite) TestLazyExpiry() {
	s.Run("Get transitions an overdue pending request", func() {
		s.registerOwner("L100")
		hr := hrActor()
		req, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: "L100"})
		s.Require().NoError(err)

		late := s.at(s.ctxAs(hr), 11*time.Minute)
		got, err := s.service.Get(late, req.ID)
		s.Require().NoError(err)
		s.Equal(StatusExpired, got.Status)

		stored, err := s.store.FindByID(context.Background(), req.ID)
		s.Require().NoError(err)
		s.Equal(StatusExpired, stored.Status)
	})

	s.Run("List freshens every overdue request", func() {
		s.registerOwner("L101")
		hr := hrActor()
		_, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: "L101"})
		s.Require().NoError(err)

		late := s.at(s.ctxAs(hr), 20*time.Minute)
		reqs, err := s.service.List(late)
		s.Require().NoError(err)
		s.Require().NotEmpty(reqs)
		for _, r := range reqs {
			s.Equal(StatusExpired, r.Status)
		}
	})

	s.Run("confirmed requests are not expired by reads", func() {
		hr := hrActor()
		req := s.confirmedRequest(hr, "L102")

		late := s.at(s.ctxAs(hr), 30*time.Minute)
		got, err := s.service.Get(late, req.ID)
		s.Require().NoError(err)
		s.Equal(StatusConfirmed, got.Status)
	})

	s.Run("persistence failure mid-expiry still returns the full request", func() {
		s.registerOwner("L103")
		hr := hrActor()
		req, err := s.service.Create(s.ctxAs(hr), CreateParams{IDNo: "L103"})
		s.Require().NoError(err)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		flaky := &flakyStore{Store: s.store}
		svc := NewService(
			flaky, s.owners, s.businesses, nil,
			notify.NewDispatcher(logger, nil), audit.NewRecorder(s.auditStore, nil, logger),
			NopLimiter{}, metrics.NewWith(prometheus.NewRegistry()), logger,
		)

		late := s.at(s.ctxAs(hr), 11*time.Minute)
		got, err := svc.Get(late, req.ID)
		s.Require().NoError(err)
		s.Equal(StatusExpired, got.Status)
		s.Equal(req.IDNo, got.IDNo)
		s.Equal(req.CreatedAt, got.CreatedAt)
		s.Equal(req.OTPExpiresAt, got.OTPExpiresAt)
	})
}

// flakyStore answers the first read, then loses its connection. Exercises
// the code paths that must degrade when the database drops mid-request.
type flakyStore struct {
	Store
	reads int
}

func (f *flakyStore) FindByID(ctx context.Context, requestID id.RequestID) (*Request, error) {
	f.reads++
	if f.reads > 1 {
		return nil, errors.New("connection reset")
	}
	return f.Store.FindByID(ctx, requestID)
}

func (f *flakyStore) Execute(context.Context, id.RequestID, func(*Request) error, func(*Request)) (*Request, error) {
	return nil, errors.New("connection reset")
}

// =============================================================================
// List visibility
// =============================================================================

func (s *VerificationServiceSuite) TestListVisibility() {
	alice := hrActor()
	bob := hrActor()

	s.registerOwner("S100")
	s.registerOwner("S101")

	mine, err := s.service.Create(s.ctxAs(alice), CreateParams{IDNo: "S100"})
	s.Require().NoError(err)
	theirs, err := s.service.Create(s.ctxAs(bob), CreateParams{IDNo: "S101"})
	s.Require().NoError(err)

	s.Run("users see only their own requests", func() {
		reqs, err := s.service.List(s.ctxAs(alice))
		s.Require().NoError(err)
		s.Require().Len(reqs, 1)
		s.Equal(mine.ID, reqs[0].ID)

		reqs, err = s.service.List(s.ctxAs(bob))
		s.Require().NoError(err)
		s.Require().Len(reqs, 1)
		s.Equal(theirs.ID, reqs[0].ID)
	})

	s.Run("superuser sees everything", func() {
		reqs, err := s.service.List(s.ctxAs(superuser()))
		s.Require().NoError(err)
		s.Len(reqs, 2)
	})

	s.Run("business staff see requests for their business", func() {
		colleague := hrActor()
		biz := s.registerBusiness(alice)
		_, err := s.businesses.SetStaff(s.ctxAs(alice), biz.ID, []id.UserID{alice.UserID, colleague.UserID})
		s.Require().NoError(err)

		s.registerOwner("S102")
		forBiz, err := s.service.Create(s.ctxAs(alice), CreateParams{IDNo: "S102", Business: &biz.ID})
		s.Require().NoError(err)

		reqs, err := s.service.List(s.ctxAs(colleague))
		s.Require().NoError(err)
		s.Require().Len(reqs, 1)
		s.Equal(forBiz.ID, reqs[0].ID)
	})
}
