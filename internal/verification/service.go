package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"certiva/internal/business"
	"certiva/internal/institution"
	"certiva/internal/notify"
	"certiva/internal/owner"
	"certiva/internal/platform/metrics"
	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
	"certiva/pkg/platform/audit"
	"certiva/pkg/platform/sentinel"
	"certiva/pkg/requestcontext"
)

// OwnerDirectory resolves owner profiles by ID number.
type OwnerDirectory interface {
	Get(ctx context.Context, idNo string) (owner.Profile, error)
}

// BusinessDirectory resolves businesses for staff checks and visibility.
type BusinessDirectory interface {
	Get(ctx context.Context, businessID id.BusinessID) (*business.Business, error)
	ListMine(ctx context.Context) ([]*business.Business, error)
}

// CertificateDirectory matches certificates by owner ID number.
type CertificateDirectory interface {
	CertificatesForOwner(ctx context.Context, idNo string) ([]*institution.Certificate, error)
}

// Service drives the verification request lifecycle.
type Service struct {
	store      Store
	owners     OwnerDirectory
	businesses BusinessDirectory
	certs      CertificateDirectory
	dispatcher *notify.Dispatcher
	recorder   *audit.Recorder
	limiter    AttemptLimiter
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewService(
	store Store,
	owners OwnerDirectory,
	businesses BusinessDirectory,
	certs CertificateDirectory,
	dispatcher *notify.Dispatcher,
	recorder *audit.Recorder,
	limiter AttemptLimiter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if limiter == nil {
		limiter = NopLimiter{}
	}
	return &Service{
		store:      store,
		owners:     owners,
		businesses: businesses,
		certs:      certs,
		dispatcher: dispatcher,
		recorder:   recorder,
		limiter:    limiter,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("certiva/verification"),
	}
}

// CreateParams are the inputs to a new verification request.
type CreateParams struct {
	IDNo     string
	Business *id.BusinessID
	Note     string
}

// Create opens a verification request for an owner's records and delivers
// the OTP. The owner must already hold a profile; when a business is named,
// the actor must be a superuser or staff of it. The request is durably
// created even when every delivery channel fails.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Request, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Create")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var biz *business.Business
	if params.Business != nil {
		found, err := s.businesses.Get(ctx, *params.Business)
		if err != nil {
			return nil, err
		}
		if !actor.Superuser && !found.IsStaff(actor.UserID) {
			return nil, dErrors.New(dErrors.CodeForbidden, "you are not authorized to act on behalf of that business")
		}
		biz = found
	}

	prof, err := s.owners.Get(ctx, params.IDNo)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no owner profile found for that ID, ask the applicant to register first")
		}
		return nil, err
	}

	now := requestcontext.Now(ctx)
	hrUser := actor.UserID
	req := &Request{
		ID:           id.NewRequestID(),
		HRUser:       &hrUser,
		Business:     params.Business,
		IDNo:         prof.IDNo,
		OTP:          GenerateOTP(),
		OTPExpiresAt: now.Add(OTPWindow),
		Status:       StatusPending,
		Note:         strings.TrimSpace(params.Note),
		CreatedAt:    now,
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification request")
	}
	s.metrics.RequestsCreated.Inc()
	span.SetAttributes(attribute.String("request.id", req.ID.String()))

	businessName := ""
	if biz != nil {
		businessName = biz.Name
	}
	s.dispatcher.Dispatch(ctx, notify.OTPMessage{
		OwnerIDNo:    prof.IDNo,
		OwnerEmail:   prof.Email,
		OwnerMobile:  prof.Mobile,
		BusinessName: businessName,
		Code:         req.OTP,
		ExpiresIn:    OTPWindow.String(),
	})

	detail := fmt.Sprintf("Requested verification for %s", req.IDNo)
	if biz != nil {
		detail = fmt.Sprintf("Requested verification for %s on behalf of %s", req.IDNo, biz.Name)
	}
	s.recorder.Record(ctx, &hrUser, audit.ActionRequestedVerification, detail)
	return req, nil
}

// Confirm is the anonymous owner action: match the most recent pending
// request by ID number and code, then flip it to confirmed. Wrong code and
// no-such-request are indistinguishable to the caller. A repeat confirm
// finds no pending row and reads as not found, which is the intended
// one-shot behavior.
func (s *Service) Confirm(ctx context.Context, idNo, otp string) (*Request, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Confirm")
	defer span.End()

	idNo = strings.TrimSpace(idNo)
	otp = strings.TrimSpace(otp)
	if idNo == "" || otp == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ID number and OTP are required")
	}

	allowed, err := s.limiter.Allow(ctx, idNo)
	if err != nil {
		s.logger.Warn("confirm attempt limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		return nil, dErrors.New(dErrors.CodeTooManyAttempts, "too many confirmation attempts, try again later")
	}

	found, err := s.store.FindLatestPendingByIDNoAndOTP(ctx, idNo, otp)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordFailure(ctx, idNo)
			return nil, dErrors.New(dErrors.CodeNotFound, "no matching pending verification request found or OTP invalid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up verification request")
	}

	now := requestcontext.Now(ctx)
	if found.IsExpired(now) {
		s.expire(ctx, found)
		s.recordFailure(ctx, idNo)
		return nil, dErrors.New(dErrors.CodeExpired, "OTP has expired")
	}

	confirmed, err := s.store.Execute(ctx, found.ID,
		func(r *Request) error {
			if r.Status != StatusPending {
				return sentinel.ErrInvalidState
			}
			if r.IsExpired(now) {
				return sentinel.ErrExpired
			}
			return nil
		},
		func(r *Request) {
			r.Status = StatusConfirmed
			confirmedAt := now
			r.ConfirmedAt = &confirmedAt
		},
	)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			s.expire(ctx, found)
			return nil, dErrors.New(dErrors.CodeExpired, "OTP has expired")
		case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrNotFound):
			// Lost the race to a concurrent transition; indistinguishable
			// from never having matched.
			return nil, dErrors.New(dErrors.CodeNotFound, "no matching pending verification request found or OTP invalid")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm verification request")
		}
	}

	if err := s.limiter.Clear(ctx, idNo); err != nil {
		s.logger.Warn("failed to clear confirm attempts", "error", err)
	}
	s.metrics.RequestsConfirmed.Inc()
	span.SetAttributes(attribute.String("request.id", confirmed.ID.String()))

	s.recorder.Record(ctx, nil, audit.ActionOwnerConfirmed,
		fmt.Sprintf("Owner %s confirmed request %s", idNo, confirmed.ID))
	return confirmed, nil
}

// Get returns one request with its expiry freshened. Requires
// authentication; the ID is the capability.
func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*Request, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification request")
	}
	return s.freshenExpiry(ctx, req), nil
}

// List returns the actor's visible requests, newest first. Superusers see
// everything; everyone else sees requests they created plus requests for
// businesses they staff.
func (s *Service) List(ctx context.Context) ([]*Request, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var (
		reqs []*Request
		err  error
	)
	if actor.Superuser {
		reqs, err = s.store.List(ctx)
	} else {
		var staffed []*business.Business
		staffed, err = s.businesses.ListMine(ctx)
		if err != nil {
			return nil, err
		}
		businessIDs := make([]id.BusinessID, len(staffed))
		for i, b := range staffed {
			businessIDs[i] = b.ID
		}
		reqs, err = s.store.ListVisibleTo(ctx, actor.UserID, businessIDs)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification requests")
	}

	for i, req := range reqs {
		reqs[i] = s.freshenExpiry(ctx, req)
	}
	return reqs, nil
}

// ViewResult is a successful view: the request plus the owner's records.
type ViewResult struct {
	Request      *Request                   `json:"request"`
	Owner        owner.Profile              `json:"owner"`
	Certificates []*institution.Certificate `json:"certificates"`
}

// View returns the owner's certificates for a confirmed, unexpired request.
// The expiry check is re-evaluated at view time: a confirmed request that
// has since passed its deadline denies viewing. Each successful view stamps
// viewed_at; the latest view wins.
func (s *Service) View(ctx context.Context, requestID id.RequestID) (*ViewResult, error) {
	ctx, span := s.tracer.Start(ctx, "verification.View")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	req, err := s.store.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification request")
	}

	if err := s.authorizeViewer(ctx, req, actor); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	req = s.freshenExpiry(ctx, req)
	if req.Status != StatusConfirmed {
		if req.Status == StatusExpired {
			return nil, dErrors.New(dErrors.CodeExpired, "verification request has expired")
		}
		return nil, dErrors.New(dErrors.CodeBadRequest, "verification request has not been confirmed by the owner")
	}
	if req.IsExpired(now) {
		return nil, dErrors.New(dErrors.CodeExpired, "verification request has expired")
	}

	var (
		prof  owner.Profile
		certs []*institution.Certificate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.owners.Get(gctx, req.IDNo)
		if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
		prof = p
		return nil
	})
	g.Go(func() error {
		c, err := s.certs.CertificatesForOwner(gctx, req.IDNo)
		if err != nil {
			return err
		}
		certs = c
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	viewed, err := s.store.Execute(ctx, req.ID,
		func(r *Request) error {
			if r.Status != StatusConfirmed {
				return sentinel.ErrInvalidState
			}
			if r.IsExpired(now) {
				return sentinel.ErrExpired
			}
			return nil
		},
		func(r *Request) {
			viewedAt := now
			r.ViewedAt = &viewedAt
		},
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) || errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeExpired, "verification request has expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record view")
	}

	s.metrics.RequestsViewed.Inc()
	span.SetAttributes(attribute.String("request.id", req.ID.String()))
	s.recorder.Record(ctx, &actor.UserID, audit.ActionHRViewed,
		fmt.Sprintf("HR viewed records for %s (request %s)", req.IDNo, req.ID))

	return &ViewResult{Request: viewed, Owner: prof, Certificates: certs}, nil
}

// authorizeViewer allows superusers, the requesting HR user, and staff of
// the request's business.
func (s *Service) authorizeViewer(ctx context.Context, req *Request, actor id.Actor) error {
	if actor.Superuser {
		return nil
	}
	if req.HRUser != nil && *req.HRUser == actor.UserID {
		return nil
	}
	if req.Business != nil {
		biz, err := s.businesses.Get(ctx, *req.Business)
		if err == nil && biz.IsStaff(actor.UserID) {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "you are not authorized to view this verification request")
}

// freshenExpiry persists the expired state for an overdue pending request
// before handing it to the caller. Best effort: losing the transition race
// just means someone else already moved the request on.
func (s *Service) freshenExpiry(ctx context.Context, req *Request) *Request {
	if req.Status != StatusPending || !req.IsExpired(requestcontext.Now(ctx)) {
		return req
	}
	return s.expire(ctx, req)
}

func (s *Service) expire(ctx context.Context, req *Request) *Request {
	expired, err := s.store.Execute(ctx, req.ID,
		func(r *Request) error {
			if r.Status != StatusPending {
				return sentinel.ErrInvalidState
			}
			return nil
		},
		func(r *Request) { r.Status = StatusExpired },
	)
	if err != nil {
		if !errors.Is(err, sentinel.ErrInvalidState) {
			s.logger.Warn("failed to persist request expiry", "request_id", req.ID, "error", err)
		}
		if expired != nil {
			return expired
		}
		if fallback, ferr := s.store.FindByID(ctx, req.ID); ferr == nil {
			return fallback
		}
		// Both writes and the re-read failed; hand back the caller's
		// snapshot with the derived status so no field reads as zeroed.
		snapshot := *req
		snapshot.Status = StatusExpired
		return &snapshot
	}
	s.metrics.RequestsExpired.Inc()
	return expired
}

func (s *Service) recordFailure(ctx context.Context, idNo string) {
	if err := s.limiter.RecordFailure(ctx, idNo); err != nil {
		s.logger.Warn("failed to record confirm attempt", "error", err)
	}
}
