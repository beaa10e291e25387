package business

import (
	"context"
	"errors"
	"fmt"

	"certiva/internal/authz"
	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
	"certiva/pkg/platform/audit"
	"certiva/pkg/platform/sentinel"
	"certiva/pkg/requestcontext"
)

// Service orchestrates business registration and government verification.
//
// Any authenticated user may register a business; only government (or
// superuser) flips the verified flag. The flag is a government endorsement on
// record, it does not gate what the business's staff can do.
type Service struct {
	store    Store
	recorder *audit.Recorder
}

func NewService(store Store, recorder *audit.Recorder) *Service {
	return &Service{store: store, recorder: recorder}
}

// RegisterParams are the inputs to a business registration.
type RegisterParams struct {
	Name               string
	RegistrationNumber string
	ContactEmail       string
	Address            string
}

// Register creates a business, pending verification. The registering user
// becomes its first staff member.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Business, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	biz, err := NewBusiness(id.NewBusinessID(), params.Name, params.RegistrationNumber,
		params.ContactEmail, params.Address, actor.UserID, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateIfRegistrationAvailable(ctx, biz); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "registration number must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register business")
	}

	s.recorder.Record(ctx, &actor.UserID, audit.ActionBusinessRegistered,
		fmt.Sprintf("Registered business %s", biz.ID))
	return biz, nil
}

// Get returns one business.
func (s *Service) Get(ctx context.Context, businessID id.BusinessID) (*Business, error) {
	biz, err := s.store.FindByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "business not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load business")
	}
	return biz, nil
}

// List returns all businesses. Government only.
func (s *Service) List(ctx context.Context) ([]*Business, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Superuser && !actor.InGroup(authz.GroupGovernment) {
		return nil, dErrors.New(dErrors.CodeForbidden, "government role required")
	}
	out, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list businesses")
	}
	return out, nil
}

// ListMine returns businesses the actor staffs.
func (s *Service) ListMine(ctx context.Context) ([]*Business, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	out, err := s.store.ListByStaff(ctx, actor.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list businesses")
	}
	return out, nil
}

// SetVerified toggles the verified flag. Government only. Verifying records
// the verifying user and time; unverifying clears both.
func (s *Service) SetVerified(ctx context.Context, businessID id.BusinessID, verified bool) (*Business, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !actor.Superuser && !actor.InGroup(authz.GroupGovernment) {
		return nil, dErrors.New(dErrors.CodeForbidden, "government role required")
	}

	biz, err := s.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}

	action := audit.ActionBusinessVerified
	detail := fmt.Sprintf("Verified business %s", biz.ID)
	if verified {
		by := actor.UserID
		at := requestcontext.Now(ctx)
		biz.Verified = true
		biz.VerifiedBy = &by
		biz.VerifiedAt = &at
	} else {
		biz.Verified = false
		biz.VerifiedBy = nil
		biz.VerifiedAt = nil
		action = audit.ActionBusinessUnverified
		detail = fmt.Sprintf("Unverified business %s", biz.ID)
	}

	if err := s.store.Update(ctx, biz); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update business")
	}
	s.recorder.Record(ctx, &actor.UserID, action, detail)
	return biz, nil
}

// SetStaff replaces the staff set. Requires superuser or existing staff
// membership.
func (s *Service) SetStaff(ctx context.Context, businessID id.BusinessID, staff []id.UserID) (*Business, error) {
	actor := requestcontext.Actor(ctx)
	if actor.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	biz, err := s.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if !actor.Superuser && !biz.IsStaff(actor.UserID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "you are not authorized to manage this business")
	}
	biz.Staff = staff
	if err := s.store.Update(ctx, biz); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update business staff")
	}
	return biz, nil
}
