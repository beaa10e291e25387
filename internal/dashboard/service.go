// Package dashboard assembles the landing-page overview: platform-wide
// entity counts plus the caller's role flags and quick lists. The overview is
// public; an anonymous caller gets the counts with every flag off.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"certiva/internal/authz"
	"certiva/internal/business"
	"certiva/internal/institution"
	"certiva/internal/verification"
	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
	"certiva/pkg/requestcontext"
)

// OwnerDirectory counts owner profiles.
type OwnerDirectory interface {
	Count(ctx context.Context) (int, error)
}

// InstitutionDirectory counts institutions and resolves staffed ones.
type InstitutionDirectory interface {
	Count(ctx context.Context) (int, error)
	ListByStaff(ctx context.Context, userID id.UserID) ([]*institution.Institution, error)
}

// BusinessDirectory counts businesses and resolves staffed ones.
type BusinessDirectory interface {
	Count(ctx context.Context) (int, error)
	ListByStaff(ctx context.Context, userID id.UserID) ([]*business.Business, error)
}

// RequestDirectory counts verification requests by status.
type RequestDirectory interface {
	CountByStatus(ctx context.Context, status verification.Status) (int, error)
}

// Overview is the dashboard payload.
type Overview struct {
	Roles authz.Roles `json:"roles"`

	InstitutionCount  int `json:"institution_count"`
	OwnerCount        int `json:"owner_count"`
	BusinessCount     int `json:"business_count"`
	PendingRequests   int `json:"pending_requests"`
	ConfirmedRequests int `json:"confirmed_requests"`

	MyInstitutions []*institution.Institution `json:"my_institutions,omitempty"`
	MyBusinesses   []*business.Business       `json:"my_businesses,omitempty"`
}

type Service struct {
	owners     OwnerDirectory
	insts      InstitutionDirectory
	businesses BusinessDirectory
	requests   RequestDirectory
}

func NewService(owners OwnerDirectory, insts InstitutionDirectory, businesses BusinessDirectory, requests RequestDirectory) *Service {
	return &Service{owners: owners, insts: insts, businesses: businesses, requests: requests}
}

// Overview gathers the counts and, for a signed-in caller, derives role
// flags and the staffed-entity quick lists.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	out := &Overview{Roles: authz.Derive(requestcontext.Actor(ctx))}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.InstitutionCount, err = s.insts.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.OwnerCount, err = s.owners.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.BusinessCount, err = s.businesses.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.PendingRequests, err = s.requests.CountByStatus(gctx, verification.StatusPending)
		return err
	})
	g.Go(func() (err error) {
		out.ConfirmedRequests, err = s.requests.CountByStatus(gctx, verification.StatusConfirmed)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assemble dashboard")
	}

	actor := requestcontext.Actor(ctx)
	if out.Roles.InstitutionStaff && !actor.Superuser {
		mine, err := s.insts.ListByStaff(ctx, actor.UserID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list staffed institutions")
		}
		out.MyInstitutions = mine
	}
	if out.Roles.BusinessHR && !actor.Superuser {
		mine, err := s.businesses.ListByStaff(ctx, actor.UserID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list staffed businesses")
		}
		out.MyBusinesses = mine
	}
	return out, nil
}
