package owner

import (
	"context"
	"errors"
	"strings"

	dErrors "certiva/pkg/domain-errors"
	"certiva/pkg/platform/sentinel"
	"certiva/pkg/requestcontext"
)

// CertificateUnlinker nulls the owner link on certificates when a profile is
// removed. The certificate rows themselves survive; only the link clears.
type CertificateUnlinker interface {
	UnlinkOwner(ctx context.Context, idNo string) error
}

// Service handles owner self-registration and lookups.
type Service struct {
	store Store
	certs CertificateUnlinker
}

func NewService(store Store, certs CertificateUnlinker) *Service {
	return &Service{store: store, certs: certs}
}

// UpsertParams are the self-service registration fields.
type UpsertParams struct {
	IDNo     string
	FullName string
	Mobile   string
	Email    string
}

// Upsert creates or updates a profile keyed on IDNo. Anonymous operation:
// the owner is not assumed to hold an account.
func (s *Service) Upsert(ctx context.Context, params UpsertParams) (Profile, error) {
	idNo, err := NormalizeIDNo(params.IDNo)
	if err != nil {
		return Profile{}, err
	}
	email := strings.TrimSpace(params.Email)
	if email != "" && !strings.Contains(email, "@") {
		return Profile{}, dErrors.New(dErrors.CodeValidation, "email is malformed")
	}

	profile := Profile{
		IDNo:      idNo,
		FullName:  strings.TrimSpace(params.FullName),
		Mobile:    strings.TrimSpace(params.Mobile),
		Email:     email,
		CreatedAt: requestcontext.Now(ctx),
	}
	stored, err := s.store.Upsert(ctx, profile)
	if err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save owner profile")
	}
	return stored, nil
}

// Get returns the profile for an ID number.
func (s *Service) Get(ctx context.Context, idNo string) (Profile, error) {
	idNo, err := NormalizeIDNo(idNo)
	if err != nil {
		return Profile{}, err
	}
	profile, err := s.store.FindByIDNo(ctx, idNo)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Profile{}, dErrors.New(dErrors.CodeNotFound, "no owner profile found for that ID")
		}
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner profile")
	}
	return profile, nil
}

// Exists reports whether a profile is registered for the ID number, without
// the error ceremony of Get. Used for certificate link resolution.
func (s *Service) Exists(ctx context.Context, idNo string) (bool, error) {
	idNo, err := NormalizeIDNo(idNo)
	if err != nil {
		return false, err
	}
	_, err = s.store.FindByIDNo(ctx, idNo)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner profile")
	}
	return true, nil
}

// Delete removes a profile and nulls certificate links to it. Admin surface
// only; the workflow itself never deletes owners.
func (s *Service) Delete(ctx context.Context, idNo string) error {
	actor := requestcontext.Actor(ctx)
	if !actor.Superuser {
		return dErrors.New(dErrors.CodeForbidden, "only administrators may delete owner profiles")
	}
	idNo, err := NormalizeIDNo(idNo)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, idNo); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no owner profile found for that ID")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete owner profile")
	}
	if err := s.certs.UnlinkOwner(ctx, idNo); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to unlink certificates")
	}
	return nil
}
