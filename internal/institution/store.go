package institution

import (
	"context"

	id "certiva/pkg/domain"
)

// Store persists institutions.
type Store interface {
	// CreateIfCodeAvailable inserts the institution, returning
	// sentinel.ErrAlreadyUsed when the code is taken.
	CreateIfCodeAvailable(ctx context.Context, inst *Institution) error
	FindByID(ctx context.Context, institutionID id.InstitutionID) (*Institution, error)
	List(ctx context.Context) ([]*Institution, error)
	// ListByStaff returns institutions the user staffs.
	ListByStaff(ctx context.Context, userID id.UserID) ([]*Institution, error)
	Update(ctx context.Context, inst *Institution) error
	// Delete removes the institution. Certificate cascade is the caller's
	// concern (or the database's ON DELETE CASCADE).
	Delete(ctx context.Context, institutionID id.InstitutionID) error
	// Count returns the number of stored institutions.
	Count(ctx context.Context) (int, error)
}

// CertificateStore persists certificates.
type CertificateStore interface {
	Create(ctx context.Context, cert *Certificate) error
	FindByID(ctx context.Context, certID id.CertificateID) (*Certificate, error)
	Update(ctx context.Context, cert *Certificate) error
	Delete(ctx context.Context, certID id.CertificateID) error
	ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*Certificate, error)
	// ListByOwnerIDNo matches on the denormalized owner ID, the durable key
	// the verification workflow queries by.
	ListByOwnerIDNo(ctx context.Context, idNo string) ([]*Certificate, error)
	// UnlinkOwner nulls the owner link on every certificate linked to the
	// profile. Rows survive; only the link clears.
	UnlinkOwner(ctx context.Context, idNo string) error
	// DeleteByInstitution removes all certificates of an institution
	// (cascade on institution deletion).
	DeleteByInstitution(ctx context.Context, institutionID id.InstitutionID) error
}
