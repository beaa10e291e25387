// Package institution holds the registry of degree-granting institutions and
// the certificates they confer. Certificates belong to exactly one
// institution and are cascade-deleted with it; the owner link is optional
// and nulled when the owner profile disappears.
package institution

import (
	"strings"
	"time"

	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
)

// Institution is a verified-or-pending degree-granting body.
//
// Invariants:
//   - Code is non-empty and unique
//   - Verified is a bare boolean: unlike Business there is no verified_by or
//     verified_at here (kept asymmetric on purpose, see DESIGN.md)
type Institution struct {
	ID           id.InstitutionID `json:"id"`
	Name         string           `json:"name"`
	Code         string           `json:"code"`
	ContactEmail string           `json:"contact_email,omitempty"`
	Staff        []id.UserID      `json:"staff,omitempty"`
	Verified     bool             `json:"verified"`
	CreatedAt    time.Time        `json:"created_at"`
}

// IsStaff reports whether the user is a staff member of this institution.
func (i *Institution) IsStaff(userID id.UserID) bool {
	for _, s := range i.Staff {
		if s == userID {
			return true
		}
	}
	return false
}

// NewInstitution validates and constructs an institution, pending
// verification.
func NewInstitution(institutionID id.InstitutionID, name, code, contactEmail string, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "institution name is required")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "institution code is required")
	}
	if len(code) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "institution code must be 64 characters or less")
	}
	return &Institution{
		ID:           institutionID,
		Name:         name,
		Code:         code,
		ContactEmail: strings.TrimSpace(contactEmail),
		CreatedAt:    now,
	}, nil
}

// Certificate is a conferred-credential record.
//
// OwnerIDNo is the durable matching key used by the verification workflow.
// LinkedOwner mirrors the optional foreign key to an owner profile: set when
// a profile with that ID number existed at the last save, nil otherwise.
// Link resolution happens on every save, never retroactively.
type Certificate struct {
	ID                   id.CertificateID `json:"id"`
	InstitutionID        id.InstitutionID `json:"institution_id"`
	OwnerIDNo            string           `json:"owner_id_no"`
	LinkedOwner          *string          `json:"linked_owner,omitempty"`
	OwnerName            string           `json:"owner_name,omitempty"`
	DegreeName           string           `json:"degree_name,omitempty"`
	Program              string           `json:"program,omitempty"`
	ConferralDate        *time.Time       `json:"conferral_date,omitempty"`
	CertificateReference string           `json:"certificate_reference,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}
