// Package business holds the registry of employers that request credential
// verification. Unlike institutions, business verification records who
// verified and when; unverifying clears both.
package business

import (
	"strings"
	"time"

	id "certiva/pkg/domain"
	dErrors "certiva/pkg/domain-errors"
)

// Business is an employer registered on the platform.
//
// Invariants:
//   - RegistrationNumber is non-empty and unique
//   - Verified, VerifiedBy and VerifiedAt move together: all set on verify,
//     all cleared on unverify
type Business struct {
	ID                 id.BusinessID `json:"id"`
	Name               string        `json:"name"`
	RegistrationNumber string        `json:"registration_number"`
	ContactEmail       string        `json:"contact_email,omitempty"`
	Address            string        `json:"address,omitempty"`
	Staff              []id.UserID   `json:"staff,omitempty"`
	RegisteredBy       id.UserID     `json:"registered_by"`
	Verified           bool          `json:"verified"`
	VerifiedBy         *id.UserID    `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time    `json:"verified_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
}

// IsStaff reports whether the user is a staff member of this business.
func (b *Business) IsStaff(userID id.UserID) bool {
	for _, s := range b.Staff {
		if s == userID {
			return true
		}
	}
	return false
}

// NewBusiness validates and constructs a business, pending verification. The
// registering user is recorded and seeded as the first staff member.
func NewBusiness(businessID id.BusinessID, name, registrationNumber, contactEmail, address string, registeredBy id.UserID, now time.Time) (*Business, error) {
	name = strings.TrimSpace(name)
	registrationNumber = strings.TrimSpace(registrationNumber)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "business name is required")
	}
	if registrationNumber == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "registration number is required")
	}
	if len(registrationNumber) > 64 {
		return nil, dErrors.New(dErrors.CodeValidation, "registration number must be 64 characters or less")
	}
	return &Business{
		ID:                 businessID,
		Name:               name,
		RegistrationNumber: registrationNumber,
		ContactEmail:       strings.TrimSpace(contactEmail),
		Address:            strings.TrimSpace(address),
		Staff:              []id.UserID{registeredBy},
		RegisteredBy:       registeredBy,
		CreatedAt:          now,
	}, nil
}
