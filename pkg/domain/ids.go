// Package domain defines typed identifiers shared across the service.
//
// Typed IDs prevent cross-entity assignment at compile time: a UserID can
// never be passed where a BusinessID is expected. Parse functions enforce the
// invariant "IDs are valid, non-empty, non-nil UUIDs" at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "certiva/pkg/domain-errors"
)

type (
	// UserID identifies an authenticated account (HR staff, institution
	// staff, government users). Owners are keyed by national ID string, not
	// by UserID.
	UserID uuid.UUID

	// InstitutionID identifies a degree-granting institution.
	InstitutionID uuid.UUID

	// BusinessID identifies a registered employer.
	BusinessID uuid.UUID

	// CertificateID identifies a conferred credential record.
	CertificateID uuid.UUID

	// RequestID identifies a verification request. This is the public,
	// globally unique handle HR users share and poll.
	RequestID uuid.UUID
)

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id InstitutionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id BusinessID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id InstitutionID) String() string { return uuid.UUID(id).String() }
func (id BusinessID) String() string    { return uuid.UUID(id).String() }
func (id CertificateID) String() string { return uuid.UUID(id).String() }
func (id RequestID) String() string     { return uuid.UUID(id).String() }

// Defined types do not inherit uuid.UUID's methods, so each ID implements
// encoding.TextMarshaler itself; without these, JSON would render the raw
// 16-byte array.

func (id UserID) MarshalText() ([]byte, error)        { return []byte(id.String()), nil }
func (id InstitutionID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id BusinessID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id CertificateID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *InstitutionID) UnmarshalText(b []byte) error {
	parsed, err := ParseInstitutionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *BusinessID) UnmarshalText(b []byte) error {
	parsed, err := ParseBusinessID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CertificateID) UnmarshalText(b []byte) error {
	parsed, err := ParseCertificateID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// NewUserID returns a fresh random UserID.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewInstitutionID returns a fresh random InstitutionID.
func NewInstitutionID() InstitutionID { return InstitutionID(uuid.New()) }

// NewBusinessID returns a fresh random BusinessID.
func NewBusinessID() BusinessID { return BusinessID(uuid.New()) }

// NewCertificateID returns a fresh random CertificateID.
func NewCertificateID() CertificateID { return CertificateID(uuid.New()) }

// NewRequestID returns a fresh random RequestID.
func NewRequestID() RequestID { return RequestID(uuid.New()) }

func parse(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id too long")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parse(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseInstitutionID validates and returns an InstitutionID.
func ParseInstitutionID(s string) (InstitutionID, error) {
	u, err := parse(s)
	if err != nil {
		return InstitutionID{}, err
	}
	return InstitutionID(u), nil
}

// ParseBusinessID validates and returns a BusinessID.
func ParseBusinessID(s string) (BusinessID, error) {
	u, err := parse(s)
	if err != nil {
		return BusinessID{}, err
	}
	return BusinessID(u), nil
}

// ParseCertificateID validates and returns a CertificateID.
func ParseCertificateID(s string) (CertificateID, error) {
	u, err := parse(s)
	if err != nil {
		return CertificateID{}, err
	}
	return CertificateID(u), nil
}

// ParseRequestID validates and returns a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parse(s)
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(u), nil
}
