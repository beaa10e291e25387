// Package owner holds the registry of credential subjects. Owners are keyed
// by an opaque national ID string and hold no account: registration and OTP
// confirmation are anonymous flows.
package owner

import (
	"strings"
	"time"

	dErrors "certiva/pkg/domain-errors"
)

// Profile is an owner's identity and contact record.
//
// Invariants:
//   - IDNo is non-empty, at most 50 characters, and unique
//   - Profiles are created or updated via upsert, never deleted by the
//     service itself
type Profile struct {
	IDNo      string    `json:"id_no"`
	FullName  string    `json:"full_name,omitempty"`
	Mobile    string    `json:"mobile,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeIDNo trims whitespace from a national ID and validates it.
func NormalizeIDNo(idNo string) (string, error) {
	idNo = strings.TrimSpace(idNo)
	if idNo == "" {
		return "", dErrors.New(dErrors.CodeValidation, "id_no is required")
	}
	if len(idNo) > 50 {
		return "", dErrors.New(dErrors.CodeValidation, "id_no must be 50 characters or less")
	}
	return idNo, nil
}
