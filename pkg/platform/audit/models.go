// Package audit captures append-only records of state-changing actions.
//
// Events are a side-effect sink: the core logic writes them and never reads
// them back. Stores must support append and list only; there is no update or
// delete path.
package audit

import (
	"time"

	id "certiva/pkg/domain"
)

// Action tags a state-changing operation. Free text at the store level; the
// constants below are the tags the services emit.
type Action string

const (
	ActionRequestedVerification Action = "requested_verification"
	ActionOwnerConfirmed        Action = "owner_confirmed"
	ActionHRViewed              Action = "hr_viewed"

	ActionCertificateAdded   Action = "certificate_added"
	ActionCertificateEdited  Action = "certificate_edited"
	ActionCertificateDeleted Action = "certificate_deleted"

	ActionInstitutionAdded      Action = "institution_added"
	ActionInstitutionVerified   Action = "institution_verified"
	ActionInstitutionUnverified Action = "institution_unverified"

	ActionBusinessRegistered Action = "business_registered"
	ActionBusinessVerified   Action = "business_verified"
	ActionBusinessUnverified Action = "business_unverified"
)

// Event is a single append-only audit entry.
//
// Actor is nil for flows where no authenticated user acts, such as the owner
// OTP confirmation (owners hold no account).
type Event struct {
	Actor     *id.UserID
	Action    Action
	Details   string
	CreatedAt time.Time
}
