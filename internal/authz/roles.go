// Package authz derives coarse role flags from an actor's group memberships.
//
// Flags gate the government verification surfaces and inform UI-level
// visibility; everything entity-scoped (certificate management, business
// request visibility) checks the staff relation on the entity itself instead.
package authz

import "certiva/pkg/domain"

// Group names mirrored from the account system.
const (
	GroupGovernment       = "government"
	GroupInstitutionStaff = "institution_staff"
	GroupBusinessHR       = "business_hr"
	GroupOwner            = "owner"
)

// Roles is the per-request snapshot of an actor's coarse capabilities.
// Derived on every request from the token, never cached or persisted.
type Roles struct {
	Government       bool `json:"government"`
	InstitutionStaff bool `json:"institution_staff"`
	BusinessHR       bool `json:"business_hr"`
	Owner            bool `json:"owner"`
	Admin            bool `json:"admin"`
}

// Derive computes role flags for an actor. A superuser holds all five;
// anonymous actors hold none.
func Derive(actor domain.Actor) Roles {
	if actor.Anonymous() {
		return Roles{}
	}
	return Roles{
		Government:       actor.InGroup(GroupGovernment),
		InstitutionStaff: actor.InGroup(GroupInstitutionStaff),
		BusinessHR:       actor.InGroup(GroupBusinessHR),
		Owner:            actor.InGroup(GroupOwner),
		Admin:            actor.Superuser,
	}
}
