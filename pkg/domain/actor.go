package domain

// Actor is the authenticated-or-anonymous principal attached to a request.
// Anonymous actors have a nil UserID, no groups, and no superuser flag.
//
// Group names are the source of coarse role flags (see internal/authz).
// Fine-grained checks (is this user staff of this institution/business) are
// predicates on the entities themselves, never folded into Actor.
type Actor struct {
	UserID    UserID
	Superuser bool
	Groups    []string
}

// Anonymous reports whether the actor carries no authenticated identity.
func (a Actor) Anonymous() bool { return a.UserID.IsNil() }

// InGroup reports membership in the named group. Superusers are implicit
// members of every group.
func (a Actor) InGroup(name string) bool {
	if a.Superuser {
		return true
	}
	for _, g := range a.Groups {
		if g == name {
			return true
		}
	}
	return false
}
