package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "certiva/pkg/domain"
)

func TestDerive(t *testing.T) {
	t.Run("anonymous actors hold no capabilities", func(t *testing.T) {
		assert.Equal(t, Roles{}, Derive(id.Actor{}))
	})

	t.Run("superuser holds all five", func(t *testing.T) {
		roles := Derive(id.Actor{UserID: id.NewUserID(), Superuser: true})
		assert.Equal(t, Roles{
			Government:       true,
			InstitutionStaff: true,
			BusinessHR:       true,
			Owner:            true,
			Admin:            true,
		}, roles)
	})

	t.Run("group membership grants the matching capability only", func(t *testing.T) {
		roles := Derive(id.Actor{
			UserID: id.NewUserID(),
			Groups: []string{GroupBusinessHR, GroupOwner},
		})
		assert.False(t, roles.Government)
		assert.False(t, roles.InstitutionStaff)
		assert.True(t, roles.BusinessHR)
		assert.True(t, roles.Owner)
		assert.False(t, roles.Admin)
	})

	t.Run("unknown groups grant nothing", func(t *testing.T) {
		roles := Derive(id.Actor{UserID: id.NewUserID(), Groups: []string{"auditors"}})
		assert.Equal(t, Roles{}, roles)
	})
}
