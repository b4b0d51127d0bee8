package auth

import (
	"testing"

	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestPolicy_Allows(t *testing.T) {
	tests := []struct {
		policy Policy
		role   models.Role
		want   bool
	}{
		{PolicyAuthenticated, models.RoleUser, true},
		{PolicyAuthenticated, models.RoleModerator, true},
		{PolicyAuthenticated, models.RoleAdmin, true},
		{PolicyAuthenticated, models.Role("guest"), false},
		{PolicyAdmin, models.RoleUser, false},
		{PolicyAdmin, models.RoleModerator, false},
		{PolicyAdmin, models.RoleAdmin, true},
		{PolicyListingModeration, models.RoleUser, false},
		{PolicyListingModeration, models.RoleModerator, true},
		{PolicyListingModeration, models.RoleAdmin, true},
		{Policy(99), models.RoleAdmin, false},
	}

	for _, tt := range tests {
		t.Run(tt.policy.String()+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Allows(tt.role))
		})
	}
}

func TestPolicy_String(t *testing.T) {
	assert.Equal(t, "admin", PolicyAdmin.String())
	assert.Equal(t, "unknown", Policy(99).String())
}

func TestCanMutateListing(t *testing.T) {
	owner := &Identity{UserID: "u1", Role: models.RoleUser}
	stranger := &Identity{UserID: "u2", Role: models.RoleUser}
	moderator := &Identity{UserID: "m1", Role: models.RoleModerator}
	admin := &Identity{UserID: "a1", Role: models.RoleAdmin}

	assert.True(t, CanMutateListing(owner, "u1"))
	assert.False(t, CanMutateListing(stranger, "u1"))
	assert.True(t, CanMutateListing(moderator, "u1"))
	assert.True(t, CanMutateListing(admin, "u1"))
	assert.False(t, CanMutateListing(nil, "u1"))
}
