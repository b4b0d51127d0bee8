package auth

import (
	"slices"

	"github.com/dmitrijs2005/listings/internal/server/models"
)

// Policy names a set of roles allowed to perform an action.
type Policy int

const (
	// PolicyAuthenticated admits any signed-in user.
	PolicyAuthenticated Policy = iota
	// PolicyAdmin guards user-directory administration.
	PolicyAdmin
	// PolicyListingModeration may mutate listings owned by others.
	PolicyListingModeration
)

var policyRoles = map[Policy][]models.Role{
	PolicyAuthenticated:     {models.RoleUser, models.RoleModerator, models.RoleAdmin},
	PolicyAdmin:             {models.RoleAdmin},
	PolicyListingModeration: {models.RoleModerator, models.RoleAdmin},
}

// Allows reports whether role belongs to the policy. Unknown policies allow
// nothing.
func (p Policy) Allows(role models.Role) bool {
	return slices.Contains(policyRoles[p], role)
}

func (p Policy) String() string {
	switch p {
	case PolicyAuthenticated:
		return "authenticated"
	case PolicyAdmin:
		return "admin"
	case PolicyListingModeration:
		return "listing-moderation"
	}
	return "unknown"
}

// CanMutateListing implements the ownership rule: the owner or a
// moderator/admin may change or delete a listing and attach images to it.
func CanMutateListing(id *Identity, ownerID string) bool {
	if id == nil {
		return false
	}
	return id.UserID == ownerID || PolicyListingModeration.Allows(id.Role)
}
