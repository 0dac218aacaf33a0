package domain

// Role is the authorization role carried in the access token.
type Role string

const (
	RoleCreator    Role = "CREATOR"
	RoleSuperAdmin Role = "SUPER_ADMIN"
	// RoleSystem is used by the sweep trigger.
	RoleSystem Role = "SYSTEM"
)

// Actor is the authenticated caller. CreatorID is empty for users without a
// creator profile.
type Actor struct {
	UserID    string
	Role      Role
	CreatorID string
}

// IsAdmin reports whether the actor may act on any creator's content.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleSuperAdmin
}

// CanSchedule reports whether the role may create or change schedules.
func (a Actor) CanSchedule() bool {
	return a.Role == RoleCreator || a.Role == RoleSuperAdmin
}

// OwnerFilter returns the creator id to filter by, or "" for any owner.
func (a Actor) OwnerFilter() string {
	if a.IsAdmin() {
		return ""
	}
	return a.CreatorID
}

// Owns reports whether the actor may mutate rows owned by creatorID.
func (a Actor) Owns(creatorID string) bool {
	return a.IsAdmin() || (a.CreatorID != "" && a.CreatorID == creatorID)
}
