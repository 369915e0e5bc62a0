package domain

import (
	"slices"

	"github.com/google/uuid"
)

// Role is a role record as the user directory stores it.
type Role struct {
	ID   uuid.UUID
	Name string
}

// User is a live user record resolved from the directory.
type User struct {
	ID       uuid.UUID
	Username string
	Roles    []Role
}

// Identity is what a connection is tagged with once authenticated. Roles are
// flattened to names so authorization checks never walk role records again.
type Identity struct {
	UserID   uuid.UUID
	Username string
	Roles    []string
}

func NewIdentity(user User) Identity {
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.Roles {
		if r.Name == "" || slices.Contains(roles, r.Name) {
			continue
		}

		roles = append(roles, r.Name)
	}

	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    roles,
	}
}

func (i Identity) HasRole(name string) bool {
	return slices.Contains(i.Roles, name)
}
