// Package authz holds the authorization rules. Every function is a pure
// decision over users whose groups (and the groups' permissions) were loaded
// from the identity store for the current request; nothing here trusts the
// group list embedded in a token.
package authz

import (
	"duckpay/models"
)

// Level returns the most privileged (numerically lowest) level among u's
// groups. ok is false when u belongs to no group; such a user has no level
// and never wins a level comparison, as actor or as target.
func Level(u *models.User) (level int, ok bool) {
	if u == nil {
		return 0, false
	}
	for i, g := range u.Groups {
		if i == 0 || g.Level < level {
			level = g.Level
		}
	}
	return level, len(u.Groups) > 0
}

// outranksOrEqual reports whether actor's level is at or above target's.
// It is false when either side has no level.
func outranksOrEqual(actor, target *models.User) bool {
	al, aok := Level(actor)
	tl, tok := Level(target)
	return aok && tok && al <= tl
}

// IsAdmin reports whether any of u's groups is an admin group.
func IsAdmin(u *models.User) bool {
	if u == nil {
		return false
	}
	for _, g := range u.Groups {
		if g.IsAdmin {
			return true
		}
	}
	return false
}

// IsOwner reports whether u belongs to the owner group.
func IsOwner(u *models.User) bool {
	return InGroup(u, models.GroupOwner)
}

// InGroup reports whether u belongs to the group called name.
func InGroup(u *models.User, name string) bool {
	if u == nil {
		return false
	}
	for _, g := range u.Groups {
		if g.Name == name {
			return true
		}
	}
	return false
}

// PermissionSet is the union of the permission names granted by u's groups.
func PermissionSet(u *models.User) map[string]struct{} {
	set := make(map[string]struct{})
	if u == nil {
		return set
	}
	for _, g := range u.Groups {
		for _, p := range g.Permissions {
			set[p.Name] = struct{}{}
		}
	}
	return set
}
