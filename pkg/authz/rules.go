package authz

import (
	"duckpay/models"
	"duckpay/pkg/apperr"
)

// CanEditUser decides whether actor may edit or delete target. The owner may
// edit anyone; an admin may edit users whose level is numerically greater or
// equal to its own; nobody else may edit anyone. Users without groups are
// editable by the owner only.
func CanEditUser(actor, target *models.User) bool {
	if IsOwner(actor) {
		return true
	}
	if !IsAdmin(actor) {
		return false
	}
	return outranksOrEqual(actor, target)
}

// CanAssignGroup decides whether actor may put someone into the group called
// groupName. Only the owner hands out the owner group; other groups are open
// to any caller that already passed CheckAdminRole.
func CanAssignGroup(actor *models.User, groupName string) bool {
	if groupName == models.GroupOwner {
		return IsOwner(actor)
	}
	return true
}

// CanChangeRole is the narrow promotion rule: the owner may change any role;
// a non-owner admin may only promote a non-admin user at or below its own
// level to the admin group.
func CanChangeRole(actor, target *models.User, newGroupName string) bool {
	if IsOwner(actor) {
		return true
	}
	if !IsAdmin(actor) || !outranksOrEqual(actor, target) {
		return false
	}
	return !IsAdmin(target) && newGroupName == models.GroupAdmin
}

// HasPermission reports whether actor holds the named permission. The owner
// bypasses the permission grid.
func HasPermission(actor *models.User, name string) bool {
	if IsOwner(actor) {
		return true
	}
	_, ok := PermissionSet(actor)[name]
	return ok
}

// HasAnyPermission reports whether actor holds at least one of names.
func HasAnyPermission(actor *models.User, names ...string) bool {
	if IsOwner(actor) {
		return true
	}
	set := PermissionSet(actor)
	for _, n := range names {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}

// CheckAdminRole passes when actor belongs to any admin group.
func CheckAdminRole(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if !IsAdmin(actor) {
		return apperr.Forbidden("admin access required")
	}
	return nil
}

// CheckOwnerRole passes when actor belongs to the owner group.
func CheckOwnerRole(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthenticated("authentication required")
	}
	if !IsOwner(actor) {
		return apperr.Forbidden("owner access required")
	}
	return nil
}
