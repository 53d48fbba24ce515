package authz

import (
	"duckpay/models"
	"duckpay/pkg/apperr"
)

// Guard is a request-time check against a resolved actor. It returns nil to
// allow and an apperr error to deny.
type Guard func(actor *models.User) error

// Authenticated denies anonymous callers.
func Authenticated(actor *models.User) error {
	if actor == nil {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}

// RequireAdmin is CheckAdminRole as a Guard.
var RequireAdmin Guard = CheckAdminRole

// RequireOwner is CheckOwnerRole as a Guard.
var RequireOwner Guard = CheckOwnerRole

// RequirePermission denies actors without the named permission.
func RequirePermission(name string) Guard {
	return func(actor *models.User) error {
		if err := Authenticated(actor); err != nil {
			return err
		}
		if !HasPermission(actor, name) {
			return apperr.Forbidden("permission denied")
		}
		return nil
	}
}

// RequireAnyPermission denies actors holding none of names.
func RequireAnyPermission(names ...string) Guard {
	return func(actor *models.User) error {
		if err := Authenticated(actor); err != nil {
			return err
		}
		if !HasAnyPermission(actor, names...) {
			return apperr.Forbidden("permission denied")
		}
		return nil
	}
}

// RequireEdit denies actors that may not edit target.
func RequireEdit(target *models.User) Guard {
	return requireEditable(target, "you don't have permission to edit this user")
}

// RequireDelete is RequireEdit with the wording of a refused deletion.
func RequireDelete(target *models.User) Guard {
	return requireEditable(target, "you don't have permission to delete this user")
}

func requireEditable(target *models.User, denied string) Guard {
	return func(actor *models.User) error {
		if err := Authenticated(actor); err != nil {
			return err
		}
		if !CanEditUser(actor, target) {
			return apperr.Forbidden("%s", denied)
		}
		return nil
	}
}

// Check runs guards in order and returns the first denial.
func Check(actor *models.User, guards ...Guard) error {
	for _, g := range guards {
		if err := g(actor); err != nil {
			return err
		}
	}
	return nil
}
