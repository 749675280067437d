package authorization

import "errors"

var (
	// ErrAdminRequired is returned when an operation needs the admin or
	// owner role.
	ErrAdminRequired = errors.New("admin access required")
	// ErrOwnerRequired is returned when an operation needs the owner role.
	ErrOwnerRequired = errors.New("owner access required")
	// ErrForbidden is returned when the policy engine denies an action.
	ErrForbidden = errors.New("forbidden")
)
