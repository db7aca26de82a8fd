package user

import (
	"context"

	"github.com/google/uuid"

	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID    uuid.UUID
	Role      Role
	CompanyID *uuid.UUID
}

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsManager() bool { return a.Role == RoleManager }

// Manages reports whether the actor may act on target's data. Drivers only
// reach themselves, managers reach users of their own company, admins reach
// everyone.
func (a Actor) Manages(target *User) bool {
	if target == nil {
		return false
	}
	if a.IsAdmin() || a.UserID == target.ID {
		return true
	}
	if a.IsManager() && a.CompanyID != nil && target.CompanyID != nil {
		return *a.CompanyID == *target.CompanyID
	}
	return false
}

// Authorize checks that actor may read or act on targetID's data.
func Authorize(ctx context.Context, repo Repository, actor Actor, targetID uuid.UUID) error {
	if actor.IsAdmin() || actor.UserID == targetID {
		return nil
	}
	if !actor.IsManager() {
		return appErrors.ErrInsufficientPermissions
	}

	target, err := repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if !actor.Manages(target) {
		return appErrors.ErrInsufficientPermissions
	}
	return nil
}
