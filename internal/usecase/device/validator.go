package device

import (
	"context"
	"errors"

	"github.com/google/uuid"

	domainDevice "github.com/icancar/fleet-management-sub000/internal/domain/device"
	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
)

// ValidateAssignee checks that userID is an active driver the actor manages.
func ValidateAssignee(ctx context.Context, userRepo domainUser.Repository, actor domainUser.Actor, userID uuid.UUID) (*domainUser.User, error) {
	u, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}

	if u.Role != domainUser.RoleDriver {
		return nil, appErrors.NewAppError("INVALID_ROLE", "Devices can only be assigned to drivers", appErrors.ErrInvalidUserRole)
	}
	if !u.IsActive {
		return nil, appErrors.ErrUserInactive
	}
	if !actor.Manages(u) {
		return nil, appErrors.ErrInsufficientPermissions
	}

	return u, nil
}

// canAccess reports whether actor may administer d. Managers are limited to
// devices of their company.
func canAccess(actor domainUser.Actor, d *domainDevice.Device) bool {
	if actor.IsAdmin() {
		return true
	}
	if actor.IsManager() && actor.CompanyID != nil && d.CompanyID != nil {
		return *actor.CompanyID == *d.CompanyID
	}
	return false
}
