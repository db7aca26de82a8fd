package user_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/domain/user/mocks"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
)

func TestAuthorize(t *testing.T) {
	companyA := uuid.New()
	companyB := uuid.New()
	driverA := &user.User{ID: uuid.New(), Role: user.RoleDriver, CompanyID: &companyA}
	driverB := &user.User{ID: uuid.New(), Role: user.RoleDriver, CompanyID: &companyB}

	tests := []struct {
		name    string
		actor   user.Actor
		target  uuid.UUID
		lookup  *user.User
		wantErr error
	}{
		{
			name:   "admin reaches anyone",
			actor:  user.Actor{UserID: uuid.New(), Role: user.RoleAdmin},
			target: driverB.ID,
		},
		{
			name:   "driver reaches self",
			actor:  user.Actor{UserID: driverA.ID, Role: user.RoleDriver, CompanyID: &companyA},
			target: driverA.ID,
		},
		{
			name:    "driver cannot reach another driver",
			actor:   user.Actor{UserID: driverA.ID, Role: user.RoleDriver, CompanyID: &companyA},
			target:  driverB.ID,
			wantErr: appErrors.ErrInsufficientPermissions,
		},
		{
			name:   "manager reaches driver of same company",
			actor:  user.Actor{UserID: uuid.New(), Role: user.RoleManager, CompanyID: &companyA},
			target: driverA.ID,
			lookup: driverA,
		},
		{
			name:    "manager cannot reach driver of other company",
			actor:   user.Actor{UserID: uuid.New(), Role: user.RoleManager, CompanyID: &companyA},
			target:  driverB.ID,
			lookup:  driverB,
			wantErr: appErrors.ErrInsufficientPermissions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockRepository(ctrl)
			if tt.lookup != nil {
				repo.EXPECT().GetByID(gomock.Any(), tt.target).Return(tt.lookup, nil)
			}

			err := user.Authorize(context.Background(), repo, tt.actor, tt.target)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAuthorize_ManagerUnknownTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	company := uuid.New()
	target := uuid.New()
	repo.EXPECT().GetByID(gomock.Any(), target).Return(nil, user.ErrUserNotFound)

	err := user.Authorize(context.Background(), repo, user.Actor{UserID: uuid.New(), Role: user.RoleManager, CompanyID: &company}, target)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestActorManages_ManagerWithoutCompany(t *testing.T) {
	target := &user.User{ID: uuid.New(), Role: user.RoleDriver}
	actor := user.Actor{UserID: uuid.New(), Role: user.RoleManager}
	assert.False(t, actor.Manages(target))
	assert.False(t, actor.Manages(nil))
}
