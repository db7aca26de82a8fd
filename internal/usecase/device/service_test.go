package device

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainDevice "github.com/icancar/fleet-management-sub000/internal/domain/device"
	deviceMocks "github.com/icancar/fleet-management-sub000/internal/domain/device/mocks"
	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	userMocks "github.com/icancar/fleet-management-sub000/internal/domain/user/mocks"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
)

type fixture struct {
	svc     *Service
	devices *deviceMocks.MockRepository
	users   *userMocks.MockRepository
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		devices: deviceMocks.NewMockRepository(ctrl),
		users:   userMocks.NewMockRepository(ctrl),
	}
	f.svc = NewService(f.devices, f.users)
	return f
}

func TestGetDevice_ManagerScope(t *testing.T) {
	ctx := context.Background()
	company, other := uuid.New(), uuid.New()
	manager := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleManager, CompanyID: &company}

	t.Run("own company", func(t *testing.T) {
		f := newFixture(t)
		d := &domainDevice.Device{ID: uuid.New(), DeviceID: "dev-1", CompanyID: &company, IsActive: true}
		f.devices.EXPECT().GetByID(ctx, d.ID).Return(d, nil)

		resp, err := f.svc.GetDevice(ctx, manager, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "dev-1", resp.DeviceID)
	})

	t.Run("other company", func(t *testing.T) {
		f := newFixture(t)
		d := &domainDevice.Device{ID: uuid.New(), CompanyID: &other}
		f.devices.EXPECT().GetByID(ctx, d.ID).Return(d, nil)

		_, err := f.svc.GetDevice(ctx, manager, d.ID)
		assert.ErrorIs(t, err, appErrors.ErrInsufficientPermissions)
	})

	t.Run("driver is never allowed", func(t *testing.T) {
		f := newFixture(t)
		driver := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleDriver, CompanyID: &company}
		d := &domainDevice.Device{ID: uuid.New(), CompanyID: &company}
		f.devices.EXPECT().GetByID(ctx, d.ID).Return(d, nil)

		_, err := f.svc.GetDevice(ctx, driver, d.ID)
		assert.ErrorIs(t, err, appErrors.ErrInsufficientPermissions)
	})
}

func TestListDevices_ManagerFilterForcedToCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := uuid.New()
	manager := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleManager, CompanyID: &company}

	f.devices.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, filter *domainDevice.Filter) ([]*domainDevice.Device, int64, error) {
			require.NotNil(t, filter.CompanyID)
			assert.Equal(t, company, *filter.CompanyID)
			return []*domainDevice.Device{{ID: uuid.New(), DeviceID: "a"}, {ID: uuid.New(), DeviceID: "b"}}, 21, nil
		})

	resp, err := f.svc.ListDevices(ctx, manager, &DeviceFilterRequest{})
	require.NoError(t, err)
	assert.Len(t, resp.Devices, 2)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.Page)
}

func TestAssignUser(t *testing.T) {
	ctx := context.Background()
	admin := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleAdmin}

	t.Run("assigns active driver", func(t *testing.T) {
		f := newFixture(t)
		d := &domainDevice.Device{ID: uuid.New(), DeviceID: "dev-1", IsActive: true}
		driver := &domainUser.User{ID: uuid.New(), Role: domainUser.RoleDriver, IsActive: true}

		f.devices.EXPECT().GetByID(ctx, d.ID).Return(d, nil)
		f.users.EXPECT().GetByID(ctx, driver.ID).Return(driver, nil)
		f.devices.EXPECT().AssignUser(ctx, d.ID, &driver.ID).Return(nil)

		resp, err := f.svc.AssignUser(ctx, admin, d.ID, &AssignUserRequest{UserID: &driver.ID})
		require.NoError(t, err)
		require.NotNil(t, resp.UserID)
		assert.Equal(t, driver.ID, *resp.UserID)
	})

	t.Run("rejects non driver", func(t *testing.T) {
		f := newFixture(t)
		d := &domainDevice.Device{ID: uuid.New(), IsActive: true}
		mgr := &domainUser.User{ID: uuid.New(), Role: domainUser.RoleManager, IsActive: true}

		f.devices.EXPECT().GetByID(ctx, d.ID).Return(d, nil)
		f.users.EXPECT().GetByID(ctx, mgr.ID).Return(mgr, nil)

		_, err := f.svc.AssignUser(ctx, admin, d.ID, &AssignUserRequest{UserID: &mgr.ID})
		assert.Equal(t, "INVALID_ROLE", appErrors.Code(err))
	})

	t.Run("rejects inactive device", func(t *testing.T) {
		f := newFixture(t)
		d := &domainDevice.Device{ID: uuid.New(), IsActive: false}
		f.devices.EXPECT().GetByID(ctx, d.ID).Return(d, nil)

		_, err := f.svc.AssignUser(ctx, admin, d.ID, &AssignUserRequest{})
		assert.ErrorIs(t, err, domainDevice.ErrDeviceInactive)
	})

	t.Run("unbinds with nil user", func(t *testing.T) {
		f := newFixture(t)
		bound := uuid.New()
		d := &domainDevice.Device{ID: uuid.New(), UserID: &bound, IsActive: true}

		f.devices.EXPECT().GetByID(ctx, d.ID).Return(d, nil)
		f.devices.EXPECT().AssignUser(ctx, d.ID, nil).Return(nil)

		resp, err := f.svc.AssignUser(ctx, admin, d.ID, &AssignUserRequest{})
		require.NoError(t, err)
		assert.Nil(t, resp.UserID)
	})
}

func TestRegisterDevice_Duplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleAdmin}

	f.devices.EXPECT().Create(ctx, gomock.Any()).Return(domainDevice.ErrDeviceAlreadyExists)

	_, err := f.svc.RegisterDevice(ctx, admin, &RegisterDeviceRequest{DeviceID: " dev-1 "})
	assert.Equal(t, "DEVICE_EXISTS", appErrors.Code(err))
}

func TestGetStatistics(t *testing.T) {
	ctx := context.Background()
	company := uuid.New()

	f := newFixture(t)
	f.devices.EXPECT().GetStatistics(ctx, (*uuid.UUID)(nil)).Return(&domainDevice.Statistics{TotalDevices: 4}, nil)
	stats, err := f.svc.GetStatistics(ctx, domainUser.Actor{Role: domainUser.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalDevices)

	f = newFixture(t)
	f.devices.EXPECT().GetStatistics(ctx, &company).Return(&domainDevice.Statistics{TotalDevices: 1}, nil)
	stats, err = f.svc.GetStatistics(ctx, domainUser.Actor{Role: domainUser.RoleManager, CompanyID: &company})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalDevices)

	_, err = newFixture(t).svc.GetStatistics(ctx, domainUser.Actor{Role: domainUser.RoleDriver})
	assert.ErrorIs(t, err, appErrors.ErrInsufficientPermissions)
}
