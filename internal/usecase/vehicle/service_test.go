package vehicle

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	userMocks "github.com/icancar/fleet-management-sub000/internal/domain/user/mocks"
	domainVehicle "github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
	vehicleMocks "github.com/icancar/fleet-management-sub000/internal/domain/vehicle/mocks"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
)

type stubOdometer struct {
	found   bool
	vehicle uuid.UUID
	reading float64
}

func (s *stubOdometer) SetOdometer(_ context.Context, vehicleID uuid.UUID, reading float64) (bool, error) {
	s.vehicle = vehicleID
	s.reading = reading
	return s.found, nil
}

type fixture struct {
	svc      *Service
	vehicles *vehicleMocks.MockRepository
	users    *userMocks.MockRepository
	odometer *stubOdometer
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		vehicles: vehicleMocks.NewMockRepository(ctrl),
		users:    userMocks.NewMockRepository(ctrl),
		odometer: &stubOdometer{found: true},
	}
	f.svc = NewService(f.vehicles, f.users, f.odometer)
	return f
}

func ptr[T any](v T) *T { return &v }

func TestCreateVehicle_ManagerUsesOwnCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	company := uuid.New()
	manager := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleManager, CompanyID: &company}

	f.vehicles.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, v *domainVehicle.Vehicle) error {
		v.ID = uuid.New()
		return nil
	})

	resp, err := f.svc.CreateVehicle(ctx, manager, &CreateVehicleRequest{
		Make:         "Volvo",
		Model:        "FH16",
		Year:         2021,
		LicensePlate: "ns 123 ab",
		CompanyID:    ptr(uuid.New()),
		Odometer:     ptr(1200.5),
	})
	require.NoError(t, err)
	require.NotNil(t, resp.CompanyID)
	assert.Equal(t, company, *resp.CompanyID)
	assert.Equal(t, "NS123AB", resp.LicensePlate)
	assert.Equal(t, "active", resp.Status)
	assert.Equal(t, 1200.5, resp.Odometer)
}

func TestCreateVehicle_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateVehicle(context.Background(), domainUser.Actor{Role: domainUser.RoleAdmin}, &CreateVehicleRequest{Make: "Volvo"})
	assert.Equal(t, "VALIDATION_ERROR", appErrors.Code(err))
}

func TestAssignDriver(t *testing.T) {
	ctx := context.Background()
	company := uuid.New()
	admin := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleAdmin}

	t.Run("assigns free driver", func(t *testing.T) {
		f := newFixture(t)
		v := &domainVehicle.Vehicle{ID: uuid.New(), CompanyID: &company}
		driver := &domainUser.User{ID: uuid.New(), Role: domainUser.RoleDriver, CompanyID: &company, IsActive: true}

		f.vehicles.EXPECT().GetByID(ctx, v.ID).Return(v, nil)
		f.users.EXPECT().GetByID(ctx, driver.ID).Return(driver, nil)
		f.vehicles.EXPECT().GetByDriver(ctx, driver.ID).Return(nil, domainVehicle.ErrVehicleNotFound)
		f.vehicles.EXPECT().AssignDriver(ctx, v.ID, &driver.ID).Return(nil)

		resp, err := f.svc.AssignDriver(ctx, admin, v.ID, &AssignDriverRequest{DriverID: &driver.ID})
		require.NoError(t, err)
		assert.Equal(t, &driver.ID, resp.AssignedDriverID)
	})

	t.Run("driver already has another vehicle", func(t *testing.T) {
		f := newFixture(t)
		v := &domainVehicle.Vehicle{ID: uuid.New()}
		driver := &domainUser.User{ID: uuid.New(), Role: domainUser.RoleDriver, IsActive: true}

		f.vehicles.EXPECT().GetByID(ctx, v.ID).Return(v, nil)
		f.users.EXPECT().GetByID(ctx, driver.ID).Return(driver, nil)
		f.vehicles.EXPECT().GetByDriver(ctx, driver.ID).Return(&domainVehicle.Vehicle{ID: uuid.New()}, nil)

		_, err := f.svc.AssignDriver(ctx, admin, v.ID, &AssignDriverRequest{DriverID: &driver.ID})
		assert.ErrorIs(t, err, domainVehicle.ErrDriverAlreadyAssigned)
	})

	t.Run("reassigning same vehicle is allowed", func(t *testing.T) {
		f := newFixture(t)
		v := &domainVehicle.Vehicle{ID: uuid.New()}
		driver := &domainUser.User{ID: uuid.New(), Role: domainUser.RoleDriver, IsActive: true}

		f.vehicles.EXPECT().GetByID(ctx, v.ID).Return(v, nil)
		f.users.EXPECT().GetByID(ctx, driver.ID).Return(driver, nil)
		f.vehicles.EXPECT().GetByDriver(ctx, driver.ID).Return(v, nil)
		f.vehicles.EXPECT().AssignDriver(ctx, v.ID, &driver.ID).Return(nil)

		_, err := f.svc.AssignDriver(ctx, admin, v.ID, &AssignDriverRequest{DriverID: &driver.ID})
		assert.NoError(t, err)
	})

	t.Run("manager cannot touch other company", func(t *testing.T) {
		f := newFixture(t)
		other := uuid.New()
		v := &domainVehicle.Vehicle{ID: uuid.New(), CompanyID: &other}
		manager := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleManager, CompanyID: &company}

		f.vehicles.EXPECT().GetByID(ctx, v.ID).Return(v, nil)

		_, err := f.svc.AssignDriver(ctx, manager, v.ID, &AssignDriverRequest{})
		assert.ErrorIs(t, err, appErrors.ErrInsufficientPermissions)
	})
}

func TestSetOdometer(t *testing.T) {
	ctx := context.Background()
	admin := domainUser.Actor{UserID: uuid.New(), Role: domainUser.RoleAdmin}

	f := newFixture(t)
	v := &domainVehicle.Vehicle{ID: uuid.New(), Odometer: 10}
	f.vehicles.EXPECT().GetByID(ctx, v.ID).Return(v, nil)

	resp, err := f.svc.SetOdometer(ctx, admin, v.ID, &SetOdometerRequest{Reading: ptr(250.0)})
	require.NoError(t, err)
	assert.Equal(t, 250.0, resp.Odometer)
	assert.Equal(t, v.ID, f.odometer.vehicle)
	assert.Equal(t, 250.0, f.odometer.reading)

	_, err = f.svc.SetOdometer(ctx, admin, v.ID, &SetOdometerRequest{Reading: ptr(-1.0)})
	assert.Equal(t, "VALIDATION_ERROR", appErrors.Code(err))
}

func TestListVehicles_ManagerWithoutCompanyGetsEmptyPage(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.ListVehicles(context.Background(), domainUser.Actor{Role: domainUser.RoleManager}, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Vehicles)
	assert.NotNil(t, resp.Vehicles)
}
