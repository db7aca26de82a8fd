package odometer

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	locationMocks "github.com/icancar/fleet-management-sub000/internal/domain/location/mocks"
	"github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
	vehicleMocks "github.com/icancar/fleet-management-sub000/internal/domain/vehicle/mocks"
	"github.com/icancar/fleet-management-sub000/internal/geo"
)

type fixture struct {
	fixes      *locationMocks.MockRepository
	vehicles   *vehicleMocks.MockRepository
	integrator *Integrator
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		fixes:    locationMocks.NewMockRepository(ctrl),
		vehicles: vehicleMocks.NewMockRepository(ctrl),
	}
	f.integrator = NewIntegrator(f.fixes, f.vehicles)
	return f
}

// metersNorth returns the latitude offset of a pure northward move of m meters.
func metersNorth(m float64) float64 {
	return m / geo.EarthRadiusMeters * 180 / math.Pi
}

func TestOnNewFix_Increments(t *testing.T) {
	tests := []struct {
		name         string
		moveMeters   float64
		wantOdometer float64
	}{
		{name: "below noise threshold", moveMeters: 5, wantOdometer: 100.0},
		{name: "just under threshold", moveMeters: 9.9, wantOdometer: 100.0},
		{name: "above threshold", moveMeters: 50, wantOdometer: 100.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			userID := uuid.New()
			v := &vehicle.Vehicle{ID: uuid.New(), AssignedDriverID: &userID, Odometer: 100.0}

			prev := &location.Fix{ID: uuid.New(), DeviceID: "D1", UserID: &userID, Latitude: 45, Longitude: 19, Timestamp: time.Now().Add(-time.Minute)}
			fix := &location.Fix{ID: uuid.New(), DeviceID: "D1", UserID: &userID, Latitude: 45 + metersNorth(tt.moveMeters), Longitude: 19, Timestamp: time.Now()}

			f.vehicles.EXPECT().GetByDriver(gomock.Any(), userID).Return(v, nil)
			f.fixes.EXPECT().GetPrevious(gomock.Any(), "D1", userID, fix.ID).Return(prev, nil)
			f.vehicles.EXPECT().IncrementOdometer(gomock.Any(), v.ID, fix.ID, gomock.Any()).
				DoAndReturn(func(_ context.Context, _, _ uuid.UUID, km float64) (bool, error) {
					v.Odometer += km
					return true, nil
				}).
				MaxTimes(1)

			f.integrator.OnNewFix(context.Background(), fix)

			assert.InDelta(t, tt.wantOdometer, v.Odometer, 1e-6)
		})
	}
}

func TestOnNewFix_NoDriver(t *testing.T) {
	f := newFixture(t)
	f.integrator.OnNewFix(context.Background(), &location.Fix{ID: uuid.New(), DeviceID: "D1"})
}

func TestOnNewFix_NoVehicle(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.vehicles.EXPECT().GetByDriver(gomock.Any(), userID).Return(nil, vehicle.ErrVehicleNotFound)

	f.integrator.OnNewFix(context.Background(), &location.Fix{ID: uuid.New(), DeviceID: "D1", UserID: &userID})
}

func TestOnNewFix_FirstFix(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	fix := &location.Fix{ID: uuid.New(), DeviceID: "D1", UserID: &userID}
	f.vehicles.EXPECT().GetByDriver(gomock.Any(), userID).Return(&vehicle.Vehicle{ID: uuid.New()}, nil)
	f.fixes.EXPECT().GetPrevious(gomock.Any(), "D1", userID, fix.ID).Return(nil, location.ErrFixNotFound)

	f.integrator.OnNewFix(context.Background(), fix)
}

func TestOnNewFix_ErrorsAreSwallowed(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	v := &vehicle.Vehicle{ID: uuid.New()}
	prev := &location.Fix{ID: uuid.New(), DeviceID: "D1", Latitude: 45, Longitude: 19}
	fix := &location.Fix{ID: uuid.New(), DeviceID: "D1", UserID: &userID, Latitude: 45.01, Longitude: 19}

	f.vehicles.EXPECT().GetByDriver(gomock.Any(), userID).Return(v, nil)
	f.fixes.EXPECT().GetPrevious(gomock.Any(), "D1", userID, fix.ID).Return(prev, nil)
	f.vehicles.EXPECT().IncrementOdometer(gomock.Any(), v.ID, fix.ID, gomock.Any()).Return(false, errors.New("connection reset"))

	assert.NotPanics(t, func() {
		f.integrator.OnNewFix(context.Background(), fix)
	})
}

func TestSetOdometerThenGet(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	v := &vehicle.Vehicle{ID: uuid.New(), AssignedDriverID: &userID, Odometer: 1234.5}

	f.vehicles.EXPECT().SetOdometer(gomock.Any(), v.ID, 42.125).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, reading float64) error {
			v.Odometer = reading
			return nil
		})
	f.vehicles.EXPECT().GetByDriver(gomock.Any(), userID).Return(v, nil)

	ok, err := f.integrator.SetOdometer(context.Background(), v.ID, 42.125)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := f.integrator.GetOdometerForUser(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42.125, *got)
}

func TestSetOdometer_UnknownVehicle(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.vehicles.EXPECT().SetOdometer(gomock.Any(), id, 10.0).Return(vehicle.ErrVehicleNotFound)

	ok, err := f.integrator.SetOdometer(context.Background(), id, 10)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOdometerForUser_NoVehicle(t *testing.T) {
	f := newFixture(t)
	userID := uuid.New()
	f.vehicles.EXPECT().GetByDriver(gomock.Any(), userID).Return(nil, vehicle.ErrVehicleNotFound)

	got, err := f.integrator.GetOdometerForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSetOdometer_SerializedPerVehicle(t *testing.T) {
	f := newFixture(t)
	vehicleID := uuid.New()

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	f.vehicles.EXPECT().SetOdometer(gomock.Any(), vehicleID, gomock.Any()).
		DoAndReturn(func(context.Context, uuid.UUID, float64) error {
			mu.Lock()
			inFlight++
			maxInFlight = max(maxInFlight, inFlight)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return nil
		}).
		Times(20)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(reading float64) {
			defer wg.Done()
			ok, err := f.integrator.SetOdometer(context.Background(), vehicleID, reading)
			assert.NoError(t, err)
			assert.True(t, ok)
		}(float64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
}
