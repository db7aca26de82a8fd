// Package odometer accumulates the distance driven between consecutive fixes
// into the odometer of the vehicle assigned to the driver.
package odometer

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/moby/locker"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
	"github.com/icancar/fleet-management-sub000/internal/geo"
	"github.com/icancar/fleet-management-sub000/internal/logger"
)

// NoiseThresholdMeters is the smallest movement that counts as driving.
// Anything at or below it is treated as GPS jitter.
const NoiseThresholdMeters = 10.0

type Integrator struct {
	fixes    location.Repository
	vehicles vehicle.Repository
	locks    *locker.Locker
}

func NewIntegrator(fixes location.Repository, vehicles vehicle.Repository) *Integrator {
	return &Integrator{
		fixes:    fixes,
		vehicles: vehicles,
		locks:    locker.New(),
	}
}

// OnNewFix is called after fix has been stored. Failures are logged and never
// returned: a fix must not be rejected because the odometer could not move.
//
// Updates for one vehicle are serialized and every increment is keyed by the
// fix id, so a replayed fix cannot count a segment twice. The caller must store
// and apply the fixes of one device one at a time, otherwise two fixes stored
// together each see the other as their previous fix.
func (i *Integrator) OnNewFix(ctx context.Context, fix *location.Fix) {
	log := logger.Named("odometer").With(
		zap.String("device_id", fix.DeviceID),
		zap.String("fix_id", fix.ID.String()),
	)

	if fix.UserID == nil {
		log.Debug("Fix has no driver, odometer unchanged")
		return
	}
	userID := *fix.UserID
	log = log.With(zap.String("user_id", userID.String()))

	v, err := i.vehicles.GetByDriver(ctx, userID)
	if err != nil {
		if errors.Is(err, vehicle.ErrVehicleNotFound) {
			log.Debug("No vehicle assigned to driver, odometer unchanged")
			return
		}
		log.Error("Failed to resolve vehicle for odometer update", zap.Error(err))
		return
	}
	log = log.With(zap.String("vehicle_id", v.ID.String()))

	i.locks.Lock(v.ID.String())
	defer i.locks.Unlock(v.ID.String()) //nolint:errcheck

	prev, err := i.fixes.GetPrevious(ctx, fix.DeviceID, userID, fix.ID)
	if err != nil {
		if errors.Is(err, location.ErrFixNotFound) {
			log.Debug("First fix for device and driver, odometer unchanged")
			return
		}
		log.Error("Failed to load previous fix for odometer update", zap.Error(err))
		return
	}

	distance := geo.DistanceMeters(prev.Latitude, prev.Longitude, fix.Latitude, fix.Longitude)
	if distance <= NoiseThresholdMeters || math.IsNaN(distance) {
		log.Debug("Movement below noise threshold", zap.Float64("distance_m", distance))
		return
	}

	km := geo.MetersToKm(distance)
	applied, err := i.vehicles.IncrementOdometer(ctx, v.ID, fix.ID, km)
	if err != nil {
		log.Error("Failed to increment odometer", zap.Float64("distance_m", distance), zap.Error(err))
		return
	}
	if !applied {
		log.Warn("Fix already applied to odometer, skipping", zap.Float64("distance_m", distance))
		return
	}

	log.Debug("Odometer incremented",
		zap.Float64("distance_m", distance),
		zap.Float64("distance_km", km),
	)
}

// SetOdometer overwrites the reading of vehicleID. It reports false when the
// vehicle does not exist.
func (i *Integrator) SetOdometer(ctx context.Context, vehicleID uuid.UUID, reading float64) (bool, error) {
	i.locks.Lock(vehicleID.String())
	defer i.locks.Unlock(vehicleID.String()) //nolint:errcheck

	if err := i.vehicles.SetOdometer(ctx, vehicleID, reading); err != nil {
		if errors.Is(err, vehicle.ErrVehicleNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("set odometer: %w", err)
	}

	logger.Info("Odometer overwritten",
		zap.String("vehicle_id", vehicleID.String()),
		zap.Float64("reading_km", reading),
		zap.String("event", "odometer_set"),
	)
	return true, nil
}

// GetOdometerForUser returns the odometer of the vehicle assigned to userID,
// or nil when the driver has no vehicle.
func (i *Integrator) GetOdometerForUser(ctx context.Context, userID uuid.UUID) (*float64, error) {
	v, err := i.vehicles.GetByDriver(ctx, userID)
	if err != nil {
		if errors.Is(err, vehicle.ErrVehicleNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vehicle for driver: %w", err)
	}

	reading := v.Odometer
	return &reading, nil
}
