// Package tracking ingests location fixes and serves the daily routes built
// from them.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moby/locker"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/domain/device"
	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	"github.com/icancar/fleet-management-sub000/internal/route"
	appErrors "github.com/icancar/fleet-management-sub000/pkg/errors"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

// OdometerUpdater is told about every stored fix.
type OdometerUpdater interface {
	OnNewFix(ctx context.Context, fix *location.Fix)
}

// LocationNotifier announces every stored fix to live clients.
type LocationNotifier interface {
	NotifyLocation(ctx context.Context, fix *location.Fix)
}

type Service struct {
	fixes    location.Repository
	devices  device.Repository
	vehicles vehicle.Repository
	users    user.Repository
	odometer OdometerUpdater
	notifier LocationNotifier
	cache    *routeCache
	// deviceLocks serializes storing a fix and applying it to the odometer
	// per device id.
	deviceLocks *locker.Locker
	now         func() time.Time
}

type Option func(*Service)

// WithRouteCache memoizes per device-day routes for ttl.
func WithRouteCache(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cache = newRouteCache(ttl)
		}
	}
}

func NewService(
	fixes location.Repository,
	devices device.Repository,
	vehicles vehicle.Repository,
	users user.Repository,
	odometer OdometerUpdater,
	notifier LocationNotifier,
	opts ...Option,
) *Service {
	s := &Service{
		fixes:       fixes,
		devices:     devices,
		vehicles:    vehicles,
		users:       users,
		odometer:    odometer,
		notifier:    notifier,
		deviceLocks: locker.New(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest stores one fix and then runs the side effects: device bookkeeping,
// odometer and live notification. Only storing the fix can fail the call.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (*Ack, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid location fix", err)
	}
	if req.Timestamp.IsZero() {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid location fix", appErrors.ErrInvalidInput)
	}

	receivedAt := s.now().UTC()
	fix := req.toFix(receivedAt)
	if fix.DeviceID == "" {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid location fix", appErrors.ErrInvalidInput)
	}

	if err := s.attribute(ctx, fix); err != nil {
		return nil, err
	}

	s.deviceLocks.Lock(fix.DeviceID)
	if err := s.fixes.Create(ctx, fix); err != nil {
		s.deviceLocks.Unlock(fix.DeviceID) //nolint:errcheck
		return nil, fmt.Errorf("failed to store location fix: %w", err)
	}

	if _, err := s.devices.Touch(ctx, &device.Touch{
		DeviceID:   fix.DeviceID,
		UserID:     fix.UserID,
		CompanyID:  fix.CompanyID,
		Platform:   req.Platform,
		AppVersion: req.AppVersion,
		SeenAt:     receivedAt,
	}); err != nil {
		logger.Warn("Failed to update device after fix",
			zap.String("device_id", fix.DeviceID),
			zap.String("fix_id", fix.ID.String()),
			zap.Error(err),
		)
	}

	s.odometer.OnNewFix(ctx, fix)
	s.deviceLocks.Unlock(fix.DeviceID) //nolint:errcheck

	s.notifier.NotifyLocation(ctx, fix)

	if s.cache != nil {
		s.cache.invalidate(fix.DeviceID, route.DayKey(fix.Timestamp))
	}

	logger.Debug("Location fix ingested",
		zap.String("fix_id", fix.ID.String()),
		zap.String("device_id", fix.DeviceID),
		zap.Time("timestamp", fix.Timestamp),
	)

	return &Ack{
		ID:         fix.ID,
		DeviceID:   fix.DeviceID,
		Stored:     true,
		ReceivedAt: receivedAt,
	}, nil
}

// attribute fills the driver and company of a fix from the device binding
// and the driver's account.
func (s *Service) attribute(ctx context.Context, fix *location.Fix) error {
	d, err := s.devices.GetByDeviceID(ctx, fix.DeviceID)
	switch {
	case err == nil:
		if !d.IsActive {
			return appErrors.NewAppError("DEVICE_INACTIVE", "Device is deactivated", device.ErrDeviceInactive)
		}
		if fix.UserID == nil {
			fix.UserID = d.UserID
		}
		fix.CompanyID = d.CompanyID
	case errors.Is(err, device.ErrDeviceNotFound):
	default:
		logger.Warn("Failed to look up device for fix",
			zap.String("device_id", fix.DeviceID),
			zap.Error(err),
		)
	}

	if fix.CompanyID == nil && fix.UserID != nil {
		u, err := s.users.GetByID(ctx, *fix.UserID)
		if err != nil {
			logger.Debug("Fix attributed to unknown user",
				zap.String("device_id", fix.DeviceID),
				zap.String("user_id", fix.UserID.String()),
				zap.Error(err),
			)
			return nil
		}
		fix.CompanyID = u.CompanyID
	}
	return nil
}

// IngestBatch ingests fixes in timestamp order so each device's odometer sees
// them in sequence. Results are reported by request position.
func (s *Service) IngestBatch(ctx context.Context, req *BatchIngestRequest) (*BatchIngestResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Invalid batch", err)
	}

	order := make([]int, len(req.Fixes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return req.Fixes[order[a]].Timestamp.Before(req.Fixes[order[b]].Timestamp)
	})

	resp := &BatchIngestResponse{Results: make([]BatchItemResult, len(req.Fixes))}
	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result := BatchItemResult{Index: idx}
		ack, err := s.Ingest(ctx, &req.Fixes[idx])
		if err != nil {
			result.Error = err.Error()
			resp.Rejected++
		} else {
			result.Ack = ack
			resp.Accepted++
		}
		resp.Results[idx] = result
	}
	return resp, nil
}

// GetDriverRoutesForDate returns one route per device the driver used on
// date, ordered by device id and decorated with the driver's vehicle.
func (s *Service) GetDriverRoutesForDate(ctx context.Context, actor user.Actor, userID uuid.UUID, date string) ([]route.DailyRoute, error) {
	from, to, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	if err := user.Authorize(ctx, s.users, actor, userID); err != nil {
		return nil, err
	}

	deviceIDs, err := s.driverDevices(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	perDevice, err := iter.MapErr(deviceIDs, func(deviceID *string) ([]route.DailyRoute, error) {
		return s.dayRoutes(ctx, *deviceID, date, &userID, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build driver routes: %w", err)
	}

	info := s.vehicleInfo(ctx, userID)
	routes := make([]route.DailyRoute, 0, len(deviceIDs))
	for _, rs := range perDevice {
		for _, r := range rs {
			r.UserID = &userID
			r.Vehicle = info
			routes = append(routes, r)
		}
	}
	return routes, nil
}

// GetDeviceDailyRoutes returns the routes of one device, for date or for
// every day when date is empty. A device with no fixes yields an empty list.
func (s *Service) GetDeviceDailyRoutes(ctx context.Context, actor user.Actor, deviceID, date string) ([]route.DailyRoute, error) {
	if err := s.authorizeDevice(ctx, actor, deviceID); err != nil {
		return nil, err
	}

	if date == "" {
		fixes, err := s.fixes.Find(ctx, location.Query{DeviceID: deviceID})
		if err != nil {
			return nil, fmt.Errorf("failed to load fixes: %w", err)
		}
		return route.BuildDailyRoutes(deviceID, fixes, ""), nil
	}

	from, to, err := parseDate(date)
	if err != nil {
		return nil, err
	}
	return s.dayRoutes(ctx, deviceID, date, nil, from, to)
}

// ListDriverRouteDays summarizes every route of a driver between from and to,
// both inclusive.
func (s *Service) ListDriverRouteDays(ctx context.Context, actor user.Actor, userID uuid.UUID, fromDate, toDate string) ([]route.DaySummary, error) {
	from, _, err := parseDate(fromDate)
	if err != nil {
		return nil, err
	}
	_, to, err := parseDate(toDate)
	if err != nil {
		return nil, err
	}
	if !to.After(from) || to.Sub(from) > MaxSummaryDays*24*time.Hour {
		return nil, appErrors.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("Date range must span 1 to %d days", MaxSummaryDays), appErrors.ErrInvalidInput)
	}
	if err := user.Authorize(ctx, s.users, actor, userID); err != nil {
		return nil, err
	}

	deviceIDs, err := s.driverDevices(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	perDevice, err := iter.MapErr(deviceIDs, func(deviceID *string) ([]route.DaySummary, error) {
		fixes, err := s.fixes.Find(ctx, location.Query{
			DeviceID:            *deviceID,
			UserID:              &userID,
			IncludeUnattributed: true,
			From:                from,
			To:                  to,
		})
		if err != nil {
			return nil, err
		}
		routes := route.BuildDailyRoutes(*deviceID, fixes, "")
		summaries := make([]route.DaySummary, 0, len(routes))
		for _, r := range routes {
			summaries = append(summaries, r.Summary())
		}
		return summaries, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to summarize driver routes: %w", err)
	}

	summaries := make([]route.DaySummary, 0)
	for _, ds := range perDevice {
		summaries = append(summaries, ds...)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Date != summaries[j].Date {
			return summaries[i].Date < summaries[j].Date
		}
		return summaries[i].DeviceID < summaries[j].DeviceID
	})
	return summaries, nil
}

// driverDevices is the union of devices bound to userID now and devices that
// reported fixes attributed to userID within the window, sorted.
func (s *Service) driverDevices(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]string, error) {
	bound, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices for driver: %w", err)
	}
	historical, err := s.fixes.DeviceIDsForUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list reporting devices for driver: %w", err)
	}

	seen := make(map[string]struct{}, len(bound)+len(historical))
	ids := make([]string, 0, len(bound)+len(historical))
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, d := range bound {
		add(d.DeviceID)
	}
	for _, id := range historical {
		add(id)
	}
	sort.Strings(ids)
	return ids, nil
}

// dayRoutes builds the routes of one device on one day. With userID set only
// fixes attributed to that driver, or to nobody, are used.
func (s *Service) dayRoutes(ctx context.Context, deviceID, date string, userID *uuid.UUID, from, to time.Time) ([]route.DailyRoute, error) {
	scope := ""
	if userID != nil {
		scope = userID.String()
	}
	var ticket cacheTicket
	if s.cache != nil {
		routes, t, ok := s.cache.get(deviceID, date, scope)
		if ok {
			return routes, nil
		}
		ticket = t
	}

	fixes, err := s.fixes.Find(ctx, location.Query{
		DeviceID:            deviceID,
		UserID:              userID,
		IncludeUnattributed: userID != nil,
		From:                from,
		To:                  to,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load fixes for device %s: %w", deviceID, err)
	}

	routes := route.BuildDailyRoutes(deviceID, fixes, date)
	if s.cache != nil {
		s.cache.put(deviceID, date, scope, ticket, routes)
	}
	return routes, nil
}

func (s *Service) vehicleInfo(ctx context.Context, userID uuid.UUID) *route.VehicleInfo {
	v, err := s.vehicles.GetByDriver(ctx, userID)
	if err != nil {
		if !errors.Is(err, vehicle.ErrVehicleNotFound) {
			logger.Warn("Failed to load vehicle for driver routes",
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
		return nil
	}
	return &route.VehicleInfo{
		ID:           v.ID,
		Make:         v.Make,
		Model:        v.Model,
		Year:         v.Year,
		LicensePlate: v.LicensePlate,
	}
}

// authorizeDevice lets admins read any device, managers the devices of their
// company and drivers the devices bound to them. Unknown devices are allowed
// through and simply have no routes.
func (s *Service) authorizeDevice(ctx context.Context, actor user.Actor, deviceID string) error {
	if actor.IsAdmin() {
		return nil
	}

	d, err := s.devices.GetByDeviceID(ctx, deviceID)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load device: %w", err)
	}

	switch {
	case actor.IsManager() && actor.CompanyID != nil && d.CompanyID != nil && *actor.CompanyID == *d.CompanyID:
		return nil
	case d.UserID != nil && *d.UserID == actor.UserID:
		return nil
	}
	return appErrors.ErrInsufficientPermissions
}

func parseDate(date string) (time.Time, time.Time, error) {
	from, to, err := route.DayBounds(date)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.NewAppError("INVALID_DATE", appErrors.ErrInvalidDate.Error(), appErrors.ErrInvalidDate)
	}
	return from, to, nil
}
