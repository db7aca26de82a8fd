package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainDevice "github.com/icancar/fleet-management-sub000/internal/domain/device"
	"github.com/icancar/fleet-management-sub000/internal/infrastructure/database/postgres/models"
)

var deviceSortColumns = map[string]string{
	"created_at":   "created_at",
	"last_seen_at": "last_seen_at",
	"device_id":    "device_id",
	"fix_count":    "fix_count",
}

// DeviceRepository implements device.Repository on postgres.
type DeviceRepository struct {
	db *DB
}

func NewDeviceRepository(db *DB) domainDevice.Repository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, d *domainDevice.Device) error {
	now := time.Now().UTC()
	d.ID = uuid.New()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.IsActive = true

	if err := r.db.DB.WithContext(ctx).Create(toDeviceModel(d)).Error; err != nil {
		if isUniqueViolation(err) {
			return domainDevice.ErrDeviceAlreadyExists
		}
		return fmt.Errorf("failed to create device: %w", err)
	}

	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).Where("id = ?", id).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).Where("device_id = ?", deviceID).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) Update(ctx context.Context, d *domainDevice.Device) error {
	d.UpdatedAt = time.Now().UTC()

	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"platform":    d.Platform,
			"app_version": d.AppVersion,
			"company_id":  d.CompanyID,
			"is_active":   d.IsActive,
			"updated_at":  d.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to deactivate device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) AssignUser(ctx context.Context, id uuid.UUID, userID *uuid.UUID) error {
	var value interface{}
	if userID != nil {
		value = *userID
	}

	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"user_id":    value,
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to assign device user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

// Touch inserts the device on first contact and otherwise bumps its counters.
// Attribution fields are only overwritten when the fix carries them.
func (r *DeviceRepository) Touch(ctx context.Context, t *domainDevice.Touch) (*domainDevice.Device, error) {
	now := time.Now().UTC()
	seen := t.SeenAt.UTC()
	if seen.IsZero() {
		seen = now
	}

	dbModel := &models.DeviceModel{
		ID:         uuid.New(),
		DeviceID:   t.DeviceID,
		UserID:     t.UserID,
		CompanyID:  t.CompanyID,
		Platform:   t.Platform,
		AppVersion: t.AppVersion,
		LastSeenAt: &seen,
		FixCount:   1,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	assignments := map[string]interface{}{
		"last_seen_at": gorm.Expr("GREATEST(devices.last_seen_at, EXCLUDED.last_seen_at)"),
		"fix_count":    gorm.Expr("devices.fix_count + 1"),
		"updated_at":   now,
	}
	if t.UserID != nil {
		assignments["user_id"] = *t.UserID
	}
	if t.CompanyID != nil {
		assignments["company_id"] = *t.CompanyID
	}
	if t.Platform != nil {
		assignments["platform"] = *t.Platform
	}
	if t.AppVersion != nil {
		assignments["app_version"] = *t.AppVersion
	}

	err := r.db.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "device_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(dbModel).Error
	if err != nil {
		return nil, fmt.Errorf("failed to touch device: %w", err)
	}

	return r.GetByDeviceID(ctx, t.DeviceID)
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domainDevice.Device, error) {
	var dbModels []models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("device_id ASC").
		Find(&dbModels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user devices: %w", err)
	}

	devices := make([]*domainDevice.Device, len(dbModels))
	for i := range dbModels {
		devices[i] = toDeviceEntity(&dbModels[i])
	}

	return devices, nil
}

func (r *DeviceRepository) GetStatistics(ctx context.Context, companyID *uuid.UUID) (*domainDevice.Statistics, error) {
	stats := &domainDevice.Statistics{}

	query := `
        SELECT
            COUNT(*) AS total_devices,
            COUNT(*) FILTER (WHERE is_active) AS active_devices,
            COUNT(*) FILTER (WHERE last_seen_at >= NOW() - INTERVAL '5 minutes') AS online_devices,
            COUNT(*) FILTER (WHERE user_id IS NULL) AS unassigned_devices,
            COALESCE(SUM(fix_count), 0) AS total_fixes
        FROM devices`
	args := []interface{}{}
	if companyID != nil {
		query += " WHERE company_id = ?"
		args = append(args, *companyID)
	}

	if err := r.db.DB.WithContext(ctx).Raw(query, args...).Scan(stats).Error; err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return stats, nil
}

func (r *DeviceRepository) List(ctx context.Context, filter *domainDevice.Filter) ([]*domainDevice.Device, int64, error) {
	var dbModels []models.DeviceModel
	var total int64

	db := r.db.DB.WithContext(ctx).Model(&models.DeviceModel{})

	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.CompanyID != nil {
		db = db.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.IsActive != nil {
		db = db.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsOnline != nil {
		cutoff := time.Now().UTC().Add(-domainDevice.OnlineWindow)
		if *filter.IsOnline {
			db = db.Where("last_seen_at >= ?", cutoff)
		} else {
			db = db.Where("(last_seen_at IS NULL OR last_seen_at < ?)", cutoff)
		}
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		db = db.Where("(device_id ILIKE ? OR platform ILIKE ?)", search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	sortBy, ok := deviceSortColumns[filter.SortBy]
	if !ok {
		sortBy = "created_at"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)

	err := db.Order(fmt.Sprintf("%s %s", sortBy, sortOrder)).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&dbModels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]*domainDevice.Device, len(dbModels))
	for i := range dbModels {
		devices[i] = toDeviceEntity(&dbModels[i])
	}

	return devices, total, nil
}

func toDeviceModel(d *domainDevice.Device) *models.DeviceModel {
	return &models.DeviceModel{
		ID:         d.ID,
		DeviceID:   d.DeviceID,
		UserID:     d.UserID,
		CompanyID:  d.CompanyID,
		Platform:   d.Platform,
		AppVersion: d.AppVersion,
		LastSeenAt: d.LastSeenAt,
		FixCount:   d.FixCount,
		IsActive:   d.IsActive,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func toDeviceEntity(m *models.DeviceModel) *domainDevice.Device {
	return &domainDevice.Device{
		ID:         m.ID,
		DeviceID:   m.DeviceID,
		UserID:     m.UserID,
		CompanyID:  m.CompanyID,
		Platform:   m.Platform,
		AppVersion: m.AppVersion,
		LastSeenAt: m.LastSeenAt,
		FixCount:   m.FixCount,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
