package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/infrastructure/database/postgres/models"
)

// LocationRepository stores fixes in the location_fixes table.
type LocationRepository struct {
	db *DB
}

func NewLocationRepository(db *DB) location.Repository {
	return &LocationRepository{db: db}
}

func (r *LocationRepository) Create(ctx context.Context, fix *location.Fix) error {
	if fix.ID == uuid.Nil {
		fix.ID = uuid.New()
	}
	if fix.CreatedAt.IsZero() {
		fix.CreatedAt = time.Now().UTC()
	}

	if err := r.db.DB.WithContext(ctx).Create(toLocationFixModel(fix)).Error; err != nil {
		if isUniqueViolation(err) {
			return location.ErrFixAlreadyExists
		}
		return fmt.Errorf("failed to create location fix: %w", err)
	}

	return nil
}

func (r *LocationRepository) Find(ctx context.Context, q location.Query) ([]location.Fix, error) {
	db := r.db.DB.WithContext(ctx).
		Model(&models.LocationFixModel{}).
		Where("device_id = ?", q.DeviceID)

	if q.UserID != nil {
		if q.IncludeUnattributed {
			db = db.Where("(user_id = ? OR user_id IS NULL)", *q.UserID)
		} else {
			db = db.Where("user_id = ?", *q.UserID)
		}
	}
	if !q.From.IsZero() {
		db = db.Where("recorded_at >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		db = db.Where("recorded_at < ?", q.To.UTC())
	}

	var dbModels []models.LocationFixModel
	if err := db.Order("recorded_at ASC, id ASC").Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to find location fixes: %w", err)
	}

	fixes := make([]location.Fix, len(dbModels))
	for i := range dbModels {
		fixes[i] = toFixEntity(&dbModels[i])
	}

	return fixes, nil
}

func (r *LocationRepository) GetPrevious(ctx context.Context, deviceID string, userID uuid.UUID, excludeID uuid.UUID) (*location.Fix, error) {
	var dbModel models.LocationFixModel
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ? AND user_id = ? AND id <> ?", deviceID, userID, excludeID).
		Order("recorded_at DESC, id DESC").
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, location.ErrFixNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get previous fix: %w", err)
	}

	fix := toFixEntity(&dbModel)
	return &fix, nil
}

func (r *LocationRepository) DeviceIDsForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]string, error) {
	var ids []string
	err := r.db.DB.WithContext(ctx).
		Model(&models.LocationFixModel{}).
		Distinct("device_id").
		Where("user_id = ? AND recorded_at >= ? AND recorded_at < ?", userID, from.UTC(), to.UTC()).
		Order("device_id ASC").
		Pluck("device_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list devices for user: %w", err)
	}

	return ids, nil
}

func toLocationFixModel(f *location.Fix) *models.LocationFixModel {
	return &models.LocationFixModel{
		ID:         f.ID,
		DeviceID:   f.DeviceID,
		UserID:     f.UserID,
		CompanyID:  f.CompanyID,
		Latitude:   f.Latitude,
		Longitude:  f.Longitude,
		Accuracy:   f.Accuracy,
		RecordedAt: f.Timestamp.UTC(),
		Speed:      f.Speed,
		Bearing:    f.Bearing,
		Altitude:   f.Altitude,
		CreatedAt:  f.CreatedAt,
	}
}

func toFixEntity(m *models.LocationFixModel) location.Fix {
	return location.Fix{
		ID:        m.ID,
		DeviceID:  m.DeviceID,
		UserID:    m.UserID,
		CompanyID: m.CompanyID,
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Accuracy:  m.Accuracy,
		Timestamp: m.RecordedAt.UTC(),
		Speed:     m.Speed,
		Bearing:   m.Bearing,
		Altitude:  m.Altitude,
		CreatedAt: m.CreatedAt,
	}
}
