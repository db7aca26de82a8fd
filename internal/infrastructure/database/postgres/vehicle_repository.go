package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/icancar/fleet-management-sub000/internal/domain/vehicle"
	"github.com/icancar/fleet-management-sub000/internal/infrastructure/database/postgres/models"
)

type VehicleRepository struct {
	db *DB
}

func NewVehicleRepository(db *DB) vehicle.Repository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Create(ctx context.Context, v *vehicle.Vehicle) error {
	now := time.Now().UTC()
	v.ID = uuid.New()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.Status == "" {
		v.Status = vehicle.StatusActive
	}

	if err := r.db.DB.WithContext(ctx).Create(toVehicleModel(v)).Error; err != nil {
		if isUniqueViolation(err) {
			return vehicle.ErrVehicleAlreadyExists
		}
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	return nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, id uuid.UUID) (*vehicle.Vehicle, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *VehicleRepository) GetByDriver(ctx context.Context, driverID uuid.UUID) (*vehicle.Vehicle, error) {
	return r.first(ctx, "assigned_driver_id = ?", driverID)
}

func (r *VehicleRepository) first(ctx context.Context, cond string, arg interface{}) (*vehicle.Vehicle, error) {
	var dbModel models.VehicleModel
	err := r.db.DB.WithContext(ctx).Where(cond, arg).First(&dbModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, vehicle.ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}

	return toVehicleEntity(&dbModel), nil
}

func (r *VehicleRepository) Update(ctx context.Context, v *vehicle.Vehicle) error {
	v.UpdatedAt = time.Now().UTC()

	result := r.db.DB.WithContext(ctx).
		Model(&models.VehicleModel{}).
		Where("id = ?", v.ID).
		Updates(map[string]interface{}{
			"make":          v.Make,
			"model":         v.Model,
			"year":          v.Year,
			"license_plate": v.LicensePlate,
			"vin":           v.VIN,
			"status":        string(v.Status),
			"company_id":    v.CompanyID,
			"updated_at":    v.UpdatedAt,
		})

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return vehicle.ErrVehicleAlreadyExists
		}
		return fmt.Errorf("failed to update vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return vehicle.ErrVehicleNotFound
	}

	return nil
}

func (r *VehicleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Delete(&models.VehicleModel{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete vehicle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return vehicle.ErrVehicleNotFound
	}

	return nil
}

func (r *VehicleRepository) List(ctx context.Context, filter *vehicle.Filter) ([]*vehicle.Vehicle, int64, error) {
	var dbModels []models.VehicleModel
	var total int64

	db := r.db.DB.WithContext(ctx).Model(&models.VehicleModel{})
	if filter.CompanyID != nil {
		db = db.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", string(*filter.Status))
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		db = db.Where("(license_plate ILIKE ? OR make ILIKE ? OR model ILIKE ?)", search, search, search)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count vehicles: %w", err)
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	err := db.Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&dbModels).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vehicles: %w", err)
	}

	vehicles := make([]*vehicle.Vehicle, len(dbModels))
	for i := range dbModels {
		vehicles[i] = toVehicleEntity(&dbModels[i])
	}

	return vehicles, total, nil
}

func (r *VehicleRepository) AssignDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) error {
	var value interface{}
	if driverID != nil {
		value = *driverID
	}

	result := r.db.DB.WithContext(ctx).
		Model(&models.VehicleModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"assigned_driver_id": value,
			"updated_at":         time.Now().UTC(),
		})

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return vehicle.ErrDriverAlreadyAssigned
		}
		return fmt.Errorf("failed to assign driver: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return vehicle.ErrVehicleNotFound
	}

	return nil
}

func (r *VehicleRepository) IncrementOdometer(ctx context.Context, id, fixID uuid.UUID, km float64) (bool, error) {
	applied := false

	err := r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		entry := &models.OdometerEntryModel{
			ID:         uuid.New(),
			VehicleID:  id,
			FixID:      fixID,
			DistanceKm: km,
			AppliedAt:  now,
		}

		inserted := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "fix_id"}},
			DoNothing: true,
		}).Create(entry)
		if inserted.Error != nil {
			return inserted.Error
		}
		if inserted.RowsAffected == 0 {
			return nil
		}

		updated := tx.Model(&models.VehicleModel{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"odometer":   gorm.Expr("odometer + ?", km),
				"updated_at": now,
			})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return vehicle.ErrVehicleNotFound
		}

		applied = true
		return nil
	})
	if err != nil {
		if errors.Is(err, vehicle.ErrVehicleNotFound) {
			return false, err
		}
		return false, fmt.Errorf("failed to increment odometer: %w", err)
	}

	return applied, nil
}

func (r *VehicleRepository) SetOdometer(ctx context.Context, id uuid.UUID, reading float64) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.VehicleModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"odometer":   reading,
			"updated_at": time.Now().UTC(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to set odometer: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return vehicle.ErrVehicleNotFound
	}

	return nil
}

func toVehicleModel(v *vehicle.Vehicle) *models.VehicleModel {
	return &models.VehicleModel{
		ID:               v.ID,
		CompanyID:        v.CompanyID,
		Make:             v.Make,
		Model:            v.Model,
		Year:             v.Year,
		LicensePlate:     v.LicensePlate,
		VIN:              v.VIN,
		Status:           string(v.Status),
		AssignedDriverID: v.AssignedDriverID,
		Odometer:         v.Odometer,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}
}

func toVehicleEntity(m *models.VehicleModel) *vehicle.Vehicle {
	return &vehicle.Vehicle{
		ID:               m.ID,
		CompanyID:        m.CompanyID,
		Make:             m.Make,
		Model:            m.Model,
		Year:             m.Year,
		LicensePlate:     m.LicensePlate,
		VIN:              m.VIN,
		Status:           vehicle.Status(m.Status),
		AssignedDriverID: m.AssignedDriverID,
		Odometer:         m.Odometer,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
