package vehicle

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repository.go -destination=mocks/repository_mock.go -package=mocks

type Repository interface {
	Create(ctx context.Context, v *Vehicle) error
	GetByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	// GetByDriver returns the vehicle assigned to driverID or ErrVehicleNotFound.
	GetByDriver(ctx context.Context, driverID uuid.UUID) (*Vehicle, error)
	Update(ctx context.Context, v *Vehicle) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter *Filter) ([]*Vehicle, int64, error)
	AssignDriver(ctx context.Context, id uuid.UUID, driverID *uuid.UUID) error

	// IncrementOdometer adds km to the vehicle odometer and records the
	// entry keyed by fixID in one transaction. It reports false when fixID
	// was already applied.
	IncrementOdometer(ctx context.Context, id, fixID uuid.UUID, km float64) (bool, error)
	// SetOdometer overwrites the odometer reading.
	SetOdometer(ctx context.Context, id uuid.UUID, reading float64) error
}

type Filter struct {
	CompanyID *uuid.UUID
	Status    *Status
	Search    string
	Page      int
	PageSize  int
}
