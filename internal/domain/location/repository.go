package location

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=repository.go -destination=mocks/repository_mock.go -package=mocks

// Repository is the durable store of location fixes.
type Repository interface {
	Create(ctx context.Context, fix *Fix) error
	// Find returns the fixes matching q ordered by timestamp ascending.
	Find(ctx context.Context, q Query) ([]Fix, error)
	// GetPrevious returns the most recent fix for deviceID and userID other
	// than excludeID, or ErrFixNotFound.
	GetPrevious(ctx context.Context, deviceID string, userID uuid.UUID, excludeID uuid.UUID) (*Fix, error)
	// DeviceIDsForUser lists the distinct device ids that reported fixes
	// attributed to userID within [from, to).
	DeviceIDsForUser(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]string, error)
}

// Query filters fixes for one device.
type Query struct {
	DeviceID string
	// UserID restricts to fixes attributed to that user. Unattributed fixes
	// are included when IncludeUnattributed is set.
	UserID              *uuid.UUID
	IncludeUnattributed bool
	// From is inclusive and To exclusive. Zero values leave the bound open.
	From time.Time
	To   time.Time
}
