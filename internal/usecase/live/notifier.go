package live

import (
	"context"

	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/logger"
)

// Notifier turns stored fixes into location_update events.
type Notifier struct {
	bus Bus
}

func NewNotifier(bus Bus) *Notifier {
	return &Notifier{bus: bus}
}

// NotifyLocation addresses the fix to its driver's channel. Fixes without a
// driver are not announced. Publish failures are logged only.
func (n *Notifier) NotifyLocation(ctx context.Context, fix *location.Fix) {
	if fix.UserID == nil {
		return
	}

	if err := n.bus.Publish(ctx, *fix.UserID, LocationUpdate(fix)); err != nil {
		logger.Warn("Failed to publish location update",
			zap.String("user_id", fix.UserID.String()),
			zap.String("device_id", fix.DeviceID),
			zap.Error(err),
		)
	}
}
