package messaging

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/usecase/live"
)

func newTestBus() (*NATSBus, *live.Hub) {
	hub := live.NewHub(4)
	return &NATSBus{hub: hub, prefix: "fleet.live", log: zap.NewNop()}, hub
}

func TestNATSBus_Subject(t *testing.T) {
	bus, _ := newTestBus()
	id := uuid.MustParse("6f1c1f1e-9b0e-4a4e-8c59-3e0c6c3f0a11")
	assert.Equal(t, "fleet.live.6f1c1f1e-9b0e-4a4e-8c59-3e0c6c3f0a11", bus.Subject(id))
}

func TestNATSBus_HandleDeliversToLocalHub(t *testing.T) {
	bus, hub := newTestBus()
	userID := uuid.New()
	sub := hub.Subscribe(userID)

	ev := live.LocationUpdate(&location.Fix{ID: uuid.New(), DeviceID: "D7", UserID: &userID})
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	bus.handle(&nats.Msg{Subject: bus.Subject(userID), Data: data})

	got := <-sub.Events()
	assert.Equal(t, live.EventLocationUpdate, got.Type)
	require.NotNil(t, got.Data)
	assert.Equal(t, "D7", got.Data.DeviceID)
}

func TestNATSBus_HandleIgnoresGarbage(t *testing.T) {
	bus, hub := newTestBus()
	userID := uuid.New()
	sub := hub.Subscribe(userID)

	bus.handle(&nats.Msg{Subject: "fleet.live.not-a-uuid", Data: []byte(`{"type":"ping"}`)})
	bus.handle(&nats.Msg{Subject: bus.Subject(userID), Data: []byte(`{not json`)})

	assert.Len(t, sub.Events(), 0)
}
