package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icancar/fleet-management-sub000/internal/usecase/tracking"
	pkgmqtt "github.com/icancar/fleet-management-sub000/pkg/mqtt"
)

type recordingIngester struct {
	mu    sync.Mutex
	seen  map[string][]float64
	fail  bool
	block chan struct{}
}

func newRecordingIngester() *recordingIngester {
	return &recordingIngester{seen: make(map[string][]float64)}
}

func (r *recordingIngester) Ingest(_ context.Context, req *tracking.IngestRequest) (*tracking.Ack, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[req.DeviceID] = append(r.seen[req.DeviceID], *req.Latitude)
	if r.fail {
		return nil, errors.New("store down")
	}
	return &tracking.Ack{ID: uuid.New(), DeviceID: req.DeviceID, Stored: true}, nil
}

func fixFor(device string, lat float64) *tracking.IngestRequest {
	lon, acc := 19.8, 5.0
	return &tracking.IngestRequest{
		DeviceID:  device,
		Latitude:  &lat,
		Longitude: &lon,
		Accuracy:  &acc,
		Timestamp: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDeviceIDFromTopic(t *testing.T) {
	tests := []struct {
		pattern, topic, want string
	}{
		{"fleet/+/location", "fleet/dev-1/location", "dev-1"},
		{"fleet/+/location", "fleet/dev-1/status", ""},
		{"fleet/+/#", "fleet/dev-1/location/raw", "dev-1"},
		{"fleet/+/location", "other/dev-1/location", ""},
		{"fleet/#", "fleet/dev-1/location", ""},
		{"fleet/+/location", "fleet", ""},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, DeviceIDFromTopic(tt.pattern, tt.topic))
		})
	}
}

func TestParseLocationMessage(t *testing.T) {
	payload := []byte(`{"latitude":45.1,"longitude":19.8,"accuracy":4,"timestamp":"2024-03-01T10:00:00Z","speed":10}`)

	msg, err := ParseLocationMessage("fleet/+/location", "fleet/abc/location", payload)
	require.NoError(t, err)
	assert.Equal(t, "abc", msg.DeviceID)
	require.NotNil(t, msg.Latitude)
	assert.Equal(t, 45.1, *msg.Latitude)

	withID := []byte(`{"device_id":"explicit","latitude":1,"longitude":1,"accuracy":1,"timestamp":"2024-03-01T10:00:00Z"}`)
	msg, err = ParseLocationMessage("fleet/+/location", "fleet/abc/location", withID)
	require.NoError(t, err)
	assert.Equal(t, "explicit", msg.DeviceID)

	_, err = ParseLocationMessage("fleet/+/location", "fleet/abc/location", []byte("{"))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestValidateLocationMessage(t *testing.T) {
	assert.NoError(t, ValidateLocationMessage(fixFor("dev-1", 45)))

	var verr *ValidationError
	require.ErrorAs(t, ValidateLocationMessage(fixFor("", 45)), &verr)
	assert.Equal(t, "device_id", verr.Field)

	require.ErrorAs(t, ValidateLocationMessage(fixFor("dev-1", 91)), &verr)
	assert.Equal(t, "latitude", verr.Field)

	noTime := fixFor("dev-1", 45)
	noTime.Timestamp = time.Time{}
	assert.Error(t, ValidateLocationMessage(noTime))
}

func TestProcessor_PreservesPerDeviceOrder(t *testing.T) {
	ingester := newRecordingIngester()
	p := NewProcessor(ingester, 4, 400)
	p.Start()

	for i := 0; i < 50; i++ {
		for _, device := range []string{"a", "b", "c"} {
			require.NoError(t, p.Submit(fixFor(device, float64(i))))
		}
	}
	p.Stop()

	for _, device := range []string{"a", "b", "c"} {
		got := ingester.seen[device]
		require.Len(t, got, 50, device)
		for i, lat := range got {
			assert.Equal(t, float64(i), lat, fmt.Sprintf("device %s position %d", device, i))
		}
	}

	m := p.GetMetrics()
	assert.Equal(t, int64(150), m.MessagesReceived)
	assert.Equal(t, int64(150), m.MessagesProcessed)
	assert.Zero(t, m.MessagesDropped)
}

func TestProcessor_CountsInvalidAndFailed(t *testing.T) {
	ingester := newRecordingIngester()
	ingester.fail = true
	p := NewProcessor(ingester, 1, 10)
	p.Start()

	assert.Error(t, p.Submit(fixFor("dev-1", 120)))
	require.NoError(t, p.Submit(fixFor("dev-1", 45)))
	p.Stop()

	m := p.GetMetrics()
	assert.Equal(t, int64(2), m.MessagesReceived)
	assert.Equal(t, int64(1), m.MessagesInvalid)
	assert.Equal(t, int64(1), m.MessagesFailed)

	assert.ErrorIs(t, p.Submit(fixFor("dev-1", 45)), ErrProcessorStopped)
}

func TestProcessor_DropsWhenShardFull(t *testing.T) {
	ingester := newRecordingIngester()
	ingester.block = make(chan struct{})
	p := NewProcessor(ingester, 1, 1)
	p.Start()

	// One message is held by the worker, one fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(fixFor("dev-1", 1)))
	}
	close(ingester.block)
	p.Stop()

	m := p.GetMetrics()
	assert.Equal(t, int64(10), m.MessagesReceived)
	assert.GreaterOrEqual(t, m.MessagesDropped, int64(8))
	assert.Equal(t, m.MessagesReceived, m.MessagesProcessed+m.MessagesDropped)
}

type fakeBroker struct {
	connected    bool
	handler      pkgmqtt.MessageHandler
	topic        string
	unsubscribed []string
}

func (f *fakeBroker) Connect() error { f.connected = true; return nil }

func (f *fakeBroker) Subscribe(topic string, _ byte, handler pkgmqtt.MessageHandler) error {
	f.topic = topic
	f.handler = handler
	return nil
}

func (f *fakeBroker) Unsubscribe(topics ...string) error {
	f.unsubscribed = append(f.unsubscribed, topics...)
	return nil
}

func (f *fakeBroker) Disconnect() { f.connected = false }

func (f *fakeBroker) IsConnected() bool { return f.connected }

func TestMQTTIngestionClient_RoutesMessagesToProcessor(t *testing.T) {
	ingester := newRecordingIngester()
	p := NewProcessor(ingester, 2, 10)
	p.Start()

	broker := &fakeBroker{}
	client, err := newMQTTIngestionClient(&MQTTIngestionConfig{LocationTopic: "fleet/+/location", QoS: 1}, broker, p)
	require.NoError(t, err)
	require.NoError(t, client.Start())
	assert.True(t, broker.connected)
	assert.Equal(t, "fleet/+/location", broker.topic)

	broker.handler("fleet/truck-7/location", []byte(`{"latitude":44.8,"longitude":20.4,"accuracy":3,"timestamp":"2024-03-01T10:00:00Z"}`))
	broker.handler("fleet/truck-7/location", []byte(`not json`))

	client.Stop()
	p.Stop()

	assert.False(t, broker.connected)
	assert.Equal(t, []string{"fleet/+/location"}, broker.unsubscribed)
	assert.Equal(t, []float64{44.8}, ingester.seen["truck-7"])
	assert.Equal(t, int64(1), p.GetMetrics().MessagesInvalid)
}

func TestMQTTIngestionClient_Ping(t *testing.T) {
	p := NewProcessor(newRecordingIngester(), 1, 1)
	broker := &fakeBroker{}
	client, err := newMQTTIngestionClient(&MQTTIngestionConfig{LocationTopic: "fleet/+/location"}, broker, p)
	require.NoError(t, err)

	assert.ErrorIs(t, client.Ping(context.Background()), ErrBrokerDisconnected)

	require.NoError(t, client.Start())
	assert.NoError(t, client.Ping(context.Background()))

	broker.connected = false
	assert.ErrorIs(t, client.Ping(context.Background()), ErrBrokerDisconnected)

	client.Stop()
	assert.ErrorIs(t, client.Ping(context.Background()), ErrBrokerDisconnected)
}
