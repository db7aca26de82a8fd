package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/logger"
	pkgmqtt "github.com/icancar/fleet-management-sub000/pkg/mqtt"
)

// MQTTIngestionConfig describes the topic and MQTT connection parameters.
type MQTTIngestionConfig struct {
	ClientConfig  *pkgmqtt.Config
	LocationTopic string
	QoS           byte
}

// Broker is the subset of the MQTT client used for ingestion.
type Broker interface {
	Connect() error
	Subscribe(topic string, qos byte, handler pkgmqtt.MessageHandler) error
	Unsubscribe(topics ...string) error
	Disconnect()
	IsConnected() bool
}

// ErrBrokerDisconnected is reported by Ping while the broker link is down.
var ErrBrokerDisconnected = errors.New("mqtt broker disconnected")

// MQTTIngestionClient wires MQTT messages into the ingestion processor.
type MQTTIngestionClient struct {
	cfg       *MQTTIngestionConfig
	client    Broker
	processor *Processor

	mu      sync.Mutex
	started bool
}

func NewMQTTIngestionClient(cfg *MQTTIngestionConfig, processor *Processor) (*MQTTIngestionClient, error) {
	if cfg == nil || cfg.ClientConfig == nil {
		return nil, errors.New("mqtt ingestion config is not configured")
	}
	return newMQTTIngestionClient(cfg, pkgmqtt.NewClient(cfg.ClientConfig), processor)
}

func newMQTTIngestionClient(cfg *MQTTIngestionConfig, client Broker, processor *Processor) (*MQTTIngestionClient, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if cfg.LocationTopic == "" {
		return nil, errors.New("no MQTT location topic configured")
	}

	return &MQTTIngestionClient{
		cfg:       cfg,
		client:    client,
		processor: processor,
	}, nil
}

// Start establishes the MQTT connection and subscribes to the location topic.
func (c *MQTTIngestionClient) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	if err := c.client.Subscribe(c.cfg.LocationTopic, c.cfg.QoS, c.handleLocationMessage); err != nil {
		c.client.Disconnect()
		return fmt.Errorf("subscribe failed for topic %s: %w", c.cfg.LocationTopic, err)
	}

	logger.Info("Listening for MQTT location fixes", zap.String("topic", c.cfg.LocationTopic))
	c.started = true
	return nil
}

// Stop unsubscribes and disconnects from the broker.
func (c *MQTTIngestionClient) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return
	}

	if err := c.client.Unsubscribe(c.cfg.LocationTopic); err != nil {
		logger.Warn("Failed to unsubscribe from MQTT topic", zap.Error(err))
	}

	c.client.Disconnect()
	c.started = false
}

// Ping reports whether the client is subscribed over a live connection.
func (c *MQTTIngestionClient) Ping(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started || !c.client.IsConnected() {
		return ErrBrokerDisconnected
	}
	return nil
}

func (c *MQTTIngestionClient) handleLocationMessage(topic string, payload []byte) {
	msg, err := ParseLocationMessage(c.cfg.LocationTopic, topic, payload)
	if err != nil {
		logger.Warn("Invalid location payload", zap.String("topic", topic), zap.Error(err))
		c.processor.metrics.Update(func(m *IngestMetrics) {
			m.MessagesReceived++
			m.MessagesInvalid++
		})
		return
	}

	if err := c.processor.Submit(msg); err != nil {
		logger.Warn("Rejected location fix",
			zap.String("topic", topic),
			zap.String("device_id", msg.DeviceID),
			zap.Error(err),
		)
	}
}
