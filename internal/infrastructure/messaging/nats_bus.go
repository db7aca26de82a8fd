// Package messaging carries live events between service instances.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/icancar/fleet-management-sub000/internal/logger"
	"github.com/icancar/fleet-management-sub000/internal/usecase/live"
)

// NATSBus publishes live events to <prefix>.<userID> and feeds every event
// seen on <prefix>.* into the local hub, so a client connected to any
// instance receives fixes ingested by all of them.
type NATSBus struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	hub    *live.Hub
	prefix string
	log    *zap.Logger
}

var _ live.Bus = (*NATSBus)(nil)

func NewNATSBus(url, prefix string, hub *live.Hub) (*NATSBus, error) {
	b := &NATSBus{
		hub:    hub,
		prefix: strings.TrimSuffix(prefix, "."),
		log:    logger.Named("nats-bus"),
	}

	conn, err := nats.Connect(url,
		nats.Name("fleet-tracking-live"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			b.log.Warn("Disconnected from NATS", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.log.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	b.conn = conn

	sub, err := conn.Subscribe(b.prefix+".*", b.handle)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe to %s.*: %w", b.prefix, err)
	}
	b.sub = sub

	b.log.Info("Live bus connected to NATS",
		zap.String("url", url),
		zap.String("subject", b.prefix+".*"),
	)
	return b, nil
}

func (b *NATSBus) Subject(userID uuid.UUID) string {
	return b.prefix + "." + userID.String()
}

func (b *NATSBus) Publish(_ context.Context, userID uuid.UUID, ev live.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal live event: %w", err)
	}
	return b.conn.Publish(b.Subject(userID), data)
}

func (b *NATSBus) Subscribe(userID uuid.UUID) *live.Subscription {
	return b.hub.Subscribe(userID)
}

func (b *NATSBus) Unsubscribe(sub *live.Subscription) {
	b.hub.Unsubscribe(sub)
}

func (b *NATSBus) handle(msg *nats.Msg) {
	raw := strings.TrimPrefix(msg.Subject, b.prefix+".")
	userID, err := uuid.Parse(raw)
	if err != nil {
		b.log.Warn("Ignoring live event with invalid subject", zap.String("subject", msg.Subject))
		return
	}

	var ev live.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		b.log.Warn("Ignoring undecodable live event",
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return
	}

	b.hub.Deliver(userID, ev)
}

// Close stops consuming and drains pending publishes.
func (b *NATSBus) Close() error {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			b.log.Warn("Failed to unsubscribe live subject", zap.Error(err))
		}
	}
	if b.conn != nil {
		return b.conn.Drain()
	}
	return nil
}
