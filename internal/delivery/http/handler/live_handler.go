package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	domainUser "github.com/icancar/fleet-management-sub000/internal/domain/user"
	"github.com/icancar/fleet-management-sub000/internal/logger"
	"github.com/icancar/fleet-management-sub000/internal/usecase/live"
	"github.com/icancar/fleet-management-sub000/pkg/utils"
)

const (
	DefaultPingInterval = 30 * time.Second

	wsWriteWait = 10 * time.Second
)

// LiveHandler streams a user channel over SSE or WebSocket. Drivers watch
// their own channel; managers and admins may watch any driver they manage.
type LiveHandler struct {
	bus          live.Bus
	users        domainUser.Repository
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewLiveHandler(bus live.Bus, users domainUser.Repository, pingInterval time.Duration, allowedOrigins []string) *LiveHandler {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &LiveHandler{
		bus:          bus,
		users:        users,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func (h *LiveHandler) RegisterRoutes(router *gin.RouterGroup) {
	l := router.Group("/live")
	{
		l.GET("/stream", h.Stream)
		l.GET("/ws", h.WebSocket)
	}
}

// Stream is the SSE transport: a connected event, then every event of the
// channel, with a ping every pingInterval to keep proxies from closing it.
func (h *LiveHandler) Stream(c *gin.Context) {
	target, ok := h.resolveTarget(c)
	if !ok {
		return
	}

	sub := h.bus.Subscribe(target)
	defer h.bus.Unsubscribe(sub)

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	log := logger.Named("live").With(
		zap.String("transport", "sse"),
		zap.String("user_id", target.String()),
		zap.String("subscription_id", sub.ID.String()),
	)
	log.Debug("Live stream opened")
	defer func() {
		log.Debug("Live stream closed", zap.Int64("dropped", sub.Dropped()))
	}()

	if err := writeSSE(c, live.Connected("subscribed to "+target.String())); err != nil {
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			if err := writeSSE(c, ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := writeSSE(c, live.Ping()); err != nil {
				return
			}
		}
	}
}

func writeSSE(c *gin.Context, ev live.Event) error {
	if err := sse.Encode(c.Writer, sse.Event{Event: string(ev.Type), Data: ev}); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

// WebSocket delivers the same JSON events as Stream. Client messages are
// read only to notice the connection closing.
func (h *LiveHandler) WebSocket(c *gin.Context) {
	target, ok := h.resolveTarget(c)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe(target)
	defer h.bus.Unsubscribe(sub)

	log := logger.Named("live").With(
		zap.String("transport", "websocket"),
		zap.String("user_id", target.String()),
		zap.String("subscription_id", sub.ID.String()),
	)
	log.Debug("Live socket opened")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("Live socket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	write := func(ev live.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(ev)
	}

	if err := write(live.Connected("subscribed to " + target.String())); err != nil {
		return
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Debug("Live socket closed", zap.Int64("dropped", sub.Dropped()))
			return
		case ev, open := <-sub.Events():
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := write(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := write(live.Ping()); err != nil {
				return
			}
		}
	}
}

// resolveTarget picks the watched channel from ?user_id=, defaulting to the
// caller, and checks the caller may watch it.
func (h *LiveHandler) resolveTarget(c *gin.Context) (uuid.UUID, bool) {
	actor, ok := actorFrom(c)
	if !ok {
		return uuid.Nil, false
	}

	target := actor.UserID
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid user ID")
			return uuid.Nil, false
		}
		target = id
	}

	if err := domainUser.Authorize(c.Request.Context(), h.users, actor, target); err != nil {
		respondWithError(c, err)
		return uuid.Nil, false
	}
	return target, true
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
