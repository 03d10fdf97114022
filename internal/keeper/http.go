package keeper

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/neogan74/tribbler/internal/logger"
	"github.com/neogan74/tribbler/internal/migration"
)

// adminEvent is the wire shape streamed to GET /admin/events.
type adminEvent struct {
	Type      string `json:"type"`
	BackendID int    `json:"backend_id"`
	Timestamp int64  `json:"timestamp"`
}

// Subscribe returns a channel fed BackendEvents taken off the keeper's
// events channel, for admin-facing streaming. Each event goes to only one
// reader of that channel, and events arriving while the returned channel's
// 16-slot buffer is full are dropped. The returned channel is closed when
// done is closed.
func (k *Keeper) Subscribe(done <-chan struct{}) <-chan migration.BackendEvent {
	out := make(chan migration.BackendEvent, 16)
	go func() {
		defer close(out)
		for {
			select {
			case ev, ok := <-k.events:
				if !ok {
					return
				}
				select {
				case out <- ev:
				default:
				}
			case <-done:
				return
			}
		}
	}()
	return out
}

// RegisterAdminWebSocket mounts GET /admin/events streaming BackendEvents
// as JSON, grounded on the teacher's KV watch WebSocket handler
// (internal/handlers/kv_watch.go), repurposed from KV-change notification
// to membership-change notification.
func RegisterAdminWebSocket(app *fiber.App, k *Keeper, log logger.Logger) {
	app.Use("/admin/events", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/admin/events", websocket.New(func(c *websocket.Conn) {
		done := make(chan struct{})
		defer close(done)

		events := k.Subscribe(done)

		pingTicker := time.NewTicker(30 * time.Second)
		defer pingTicker.Stop()

		readDone := make(chan struct{})
		go func() {
			defer close(readDone)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				payload := adminEvent{
					Type:      eventTypeName(ev.Type),
					BackendID: ev.ID,
					Timestamp: time.Now().Unix(),
				}
				data, err := json.Marshal(payload)
				if err != nil {
					log.Warn("keeper: failed to marshal admin event", logger.Error(err))
					continue
				}
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Debug("keeper: admin stream write failed", logger.Error(err))
					return
				}
			case <-pingTicker.C:
				if err := c.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
					return
				}
			case <-readDone:
				return
			}
		}
	}))
}

func eventTypeName(t migration.EventType) string {
	if t == migration.Join {
		return "join"
	}
	return "leave"
}
