package handler

import (
	"time"

	"backend-tiket/internal/queue"
	"backend-tiket/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 20 * time.Second
)

/*
|--------------------------------------------------------------------------
| WebSocket Feed
|--------------------------------------------------------------------------
*/

// FeedHandler relays hub events to websocket subscribers, one
// subscription per connection.
type FeedHandler struct {
	hub    *realtime.Hub
	logger *zap.Logger
}

func NewFeedHandler(hub *realtime.Hub, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{hub: hub, logger: logger}
}

// Upgrade rejects plain HTTP requests on the feed route.
func (h *FeedHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if b := c.Query("branchId"); b != "" {
		if err := queue.ValidateBranch(b); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "Invalid branch id",
			})
		}
	}
	return c.Next()
}

// Serve blocks for the lifetime of the connection. Nothing is sent on
// connect; the client only sees events published from now on.
func (h *FeedHandler) Serve(c *websocket.Conn) {
	branchID := utils.CopyString(c.Query("branchId"))
	sub := h.hub.Subscribe(branchID, 0)
	log := h.logger.With(zap.String("id", sub.ID), zap.String("branch", branchID))
	log.Info("feed connected", zap.String("remote", c.RemoteAddr().String()))

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(c, sub, done, log)
	}()

	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Read loop; clients never send anything meaningful.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure,
			) {
				log.Warn("feed unexpected close", zap.Error(err))
			}
			break
		}
	}

	close(done)
	h.hub.Unsubscribe(sub)
	<-writerDone
	_ = c.Close()
	log.Info("feed disconnected")
}

// writeLoop is the only writer on c.
func (h *FeedHandler) writeLoop(c *websocket.Conn, sub *realtime.Subscription, done <-chan struct{}, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case ev, ok := <-sub.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Evicted or hub closed: end the connection so the client reconnects.
				_ = c.WriteMessage(websocket.CloseMessage, []byte{})
				_ = c.Close()
				return
			}
			if err := c.WriteJSON(ev.Message()); err != nil {
				log.Debug("feed write error", zap.Error(err))
				_ = c.Close()
				return
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
