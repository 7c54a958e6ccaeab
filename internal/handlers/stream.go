package handlers

import (
	"bufio"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// sessionFeedKeepAlive is how often an idle SSE stream receives a comment line.
const sessionFeedKeepAlive = 25 * time.Second

// StreamSessions is a Server-Sent Events feed of the caller's session changes.
func (h *Handler) StreamSessions(c *fiber.Ctx) error {
	owner, ok := requestOwner(c, c.Query("userId"))
	if !ok {
		return unauthorized(c)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	sub := h.hub.Subscribe(owner)
	log := h.log.With(zap.String("user_id", owner))

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(sub)

		ticker := time.NewTicker(sessionFeedKeepAlive)
		defer ticker.Stop()

		fmt.Fprint(w, ": connected\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case msg, open := <-sub.C:
				if !open {
					return
				}
				fmt.Fprintf(w, "data: %s\n\n", msg)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			// a failed flush means the client went away
			if err := w.Flush(); err != nil {
				log.Debug("session stream closed", zap.Error(err))
				return
			}
		}
	})
	return nil
}

// QueryToken authenticates a ?token= query parameter. EventSource and
// WebSocket clients in browsers cannot set an Authorization header.
func (h *Handler) QueryToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return c.Next()
		}
		claims, err := h.auth.ParseToken(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		c.Locals("userId", claims.UserID)
		c.Locals("email", claims.Email)
		return c.Next()
	}
}

// SessionSocketUpgrade rejects plain HTTP requests and resolves the feed owner
// before the connection is upgraded.
func (h *Handler) SessionSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		owner, ok := requestOwner(c, c.Query("userId"))
		if !ok {
			return unauthorized(c)
		}
		c.Locals("owner", owner)
		return c.Next()
	}
}

// SessionSocket pushes session events to a WebSocket client until it disconnects.
func (h *Handler) SessionSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		owner, _ := conn.Locals("owner").(string)
		if owner == "" {
			conn.Close()
			return
		}

		sub := h.hub.Subscribe(owner)
		defer h.hub.Unsubscribe(sub)

		// the read loop only detects disconnects; clients send keepalives
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case msg, open := <-sub.C:
				if !open {
					conn.Close()
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.log.Debug("session socket write failed", zap.String("user_id", owner), zap.Error(err))
					return
				}
			case <-closed:
				return
			}
		}
	})
}
