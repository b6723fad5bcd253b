package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"socialgraph/internal/middleware"
	"socialgraph/internal/models"
	"socialgraph/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	wsUserLocal    = "ws_user_id"
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// requireWebSocketActor rejects non-upgrade requests and anonymous callers
// before the connection is upgraded.
func (s *Server) requireWebSocketActor(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	userID, ok := middleware.ActorFrom(c).ID()
	if !ok {
		return respondError(c, models.NewUnauthenticatedError())
	}
	if s.subscriber == nil {
		return respondError(c, models.NewStoreError("Realtime notifications are unavailable", nil))
	}
	c.Locals(wsUserLocal, userID)
	return c.Next()
}

// NotificationStream relays the caller's realtime events until the client
// disconnects or the server shuts down.
func (s *Server) NotificationStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		observability.WebSocketConnections.Inc()
		defer observability.WebSocketConnections.Dec()

		userID, _ := conn.Locals(wsUserLocal).(string)
		ctx, cancel := context.WithCancel(s.shutdownCtx)
		defer cancel()

		var mu sync.Mutex
		write := func(messageType int, data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			return conn.WriteMessage(messageType, data)
		}

		err := s.subscriber.SubscribeUser(ctx, userID, func(payload string) {
			if err := write(websocket.TextMessage, []byte(payload)); err != nil {
				cancel()
			}
		})
		if err != nil {
			observability.Logger.Error("notification stream subscribe failed",
				slog.String("user_id", userID), slog.String("error", err.Error()))
			_ = write(websocket.TextMessage, []byte(`{"error":"subscription failed"}`))
			return
		}

		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					_ = conn.Close()
					return
				case <-ticker.C:
					if err := write(websocket.PingMessage, nil); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Clients never send anything meaningful; reading detects disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}
