package websocket

import (
	"context"

	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes mounts GET /ws/chat. An optional session_id query binds the connection
// to an existing session.
func RegisterRoutes(app fiber.Router, hub *Hub, svc service.IChatService, log logger.ILogger) {
	ws := app.Group("/ws")
	ws.Use(func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/chat", websocket.New(func(c *websocket.Conn) {
		ServeWs(hub, c, c.Query("session_id"), svc, log)
	}))
}

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, c *websocket.Conn, sessionId string, svc service.IChatService, log logger.ILogger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &Client{
		Hub:       hub,
		Conn:      c,
		SessionId: sessionId,
		Send:      make(chan []byte, 256),
		service:   svc,
		logger:    log,
	}
	client.Hub.register <- client

	go client.writePump()
	client.readPump(ctx) // the handler goroutine must stay alive for the connection
}
