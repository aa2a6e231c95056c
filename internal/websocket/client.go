package websocket

import (
	"context"
	"encoding/json"
	"time"

	"finagent-be/internal/dto"
	"finagent-be/internal/pkg/logger"
	"finagent-be/internal/pkg/serverutils"
	"finagent-be/internal/service"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

// Frame types written to the socket.
const (
	FrameStatus = "status"
	FrameAnswer = "answer"
	FrameError  = "error"
)

type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// SessionId is owned by the hub goroutine after registration.
	SessionId string

	// Buffered channel of outbound messages.
	Send chan []byte

	service service.IChatService
	logger  logger.ILogger
}

// readPump runs one chat turn per inbound message, in order.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	sessionId := c.SessionId
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WS_CHAT", "Unexpected close", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var req dto.ChatRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.write(Frame{Type: FrameError, Data: map[string]string{"message": "invalid message"}})
			continue
		}
		if req.SessionId == "" {
			req.SessionId = sessionId
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			c.write(Frame{Type: FrameError, Data: map[string]string{"message": err.Error()}})
			continue
		}

		c.write(Frame{Type: FrameStatus, Data: map[string]string{"status": "thinking"}})

		res, err := c.service.Chat(ctx, &req)
		if err != nil {
			c.logger.Error("WS_CHAT", "Chat turn failed", map[string]interface{}{"error": err.Error()})
			c.write(Frame{Type: FrameError, Data: map[string]string{"message": err.Error()}})
			continue
		}

		if res.SessionId != sessionId {
			sessionId = res.SessionId
			c.Hub.bind <- binding{client: c, sessionId: sessionId}
		}

		data, _ := json.Marshal(Frame{Type: FrameAnswer, Data: res})
		c.Hub.Send(sessionId, data)
	}
}

// write queues a frame for this connection only.
func (c *Client) write(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
		c.logger.Warn("WS_CHAT", "Send buffer full, dropping frame", map[string]interface{}{"type": f.Type})
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
