package ws

import (
	"encoding/json"
	"log"
	"time"

	apiError "github.com/chisomudeze/marketa/errors"
	"github.com/chisomudeze/marketa/models"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
)

// MessageSender persists and dispatches one message on behalf of the bound
// identity. Satisfied by services.MessageService.
type MessageSender interface {
	SendMessage(senderID uint, request *models.SendMessageRequest) (*models.MessageResponse, *apiError.Error)
}

// Client is one live websocket connection together with the identity bound at
// handshake time. userID is zero for anonymous connections; the identity is
// scoped to this client alone, never shared across connections.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	svc    MessageSender
	userID uint
	email  string
	topic  string
}

type errorFrame struct {
	Error string `json:"error"`
}

func (c *Client) sendError(message string) {
	payload, _ := json.Marshal(errorFrame{Error: message})
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { _ = c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read error: %v", err)
			}
			break
		}

		var request models.SendMessageRequest
		if err := json.Unmarshal(raw, &request); err != nil {
			c.sendError("invalid_json")
			continue
		}

		// The handshake never rejects bad credentials; actions that need an
		// identity reject here instead.
		if c.userID == 0 {
			c.sendError("unauthenticated")
			continue
		}
		if request.Receiver.ID == 0 || request.Item.ID == 0 || request.MessageContent == "" {
			c.sendError("missing_fields")
			continue
		}

		if _, apiErr := c.svc.SendMessage(c.userID, &request); apiErr != nil {
			log.Printf("ws send from user %d failed: %v", c.userID, apiErr)
			c.sendError(apiErr.Message)
			continue
		}
		// No ack frame: the push to the sender's own topic is the echo.
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) Serve() {
	go c.writePump()
	c.readPump()
}
