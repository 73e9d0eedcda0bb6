package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096 // a 500 character message in any script fits with room to spare

	sendBufferSize = 64
)

// WebSocketClient реалізує інтерфейс chathub.Client
type WebSocketClient struct {
	UserID string
	Conn   *websocket.Conn
	Hub    *ManagerService
	Events EventHandler
	Send   chan models.ChatMessage

	mu        sync.Mutex
	roomID    uint
	closeOnce sync.Once
}

// NewWebSocketClient wraps an upgraded connection.
func NewWebSocketClient(userID string, conn *websocket.Conn, hub *ManagerService, events EventHandler) *WebSocketClient {
	return &WebSocketClient{
		UserID: userID,
		Conn:   conn,
		Hub:    hub,
		Events: events,
		Send:   make(chan models.ChatMessage, sendBufferSize),
	}
}

func (c *WebSocketClient) GetUserID() string                         { return c.UserID }
func (c *WebSocketClient) GetSendChannel() chan<- models.ChatMessage { return c.Send }

func (c *WebSocketClient) GetRoomID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *WebSocketClient) SetRoomID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

// Run запускає 'pumps' для WebSocket
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close закриває Send канал (що зупинить writePump)
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.RequestUnregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("user", c.UserID).Msg("WebSocket read failed")
			}
			break
		}

		var ev models.ClientEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Debug().Err(err).Str("user", c.UserID).Msg("Malformed client event")
			c.Hub.Emit(c.UserID, models.ChatMessage{Type: models.EventError, Content: "malformed event"})
			continue
		}

		// One connection is handled serially; different connections run concurrently.
		c.Events.HandleEvent(c.UserID, ev)
	}
}

// writePump читає повідомлення з каналу Send і записує їх у WebSocket, по одному на кадр.
func (c *WebSocketClient) writePump() {
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
				// Канал закрито хабом, закриваємо з'єднання WS
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(message); err != nil {
				log.Debug().Err(err).Str("user", c.UserID).Msg("WebSocket write failed")
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
