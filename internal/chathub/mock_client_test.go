package chathub_test

import (
	"sync"
	"testing"
	"time"

	"pairchat/backend/internal/models"
)

type MockClient struct {
	userID      string
	RecvChannel chan models.ChatMessage

	mu     sync.Mutex
	roomID uint
	closed bool
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID:      userID,
		RecvChannel: make(chan models.ChatMessage, 64),
	}
}

func (c *MockClient) GetUserID() string {
	return c.userID
}

func (c *MockClient) GetRoomID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *MockClient) SetRoomID(roomID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
}

func (c *MockClient) GetSendChannel() chan<- models.ChatMessage {
	return c.RecvChannel
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MockClient) Run() {
	// Not needed for testing
}

// drain returns every event received so far.
func (c *MockClient) drain() []models.ChatMessage {
	var out []models.ChatMessage
	for {
		select {
		case msg := <-c.RecvChannel:
			out = append(out, msg)
		default:
			return out
		}
	}
}

// expect waits briefly for the next event.
func (c *MockClient) expect(t *testing.T) models.ChatMessage {
	t.Helper()
	select {
	case msg := <-c.RecvChannel:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("%s did not receive an event", c.userID)
		return models.ChatMessage{}
	}
}

func ofType(msgs []models.ChatMessage, typ string) []models.ChatMessage {
	var out []models.ChatMessage
	for _, m := range msgs {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}
