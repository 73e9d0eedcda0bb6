package chathub

import "pairchat/backend/internal/models"

// Client is the interface for any type of connection (e.g., WebSocket, Telegram).
// It abstracts the underlying communication mechanism, allowing the hub to manage
// different client types uniformly.
type Client interface {
	// GetUserID returns the unique identifier for the user associated with the client.
	GetUserID() string
	// GetRoomID returns the room the client currently receives broadcasts for,
	// or zero.
	GetRoomID() uint
	// SetRoomID is called by the hub when the client joins or leaves a room channel.
	SetRoomID(uint)

	// GetSendChannel returns the channel to which the ManagerService (hub) sends
	// messages intended for this specific client. It is a send-only channel.
	GetSendChannel() chan<- models.ChatMessage

	// Run starts the client's read and write pumps, which handle incoming and
	// outgoing messages.
	Run()
	// Close gracefully shuts down the client's connection and associated channels.
	// It is called at most once, by the hub.
	Close()
}

// EventHandler consumes the actions a client sends. MatcherService implements it.
type EventHandler interface {
	HandleEvent(userID string, ev models.ClientEvent)
}

// Transport is what the engine needs from the connection layer.
type Transport interface {
	JoinChannel(userID string, roomID uint)
	LeaveChannel(userID string, roomID uint)
	Broadcast(roomID uint, msg models.ChatMessage, excludeUserID string)
	Emit(userID string, msg models.ChatMessage)
}
