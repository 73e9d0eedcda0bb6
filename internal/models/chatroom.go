package models

import "time"

// RoomKind tells how a room was formed.
type RoomKind string

const (
	RoomKindRandom  RoomKind = "random"
	RoomKindKeyword RoomKind = "keyword"
	RoomKindPrivate RoomKind = "private"
)

// ChatRoom represents a 1-on-1 chat session between two users.
// Rooms are deactivated, never deleted, so history stays reachable by key.
type ChatRoom struct {
	// ID is the surrogate key assigned by the database.
	ID uint `gorm:"primaryKey" json:"id"`
	// User1ID is the anonymous ID of the user who created or started the room.
	User1ID string `gorm:"size:100;not null;index" json:"user1_id"`
	// User2ID is empty only while a private room waits for its peer.
	User2ID string `gorm:"size:100;index" json:"user2_id"`
	// Key is the private-room code. Keys are never reused.
	Key *string `gorm:"column:room_key;size:16;uniqueIndex" json:"key,omitempty"`
	// Kind is random, keyword or private.
	Kind RoomKind `gorm:"size:16;not null" json:"kind"`
	// IsPrivate marks rooms joined by key.
	IsPrivate bool `json:"is_private"`
	// IsActive indicates whether the chat room is currently active.
	IsActive bool `gorm:"index" json:"is_active"`
	// CreatedAt is the timestamp when the chat room was created.
	CreatedAt time.Time `json:"created_at"`
	// EndedAt is the timestamp when the chat room was closed.
	EndedAt *time.Time `json:"ended_at,omitempty"`
}

// Peer returns the other participant of the room, or "" if userID is not a
// participant or the second slot is still empty.
func (r *ChatRoom) Peer(userID string) string {
	switch userID {
	case r.User1ID:
		return r.User2ID
	case r.User2ID:
		return r.User1ID
	}
	return ""
}
