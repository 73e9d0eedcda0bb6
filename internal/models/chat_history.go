package models

import "gorm.io/gorm"

// ChatHistory represents a saved chat message.
// The embedded gorm.Model provides ID, CreatedAt, UpdatedAt, and DeletedAt fields,
// which serve as the message ID and timestamps.
type ChatHistory struct {
	gorm.Model

	// RoomID is the identifier of the chat room where the message was sent.
	RoomID uint `gorm:"not null;index:idx_room_msg"`
	// SenderID is the anonymous ID of the user who sent the message.
	SenderID string `gorm:"size:100;not null;index:idx_room_msg"`
	// Content is the message text.
	Content string `gorm:"type:text;not null"`
}
