package models

import "time"

// Outbound event types.
const (
	EventWaiting        = "waiting"
	EventMatched        = "matched"
	EventPrivateCreated = "private_created"
	EventNewMessage     = "new_message"
	EventPartnerLeft    = "partner_left"
	EventLeftRoom       = "left_room"
	EventError          = "error"
)

// Inbound event types.
const (
	ActionJoinQueue     = "join_queue"
	ActionJoinKeyword   = "join_keyword"
	ActionLeaveQueue    = "leave_queue"
	ActionCreatePrivate = "create_private"
	ActionJoinPrivate   = "join_private"
	ActionSendMessage   = "send_message"
	ActionLeaveRoom     = "leave_room"
)

// ChatMessage is an event pushed to a client.
type ChatMessage struct {
	Type            string     `json:"type"`
	RoomID          uint       `json:"room_id,omitempty"`
	SenderID        string     `json:"sender_id,omitempty"`
	Content         string     `json:"content,omitempty"`
	Key             string     `json:"key,omitempty"`
	Kind            RoomKind   `json:"kind,omitempty"`
	Similarity      float64    `json:"similarity,omitempty"`
	KeywordsMatched []string   `json:"keywords_matched,omitempty"`
	WaitingCount    int        `json:"waiting_count,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
}

// ClientEvent is an action sent by a client.
type ClientEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Key     string `json:"key,omitempty"`
	Bio     string `json:"bio,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}
