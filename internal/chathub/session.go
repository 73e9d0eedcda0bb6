package chathub

import "pairchat/backend/internal/models"

// SessionState is the position of a user in the pairing lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateWaiting
	StatePaired
	StatePrivateAwaitingPeer
	StateActive
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StatePaired:
		return "paired"
	case StatePrivateAwaitingPeer:
		return "private_awaiting_peer"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// session is one room as the engine sees it. Both participants point at the
// same session; the room id is zero until the RoomStore has assigned one.
type session struct {
	roomID uint
	kind   models.RoomKind
	key    string
	userA  string
	userB  string
	state  SessionState

	// left records participants who went away while the room was being created.
	left map[string]bool
}

func (s *session) peer(userID string) string {
	switch userID {
	case s.userA:
		return s.userB
	case s.userB:
		return s.userA
	}
	return ""
}

func (s *session) participants() []string {
	if s.userB == "" {
		return []string{s.userA}
	}
	return []string{s.userA, s.userB}
}

func (s *session) has(userID string) bool {
	return userID != "" && (s.userA == userID || s.userB == userID)
}
