package chathub

import (
	"errors"
	"fmt"

	"pairchat/backend/internal/config"
)

// Error categories. Every error the engine returns to a caller wraps one of them.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrEmptyMessage   = fmt.Errorf("%w: message is empty", ErrInvalidInput)
	ErrMessageTooLong = fmt.Errorf("%w: message is longer than %d characters", ErrInvalidInput, config.MaxMessageLength)
	ErrInvalidKey     = fmt.Errorf("%w: malformed room key", ErrInvalidInput)

	ErrRoomNotFound = fmt.Errorf("%w: no room with this key", ErrNotFound)

	ErrRoomFull      = fmt.Errorf("%w: room already has two participants", ErrConflict)
	ErrRoomClosed    = fmt.Errorf("%w: room is closed", ErrConflict)
	ErrAlreadyInRoom = fmt.Errorf("%w: already in a room", ErrConflict)
	ErrNotInRoom     = fmt.Errorf("%w: not in an active room", ErrConflict)
)

// IsClientError reports whether err is caused by the request itself
// rather than by the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict)
}
