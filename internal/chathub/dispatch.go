package chathub

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/models"
)

const internalErrorMessage = "something went wrong, please try again"

// HandleEvent runs the action a client sent and reports failures back to it
// as an error event.
func (m *MatcherService) HandleEvent(userID string, ev models.ClientEvent) {
	var err error

	switch ev.Type {
	case models.ActionJoinQueue:
		_, err = m.JoinRandom(userID)
	case models.ActionJoinKeyword:
		_, err = m.JoinKeyword(userID, ev.Bio, ev.Purpose)
	case models.ActionLeaveQueue:
		m.CancelWaiting(userID)
	case models.ActionCreatePrivate:
		_, err = m.CreatePrivate(userID, m.BuildProfile(ev.Bio, ev.Purpose))
	case models.ActionJoinPrivate:
		_, err = m.JoinPrivate(userID, ev.Key, m.BuildProfile(ev.Bio, ev.Purpose))
	case models.ActionSendMessage:
		_, err = m.SendMessage(userID, ev.Content)
	case models.ActionLeaveRoom:
		err = m.LeaveRoom(userID)
	default:
		err = fmt.Errorf("%w: unknown event %q", ErrInvalidInput, ev.Type)
	}

	if err == nil {
		return
	}

	content := err.Error()
	if !IsClientError(err) {
		log.Error().Err(err).Str("user", userID).Str("event", ev.Type).Msg("Event failed")
		content = internalErrorMessage
	} else {
		log.Debug().Err(err).Str("user", userID).Str("event", ev.Type).Msg("Event rejected")
	}
	m.Hub.Emit(userID, models.ChatMessage{Type: models.EventError, Content: content})
}
