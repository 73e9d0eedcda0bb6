package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"
)

// GetWaitingCount reports how many users wait for a random partner.
func (h *Handler) GetWaitingCount(c *gin.Context) {
	stats := h.Matcher.Stats()
	c.JSON(http.StatusOK, gin.H{
		"waiting":         stats.Waiting,
		"keyword_waiting": stats.KeywordWaiting,
		"active_rooms":    stats.ActiveRooms,
		"online":          h.Hub.OnlineCount(),
	})
}

type historyEntry struct {
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// GetRoomHistory returns the messages of a private room, oldest first.
func (h *Handler) GetRoomHistory(c *gin.Context) {
	history, err := h.Matcher.RoomHistory(c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": toHistoryEntries(history)})
}

func toHistoryEntries(history []models.ChatHistory) []historyEntry {
	out := make([]historyEntry, 0, len(history))
	for _, m := range history {
		out = append(out, historyEntry{
			SenderID:  m.SenderID,
			Content:   m.Content,
			Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, chathub.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, chathub.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, chathub.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
