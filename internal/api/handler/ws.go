package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/chathub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket оновлює HTTP-з'єднання до WebSocket
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	anonID, err := h.validateAndGetAnonID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Str("user", anonID).Msg("WebSocket upgrade failed")
		return
	}

	client := chathub.NewWebSocketClient(anonID, conn, h.Hub, h.Matcher)

	// Register before the pumps start so no event is emitted to an unknown user.
	h.Hub.Register(client)
	client.Run()
}
