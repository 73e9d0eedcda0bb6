package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes mounts every HTTP endpoint on r.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(Metrics(), RequestLogger())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")
	api.GET("/waiting", h.GetWaitingCount)
	api.GET("/rooms/:key/messages", h.GetRoomHistory)
}
