package handler

import (
	"pairchat/backend/internal/chathub"
)

// Handler містить посилання на ChatHub і рушій пошуку пар
type Handler struct {
	Hub       *chathub.ManagerService
	Matcher   *chathub.MatcherService
	jwtSecret []byte
}

func NewHandler(hub *chathub.ManagerService, matcher *chathub.MatcherService, jwtSecret string) *Handler {
	return &Handler{Hub: hub, Matcher: matcher, jwtSecret: []byte(jwtSecret)}
}
