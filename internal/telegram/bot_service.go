// Package telegram handles the integration with the Telegram Bot API.
// It is responsible for receiving updates from Telegram, processing them,
// and communicating with the central chat hub.
package telegram

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"
)

const langCallbackPrefix = "set_lang_"

// Bot-side commands that never reach the engine.
const (
	cmdNone = iota
	cmdHelp
	cmdLanguage
	cmdCancel
	cmdStop
	cmdUnknown
)

// BotService is responsible for receiving Telegram updates and routing them to the hub.
type BotService struct {
	BotAPI    *tgbotapi.BotAPI
	Hub       *chathub.ManagerService
	Events    chathub.EventHandler
	Localizer *localization.Localizer

	api     MessageSender
	mu      sync.Mutex
	clients map[int64]*Client
}

// NewBotService creates a new BotService instance.
func NewBotService(token string, hub *chathub.ManagerService, events chathub.EventHandler, localizer *localization.Localizer) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Info().Str("account", bot.Self.UserName).Msg("Telegram bot authorized")

	s := newBotService(bot, hub, events, localizer)
	s.BotAPI = bot
	return s, nil
}

func newBotService(api MessageSender, hub *chathub.ManagerService, events chathub.EventHandler, localizer *localization.Localizer) *BotService {
	return &BotService{
		Hub:       hub,
		Events:    events,
		Localizer: localizer,
		api:       api,
		clients:   make(map[int64]*Client),
	}
}

// Run is the main loop for receiving Telegram updates. It returns when ctx is done.
func (s *BotService) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case update.Message != nil:
				s.handleMessage(update.Message)
			case update.CallbackQuery != nil:
				s.handleCallbackQuery(update.CallbackQuery)
			}
		}
	}
}

// Stop stops long polling.
func (s *BotService) Stop() {
	if s.BotAPI != nil {
		s.BotAPI.StopReceivingUpdates()
	}
}

// getOrCreateClient retrieves an existing Telegram client or creates and registers a new one.
func (s *BotService) getOrCreateClient(chatID int64, langCode string) *Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[chatID]; ok && s.Hub.IsOnline(c.UserID) {
		return c
	}

	c := NewClient(chatID, s.Localizer.Resolve(langCode), s.api, s.Localizer)
	s.clients[chatID] = c
	s.Hub.Register(c)
	c.Run()
	return c
}

func (s *BotService) forgetClient(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, chatID)
}

func (s *BotService) handleMessage(msg *tgbotapi.Message) {
	langCode := ""
	if msg.From != nil {
		langCode = msg.From.LanguageCode
	}

	if msg.Text == "" {
		c := s.getOrCreateClient(msg.Chat.ID, langCode)
		s.reply(msg.Chat.ID, c.Language(), "unsupported_message_type")
		return
	}
	s.handleText(msg.Chat.ID, langCode, msg.Text)
}

// handleText runs one line typed by the user.
func (s *BotService) handleText(chatID int64, langCode, text string) {
	c := s.getOrCreateClient(chatID, langCode)
	ev, cmd := parseCommand(text)

	switch cmd {
	case cmdHelp:
		s.reply(chatID, c.Language(), "welcome")
	case cmdLanguage:
		s.sendLanguageKeyboard(chatID, c.Language())
	case cmdCancel:
		s.Events.HandleEvent(c.UserID, ev)
		s.reply(chatID, c.Language(), "search_cancelled")
	case cmdStop:
		s.Hub.Unregister(c)
		s.forgetClient(chatID)
		s.reply(chatID, c.Language(), "stopped")
	case cmdUnknown:
		s.reply(chatID, c.Language(), "unknown_command")
	default:
		s.Events.HandleEvent(c.UserID, ev)
	}
}

// parseCommand maps a chat line to an engine event or to a bot-side command.
func parseCommand(text string) (models.ClientEvent, int) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return models.ClientEvent{Type: models.ActionSendMessage, Content: text}, cmdNone
	}

	name, args, _ := strings.Cut(text[1:], " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at] // /random@SomeBot
	}
	args = strings.TrimSpace(args)

	switch strings.ToLower(name) {
	case "start", "help":
		return models.ClientEvent{}, cmdHelp
	case "language":
		return models.ClientEvent{}, cmdLanguage
	case "random":
		return models.ClientEvent{Type: models.ActionJoinQueue}, cmdNone
	case "match":
		return models.ClientEvent{Type: models.ActionJoinKeyword, Purpose: args}, cmdNone
	case "private":
		return models.ClientEvent{Type: models.ActionCreatePrivate, Purpose: args}, cmdNone
	case "join":
		return models.ClientEvent{Type: models.ActionJoinPrivate, Key: args}, cmdNone
	case "leave":
		return models.ClientEvent{Type: models.ActionLeaveRoom}, cmdNone
	case "cancel":
		return models.ClientEvent{Type: models.ActionLeaveQueue}, cmdCancel
	case "stop":
		return models.ClientEvent{}, cmdStop
	}
	return models.ClientEvent{}, cmdUnknown
}

func (s *BotService) reply(chatID int64, lang, key string) {
	msg := tgbotapi.NewMessage(chatID, s.Localizer.GetString(lang, key))
	if _, err := s.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("Failed to send reply")
	}
}

// sendLanguageKeyboard sends a message with a keyboard to choose a language.
func (s *BotService) sendLanguageKeyboard(chatID int64, lang string) {
	names := map[string]string{"en": "English", "zh": "中文", "uk": "Українська"}

	var row []tgbotapi.InlineKeyboardButton
	for _, code := range []string{"en", "zh", "uk"} {
		if s.Localizer.Resolve(code) != code {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(names[code], langCallbackPrefix+code))
	}

	msg := tgbotapi.NewMessage(chatID, s.Localizer.GetString(lang, "choose_language"))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := s.api.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat", chatID).Msg("Failed to send language keyboard")
	}
}

func (s *BotService) handleCallbackQuery(callbackQuery *tgbotapi.CallbackQuery) {
	// Respond to the callback query to remove the "loading" state
	if _, err := s.api.Request(tgbotapi.NewCallback(callbackQuery.ID, "")); err != nil {
		log.Warn().Err(err).Msg("Failed to answer callback query")
	}
	if !strings.HasPrefix(callbackQuery.Data, langCallbackPrefix) {
		return
	}

	chatID := callbackQuery.Message.Chat.ID
	s.setLanguage(chatID, strings.TrimPrefix(callbackQuery.Data, langCallbackPrefix))
}

func (s *BotService) setLanguage(chatID int64, code string) {
	c := s.getOrCreateClient(chatID, code)
	lang := s.Localizer.Resolve(code)
	c.SetLanguage(lang)
	s.reply(chatID, lang, "language_set")
}
