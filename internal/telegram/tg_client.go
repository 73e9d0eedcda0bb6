package telegram

import (
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"
)

const (
	userIDPrefix   = "tg"
	sendBufferSize = 32
)

// MessageSender is the part of the Bot API the bot and its clients use.
// *tgbotapi.BotAPI implements it.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client реалізує інтерфейс chathub.Client
type Client struct {
	UserID    string
	ChatID    int64
	Sender    MessageSender
	Localizer *localization.Localizer
	Send      chan models.ChatMessage

	mu        sync.Mutex
	roomID    uint
	lang      string
	closeOnce sync.Once
}

// UserIDForChat is the engine user id of a Telegram chat.
func UserIDForChat(chatID int64) string {
	return userIDPrefix + strconv.FormatInt(chatID, 10)
}

func NewClient(chatID int64, lang string, sender MessageSender, localizer *localization.Localizer) *Client {
	return &Client{
		UserID:    UserIDForChat(chatID),
		ChatID:    chatID,
		Sender:    sender,
		Localizer: localizer,
		Send:      make(chan models.ChatMessage, sendBufferSize),
		lang:      lang,
	}
}

var _ chathub.Client = (*Client)(nil)

func (c *Client) GetUserID() string                         { return c.UserID }
func (c *Client) GetSendChannel() chan<- models.ChatMessage { return c.Send }

func (c *Client) GetRoomID() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) SetRoomID(id uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = id
}

func (c *Client) Language() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

func (c *Client) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lang = lang
}

// Run запускає 'write pump'. 'Read pump' обробляється централізовано в BotService.
func (c *Client) Run() {
	go c.writePump()
}

// Close закриває Send канал
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// writePump слухає канал Send і надсилає повідомлення в Telegram
func (c *Client) writePump() {
	defer log.Debug().Str("user", c.UserID).Msg("Telegram write pump stopped")

	for message := range c.Send {
		text := c.render(message)
		if text == "" {
			continue
		}
		if _, err := c.Sender.Send(tgbotapi.NewMessage(c.ChatID, text)); err != nil {
			log.Warn().Err(err).Str("user", c.UserID).Str("type", message.Type).Msg("Failed to send Telegram message")
		}
	}
}

// render turns an event into the text shown in the chat. Empty means nothing is sent.
func (c *Client) render(message models.ChatMessage) string {
	lang := c.Language()

	switch message.Type {
	case models.EventNewMessage:
		if message.SenderID == c.UserID {
			return "" // не надсилаємо собі
		}
		return message.Content
	case models.EventWaiting:
		return c.Localizer.Format(lang, "waiting", message.WaitingCount)
	case models.EventMatched:
		if len(message.KeywordsMatched) > 0 {
			return c.Localizer.Format(lang, "matched_keywords", strings.Join(message.KeywordsMatched, ", "))
		}
		return c.Localizer.GetString(lang, "matched")
	case models.EventPrivateCreated:
		return c.Localizer.Format(lang, "private_created", message.Key)
	case models.EventPartnerLeft:
		if message.Content == chathub.ReasonDisconnected {
			return c.Localizer.GetString(lang, "partner_left_disconnected")
		}
		return c.Localizer.GetString(lang, "partner_left_left")
	case models.EventLeftRoom:
		return c.Localizer.GetString(lang, "left_room")
	case models.EventError:
		return c.Localizer.Format(lang, "error", message.Content)
	}

	log.Warn().Str("user", c.UserID).Str("type", message.Type).Msg("Unhandled event for Telegram client")
	return ""
}
