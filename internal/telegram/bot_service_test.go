package telegram

import (
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/localization"
	"pairchat/backend/internal/models"
)

// fakeSender records the texts sent to Telegram.
type fakeSender struct {
	mu       sync.Mutex
	texts    []string
	keyboard []tgbotapi.InlineKeyboardMarkup
	requests int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.texts = append(f.texts, msg.Text)
		if kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup); ok {
			f.keyboard = append(f.keyboard, kb)
		}
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type recordedEvent struct {
	userID string
	ev     models.ClientEvent
}

// fakeEvents records what the bot forwards to the engine.
type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeEvents) HandleEvent(userID string, ev models.ClientEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{userID, ev})
}

func (f *fakeEvents) All() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedEvent(nil), f.events...)
}

func newTestLocalizer(t *testing.T) *localization.Localizer {
	t.Helper()
	l, err := localization.NewLocalizer("../localization/locales")
	require.NoError(t, err)
	return l
}

func newTestBot(t *testing.T) (*BotService, *fakeSender, *fakeEvents) {
	t.Helper()
	sender := &fakeSender{}
	events := &fakeEvents{}
	hub := chathub.NewManagerService()
	t.Cleanup(hub.Stop)
	return newBotService(sender, hub, events, newTestLocalizer(t)), sender, events
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text string
		ev   models.ClientEvent
		cmd  int
	}{
		{"hello there", models.ClientEvent{Type: models.ActionSendMessage, Content: "hello there"}, cmdNone},
		{"/random", models.ClientEvent{Type: models.ActionJoinQueue}, cmdNone},
		{"/random@PairChatBot", models.ClientEvent{Type: models.ActionJoinQueue}, cmdNone},
		{"/match 想找人聊旅行和摄影", models.ClientEvent{Type: models.ActionJoinKeyword, Purpose: "想找人聊旅行和摄影"}, cmdNone},
		{"/private", models.ClientEvent{Type: models.ActionCreatePrivate}, cmdNone},
		{"/private hiking", models.ClientEvent{Type: models.ActionCreatePrivate, Purpose: "hiking"}, cmdNone},
		{"/join  AB12CD34 ", models.ClientEvent{Type: models.ActionJoinPrivate, Key: "AB12CD34"}, cmdNone},
		{"/leave", models.ClientEvent{Type: models.ActionLeaveRoom}, cmdNone},
		{"/cancel", models.ClientEvent{Type: models.ActionLeaveQueue}, cmdCancel},
		{"/start", models.ClientEvent{}, cmdHelp},
		{"/HELP", models.ClientEvent{}, cmdHelp},
		{"/language", models.ClientEvent{}, cmdLanguage},
		{"/stop", models.ClientEvent{}, cmdStop},
		{"/dance", models.ClientEvent{}, cmdUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			ev, cmd := parseCommand(tc.text)
			assert.Equal(t, tc.ev, ev)
			assert.Equal(t, tc.cmd, cmd)
		})
	}
}

func TestHandleText_ForwardsToEngine(t *testing.T) {
	bot, _, events := newTestBot(t)

	bot.handleText(42, "en", "/random")
	bot.handleText(42, "en", "hi")

	got := events.All()
	require.Len(t, got, 2)
	assert.Equal(t, "tg42", got[0].userID)
	assert.Equal(t, models.ActionJoinQueue, got[0].ev.Type)
	assert.Equal(t, models.ActionSendMessage, got[1].ev.Type)
	assert.Equal(t, "hi", got[1].ev.Content)
	assert.True(t, bot.Hub.IsOnline("tg42"))
}

func TestHandleText_BotCommands(t *testing.T) {
	bot, sender, events := newTestBot(t)
	l := bot.Localizer

	bot.handleText(7, "zh-hans", "/help")
	bot.handleText(7, "zh-hans", "/dance")
	bot.handleText(7, "zh-hans", "/cancel")

	assert.Equal(t, []string{
		l.GetString("zh", "welcome"),
		l.GetString("zh", "unknown_command"),
		l.GetString("zh", "search_cancelled"),
	}, sender.Texts())

	got := events.All()
	require.Len(t, got, 1)
	assert.Equal(t, models.ActionLeaveQueue, got[0].ev.Type)
}

func TestHandleText_StopUnregisters(t *testing.T) {
	bot, sender, _ := newTestBot(t)

	var mu sync.Mutex
	var disconnected []string
	bot.Hub.SetDisconnectHandler(func(userID string) {
		mu.Lock()
		defer mu.Unlock()
		disconnected = append(disconnected, userID)
	})

	bot.handleText(9, "en", "/random")
	require.True(t, bot.Hub.IsOnline("tg9"))

	bot.handleText(9, "en", "/stop")

	assert.False(t, bot.Hub.IsOnline("tg9"))
	mu.Lock()
	assert.Equal(t, []string{"tg9"}, disconnected)
	mu.Unlock()
	assert.Contains(t, sender.Texts(), bot.Localizer.GetString("en", "stopped"))

	// наступне повідомлення створює нового клієнта
	bot.handleText(9, "en", "/random")
	assert.True(t, bot.Hub.IsOnline("tg9"))
}

func TestLanguageKeyboardAndCallback(t *testing.T) {
	bot, sender, _ := newTestBot(t)

	bot.handleText(5, "en", "/language")

	sender.mu.Lock()
	require.Len(t, sender.keyboard, 1)
	row := sender.keyboard[0].InlineKeyboard[0]
	sender.mu.Unlock()
	require.Len(t, row, 3)
	require.NotNil(t, row[1].CallbackData)
	assert.Equal(t, "set_lang_zh", *row[1].CallbackData)

	bot.setLanguage(5, "zh")

	bot.mu.Lock()
	c := bot.clients[5]
	bot.mu.Unlock()
	require.NotNil(t, c)
	assert.Equal(t, "zh", c.Language())
	assert.Contains(t, sender.Texts(), bot.Localizer.GetString("zh", "language_set"))
}

func TestClientRender(t *testing.T) {
	l := newTestLocalizer(t)
	c := NewClient(1, "en", &fakeSender{}, l)

	assert.Empty(t, c.render(models.ChatMessage{Type: models.EventNewMessage, SenderID: "tg1", Content: "echo"}))
	assert.Equal(t, "hey", c.render(models.ChatMessage{Type: models.EventNewMessage, SenderID: "tg2", Content: "hey"}))
	assert.Equal(t, l.Format("en", "waiting", 3), c.render(models.ChatMessage{Type: models.EventWaiting, WaitingCount: 3}))
	assert.Equal(t, l.Format("en", "matched_keywords", "旅行, 摄影"),
		c.render(models.ChatMessage{Type: models.EventMatched, KeywordsMatched: []string{"旅行", "摄影"}}))
	assert.Equal(t, l.GetString("en", "matched"), c.render(models.ChatMessage{Type: models.EventMatched}))
	assert.Equal(t, l.GetString("en", "partner_left_disconnected"),
		c.render(models.ChatMessage{Type: models.EventPartnerLeft, Content: chathub.ReasonDisconnected}))
	assert.Equal(t, l.Format("en", "private_created", "K3Y"), c.render(models.ChatMessage{Type: models.EventPrivateCreated, Key: "K3Y"}))
	assert.Empty(t, c.render(models.ChatMessage{Type: "bogus"}))
}

func TestClientWritePump(t *testing.T) {
	sender := &fakeSender{}
	c := NewClient(3, "en", sender, newTestLocalizer(t))
	c.Run()

	c.Send <- models.ChatMessage{Type: models.EventNewMessage, SenderID: "tg4", Content: "ping"}
	c.Close()
	c.Close()

	assert.Eventually(t, func() bool {
		texts := sender.Texts()
		return len(texts) == 1 && texts[0] == "ping"
	}, time.Second, 10*time.Millisecond)
}
