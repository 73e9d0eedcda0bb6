package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"
)

func setupTestHandler(t *testing.T) (*Handler, *gin.Engine, *storage.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.OpenDatabase(&config.Config{Env: "test", SQLitePath: filepath.Join(t.TempDir(), "chat.db")})
	require.NoError(t, err)
	require.NoError(t, storage.Migrate(db))
	store := storage.NewStorageService(db, nil)

	hub := chathub.NewManagerService()
	matcher := chathub.NewMatcherService(hub, store, chathub.DefaultMatcherOptions())
	hub.SetDisconnectHandler(matcher.Disconnect)
	go hub.Run()
	t.Cleanup(hub.Stop)

	h := NewHandler(hub, matcher, "test-secret")
	r := gin.New()
	h.RegisterRoutes(r)
	return h, r, store
}

func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetAnonID(t *testing.T) {
	h, r, _ := setupTestHandler(t)

	w := doGet(r, "/anonid")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token  string `json:"token"`
		AnonID string `json:"anon_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.AnonID, config.AnonIDLength)

	anonID, err := h.validateAndGetAnonID(body.Token)
	require.NoError(t, err)
	assert.Equal(t, body.AnonID, anonID)
}

func TestValidateAndGetAnonID_Rejects(t *testing.T) {
	h, _, _ := setupTestHandler(t)
	other := NewHandler(nil, nil, "other-secret")

	foreign, err := other.generateJWT("abcd1234")
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"anon_id": "abcd1234",
		"exp":     time.Now().Add(-time.Minute).Unix(),
		"iss":     tokenIssuer,
	}).SignedString(h.jwtSecret)
	require.NoError(t, err)

	noID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
		"iss": tokenIssuer,
	}).SignedString(h.jwtSecret)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"anon_id": "abcd1234",
		"iss":     tokenIssuer,
	}).SignedString(h.jwtSecret)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"signed with another secret": foreign,
		"expired":                    expired,
		"without anon_id":            noID,
		"without expiry":             noExpiry,
		"garbage":                    "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.validateAndGetAnonID(token)
			assert.Error(t, err)
		})
	}
}

func TestServeWebSocket_RequiresValidToken(t *testing.T) {
	_, r, _ := setupTestHandler(t)

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/ws").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/ws?token=bogus").Code)
}

func TestGetWaitingCount(t *testing.T) {
	h, r, _ := setupTestHandler(t)
	require.NoError(t, h.Matcher.EnqueueRandom("alice"))

	w := doGet(r, "/api/waiting")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body["waiting"])
	assert.Equal(t, 0, body["active_rooms"])
}

func TestGetRoomHistory(t *testing.T) {
	_, r, store := setupTestHandler(t)

	key := "ABC234"
	roomID, err := store.CreateRoom(models.RoomKindPrivate, "alice", "", &key)
	require.NoError(t, err)
	_, err = store.AppendMessage(roomID, "alice", "hi")
	require.NoError(t, err)
	_, err = store.AppendMessage(roomID, "bob", "你好")
	require.NoError(t, err)

	w := doGet(r, "/api/rooms/abc234/messages")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Messages []historyEntry `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "alice", body.Messages[0].SenderID)
	assert.Equal(t, "你好", body.Messages[1].Content)

	assert.Equal(t, http.StatusNotFound, doGet(r, "/api/rooms/XYZ234/messages").Code)
	assert.Equal(t, http.StatusBadRequest, doGet(r, "/api/rooms/nope/messages").Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	_, r, _ := setupTestHandler(t)

	assert.Equal(t, http.StatusOK, doGet(r, "/healthz").Code)

	w := doGet(r, "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pairchat_http_requests_total")
}

func dialAs(t *testing.T, h *Handler, srv *httptest.Server, anonID string) *websocket.Conn {
	t.Helper()
	token, err := h.generateJWT(anonID)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.ChatMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg models.ChatMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocket_RandomChat(t *testing.T) {
	h, r, _ := setupTestHandler(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	alice := dialAs(t, h, srv, "alice001")
	bob := dialAs(t, h, srv, "bob00001")

	require.NoError(t, alice.WriteJSON(models.ClientEvent{Type: models.ActionJoinQueue}))
	waiting := readEvent(t, alice)
	assert.Equal(t, models.EventWaiting, waiting.Type)
	assert.Equal(t, 1, waiting.WaitingCount)

	require.NoError(t, bob.WriteJSON(models.ClientEvent{Type: models.ActionJoinQueue}))
	matchedA := readEvent(t, alice)
	matchedB := readEvent(t, bob)
	assert.Equal(t, models.EventMatched, matchedA.Type)
	assert.Equal(t, matchedA.RoomID, matchedB.RoomID)

	require.NoError(t, alice.WriteJSON(models.ClientEvent{Type: models.ActionSendMessage, Content: "你好"}))
	got := readEvent(t, bob)
	assert.Equal(t, models.EventNewMessage, got.Type)
	assert.Equal(t, "alice001", got.SenderID)
	assert.Equal(t, "你好", got.Content)
	assert.Equal(t, models.EventNewMessage, readEvent(t, alice).Type)

	alice.Close()
	left := readEvent(t, bob)
	assert.Equal(t, models.EventPartnerLeft, left.Type)
	assert.Equal(t, chathub.ReasonDisconnected, left.Content)
}

func TestWebSocket_MalformedEvent(t *testing.T) {
	h, r, _ := setupTestHandler(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	alice := dialAs(t, h, srv, "alice001")
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{not json")))

	msg := readEvent(t, alice)
	assert.Equal(t, models.EventError, msg.Type)
}
