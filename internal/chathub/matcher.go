package chathub

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/keygen"
	"pairchat/backend/internal/keywords"
	"pairchat/backend/internal/metrics"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"
)

// Reasons carried in the content of a partner_left event.
const (
	ReasonLeft         = "left"
	ReasonDisconnected = "disconnected"
)

// Match describes a room that has just become active.
type Match struct {
	RoomID          uint
	Kind            models.RoomKind
	UserA           string // the user whose request produced the match
	UserB           string
	Similarity      float64
	KeywordsMatched []string
}

// MatcherOptions tunes the pairing engine.
type MatcherOptions struct {
	MinSimilarity float64
	MaxKeywords   int
	Keys          *keygen.Generator // nil means keygen.New()
}

func DefaultMatcherOptions() MatcherOptions {
	return MatcherOptions{
		MinSimilarity: config.DefaultMinSimilarity,
		MaxKeywords:   config.DefaultMaxKeywords,
	}
}

// Stats is a snapshot of the engine's waiting structures and rooms.
type Stats struct {
	Waiting        int `json:"waiting"`
	KeywordWaiting int `json:"keyword_waiting"`
	ActiveRooms    int `json:"active_rooms"`
	PrivatePending int `json:"private_pending"`
}

// MatcherService pairs users and owns their sessions.
//
// The pairing queue, the keyword index and the session maps share mu, so a
// user moves between waiting and paired in a single step. Room rows are
// written outside the lock; notifications to the Hub are issued under it so
// every peer sees matched before partner_left.
type MatcherService struct {
	Hub     Transport
	Storage storage.Storage
	Keys    *keygen.Generator

	maxKeywords int

	mu      sync.Mutex
	queue   *PairingQueue
	index   *KeywordIndex
	current map[string]*session // user id -> the room the user is in
	rooms   map[uint]*session
	byKey   map[string]*session
	issued  map[string]struct{} // every private key ever handed out
}

type pendingMatch struct {
	sess     *session
	match    Match
	profiles map[string]models.Profile
}

// NewMatcherService creates the engine. Hub receives all notifications.
func NewMatcherService(hub Transport, s storage.Storage, opts MatcherOptions) *MatcherService {
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = config.DefaultMaxKeywords
	}
	if opts.Keys == nil {
		keys, err := keygen.New()
		if err != nil {
			panic(err)
		}
		opts.Keys = keys
	}

	m := &MatcherService{
		Hub:         hub,
		Storage:     s,
		Keys:        opts.Keys,
		maxKeywords: opts.MaxKeywords,
		current:     make(map[string]*session),
		rooms:       make(map[uint]*session),
		byKey:       make(map[string]*session),
		issued:      make(map[string]struct{}),
	}
	m.queue = NewPairingQueue(&m.mu)
	m.index = NewKeywordIndex(&m.mu, opts.MinSimilarity)
	return m
}

// BuildProfile extracts keywords from a free-text self description.
func (m *MatcherService) BuildProfile(bio, purpose string) models.Profile {
	p := models.Profile{Bio: strings.TrimSpace(bio), Purpose: strings.TrimSpace(purpose)}
	p.Keywords = keywords.Extract(p.Text(), m.maxKeywords)
	return p
}

// RecoverRooms runs once at startup. Rooms a previous process left active are
// closed, and their keys are reserved so they are never issued again.
func (m *MatcherService) RecoverRooms() error {
	closed, err := m.Storage.DeactivateStaleRooms()
	if err != nil {
		return fmt.Errorf("failed to close stale rooms: %w", err)
	}
	keys, err := m.Storage.RoomKeys()
	if err != nil {
		return fmt.Errorf("failed to load room keys: %w", err)
	}

	m.mu.Lock()
	for _, k := range keys {
		m.issued[k] = struct{}{}
	}
	m.mu.Unlock()

	log.Info().Int64("closed", closed).Int("keys", len(keys)).Msg("Room state recovered")
	return nil
}

// --- Random pairing ---

// EnqueueRandom puts userID in the random queue without trying to match.
func (m *MatcherService) EnqueueRandom(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busyLocked(userID) {
		return ErrAlreadyInRoom
	}
	m.queue.enqueue(userID)
	m.syncWaitingLocked()
	return nil
}

// TryMatchRandom pairs userID with the longest-waiting user. It returns nil
// when nobody else is waiting; the caller is not enqueued in that case.
func (m *MatcherService) TryMatchRandom(userID string) (*Match, error) {
	m.mu.Lock()
	if m.busyLocked(userID) {
		m.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}
	peer, ok := m.queue.tryMatch(userID)
	if !ok {
		m.mu.Unlock()
		return nil, nil
	}
	p := m.pairLocked(userID, peer, models.RoomKindRandom, 0, nil, nil)
	m.mu.Unlock()

	return m.finishMatch(p)
}

// JoinRandom matches userID with a waiting user or, failing that, makes it wait.
func (m *MatcherService) JoinRandom(userID string) (*Match, error) {
	m.mu.Lock()
	if m.busyLocked(userID) {
		m.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}
	peer, ok := m.queue.tryMatch(userID)
	if !ok {
		m.waitLocked(userID)
		m.mu.Unlock()
		log.Debug().Str("user", userID).Msg("Waiting for a random partner")
		return nil, nil
	}
	p := m.pairLocked(userID, peer, models.RoomKindRandom, 0, nil, nil)
	m.mu.Unlock()

	return m.finishMatch(p)
}

// --- Keyword pairing ---

// EnqueueKeyword files userID in the keyword index and, as a fallback, in the
// random queue.
func (m *MatcherService) EnqueueKeyword(userID string, profile models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.busyLocked(userID) {
		return ErrAlreadyInRoom
	}
	if len(profile.Keywords) > 0 {
		m.index.addWithProfile(userID, profile)
	}
	m.queue.enqueue(userID)
	m.syncWaitingLocked()
	return nil
}

// TryMatchKeyword pairs userID with the waiting user whose keywords overlap
// the most. It returns nil when no candidate reaches the minimum similarity.
func (m *MatcherService) TryMatchKeyword(userID string, profile models.Profile) (*Match, error) {
	m.mu.Lock()
	if m.busyLocked(userID) {
		m.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}
	p, ok := m.keywordPairLocked(userID, profile)
	m.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return m.finishMatch(p)
}

// JoinKeyword extracts keywords from bio and purpose and matches on them.
// Without usable keywords the user falls back to random pairing; without a
// match it waits in both the keyword index and the random queue.
func (m *MatcherService) JoinKeyword(userID, bio, purpose string) (*Match, error) {
	profile := m.BuildProfile(bio, purpose)
	if len(profile.Keywords) == 0 {
		return m.JoinRandom(userID)
	}

	m.mu.Lock()
	if m.busyLocked(userID) {
		m.mu.Unlock()
		return nil, ErrAlreadyInRoom
	}
	p, ok := m.keywordPairLocked(userID, profile)
	if !ok {
		m.index.addWithProfile(userID, profile)
		m.waitLocked(userID)
		m.mu.Unlock()
		log.Debug().Str("user", userID).Strs("keywords", profile.Keywords).Msg("Waiting for a keyword partner")
		return nil, nil
	}
	m.mu.Unlock()

	return m.finishMatch(p)
}

func (m *MatcherService) keywordPairLocked(userID string, profile models.Profile) (*pendingMatch, bool) {
	km, ok := m.index.tryKeywordMatch(userID, profile, m.index.MinSimilarity)
	if !ok {
		return nil, false
	}
	shared := keywords.Intersect(profile.Keywords, km.Profile.Keywords)
	profiles := map[string]models.Profile{userID: profile, km.UserID: km.Profile}
	return m.pairLocked(userID, km.UserID, models.RoomKindKeyword, km.Score, shared, profiles), true
}

// --- Private rooms ---

// CreatePrivate opens a room only reachable with the returned key.
func (m *MatcherService) CreatePrivate(userID string, profile models.Profile) (string, error) {
	m.mu.Lock()
	if m.busyLocked(userID) {
		m.mu.Unlock()
		return "", ErrAlreadyInRoom
	}
	key, err := m.Keys.GenerateUnique(m.issued)
	if err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("failed to issue room key: %w", err)
	}
	m.issued[key] = struct{}{}
	m.queue.remove(userID)
	m.index.removeUser(userID)
	m.syncWaitingLocked()

	sess := &session{kind: models.RoomKindPrivate, key: key, userA: userID, state: StatePrivateAwaitingPeer}
	m.assignLocked(userID, sess)
	m.mu.Unlock()

	m.saveProfiles(map[string]models.Profile{userID: profile})
	roomID, err := m.Storage.CreateRoom(models.RoomKindPrivate, userID, "", &key)

	m.mu.Lock()
	if err != nil {
		sess.state = StateClosed
		if m.current[userID] == sess {
			delete(m.current, userID)
		}
		m.mu.Unlock()
		return "", fmt.Errorf("failed to create private room: %w", err)
	}
	sess.roomID = roomID
	if sess.state == StateClosed {
		m.mu.Unlock()
		m.deactivate(roomID)
		return "", ErrRoomClosed
	}
	m.rooms[roomID] = sess
	m.byKey[key] = sess
	m.Hub.JoinChannel(userID, roomID)
	m.Hub.Emit(userID, models.ChatMessage{
		Type:   models.EventPrivateCreated,
		RoomID: roomID,
		Key:    key,
		Kind:   models.RoomKindPrivate,
	})
	m.mu.Unlock()

	log.Info().Str("user", userID).Uint("room", roomID).Str("key", key).Msg("Private room created")
	return key, nil
}

// JoinPrivate enters the private room identified by key. The key is
// case-insensitive. Participants of the room may join again.
func (m *MatcherService) JoinPrivate(userID, key string, profile models.Profile) (uint, error) {
	key = keygen.Normalize(key)
	if !keygen.Validate(key) {
		return 0, ErrInvalidKey
	}

	m.mu.Lock()
	sess, live := m.byKey[key]
	if !live {
		m.mu.Unlock()
		room, err := m.Storage.FindRoomByKey(key)
		if err != nil {
			return 0, fmt.Errorf("failed to look up room: %w", err)
		}
		if room == nil {
			return 0, ErrRoomNotFound
		}
		return 0, ErrRoomClosed
	}

	if sess.has(userID) {
		roomID := sess.roomID
		m.Hub.JoinChannel(userID, roomID)
		m.mu.Unlock()
		return roomID, nil
	}
	if sess.userB != "" {
		m.mu.Unlock()
		return 0, ErrRoomFull
	}
	if m.busyLocked(userID) {
		m.mu.Unlock()
		return 0, ErrAlreadyInRoom
	}

	m.queue.remove(userID)
	m.index.removeUser(userID)
	m.syncWaitingLocked()

	sess.userB = userID
	sess.state = StateActive
	roomID := sess.roomID
	m.assignLocked(userID, sess)
	m.Hub.JoinChannel(userID, roomID)
	m.Hub.Broadcast(roomID, models.ChatMessage{
		Type:   models.EventMatched,
		RoomID: roomID,
		Key:    key,
		Kind:   models.RoomKindPrivate,
	}, "")
	m.mu.Unlock()

	metrics.MatchesTotal.WithLabelValues(string(models.RoomKindPrivate)).Inc()
	metrics.ActiveRooms.Inc()

	m.saveProfiles(map[string]models.Profile{userID: profile})
	if err := m.Storage.ActivateRoom(roomID, userID); err != nil {
		log.Warn().Err(err).Uint("room", roomID).Msg("Failed to persist private room activation")
	}

	log.Info().Str("user", userID).Uint("room", roomID).Msg("Joined private room")
	return roomID, nil
}

// --- Leaving ---

// LeaveRoom closes the room userID is in and tells the peer. A user that is
// not in a room is left alone.
func (m *MatcherService) LeaveRoom(userID string) error {
	m.mu.Lock()
	sess := m.current[userID]
	roomID := m.closeLocked(userID, ReasonLeft)
	if sess != nil {
		m.Hub.Emit(userID, models.ChatMessage{Type: models.EventLeftRoom, RoomID: sess.roomID})
	}
	m.mu.Unlock()

	if roomID != 0 {
		m.deactivate(roomID)
	}
	return nil
}

// CancelWaiting takes userID out of the random queue and the keyword index.
// It reports whether the user was waiting.
func (m *MatcherService) CancelWaiting(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	inQueue := m.queue.remove(userID)
	_, inIndex := m.index.removeUser(userID)
	m.syncWaitingLocked()
	return inQueue || inIndex
}

// Disconnect forgets everything about userID: it stops waiting and its room,
// if any, is closed.
func (m *MatcherService) Disconnect(userID string) {
	m.mu.Lock()
	m.queue.remove(userID)
	m.index.removeUser(userID)
	m.syncWaitingLocked()
	roomID := m.closeLocked(userID, ReasonDisconnected)
	m.mu.Unlock()

	if roomID != 0 {
		m.deactivate(roomID)
	}
	log.Debug().Str("user", userID).Msg("User disconnected")
}

// closeLocked detaches userID from its session. It returns the id of a room
// that has to be deactivated in the RoomStore, or zero.
func (m *MatcherService) closeLocked(userID, reason string) uint {
	sess := m.current[userID]
	if sess == nil {
		return 0
	}
	delete(m.current, userID)

	switch sess.state {
	case StateActive:
		sess.state = StateClosed
		m.forgetLocked(sess)
		m.Hub.LeaveChannel(userID, sess.roomID)
		if peer := sess.peer(userID); peer != "" {
			m.Hub.Emit(peer, models.ChatMessage{
				Type:    models.EventPartnerLeft,
				RoomID:  sess.roomID,
				Content: reason,
			})
		}
		metrics.ActiveRooms.Dec()
		metrics.RoomsClosedTotal.WithLabelValues(reason).Inc()
		log.Info().Str("user", userID).Uint("room", sess.roomID).Str("reason", reason).Msg("Room closed")
		return sess.roomID

	case StatePrivateAwaitingPeer:
		sess.state = StateClosed
		m.forgetLocked(sess)
		if sess.roomID != 0 {
			m.Hub.LeaveChannel(userID, sess.roomID)
		}
		return sess.roomID

	case StatePaired:
		// The room row is still being written; finishMatch cleans up.
		sess.state = StateClosed
		if sess.left == nil {
			sess.left = make(map[string]bool)
		}
		sess.left[userID] = true
		return 0

	default:
		m.Hub.LeaveChannel(userID, sess.roomID)
		return 0
	}
}

func (m *MatcherService) forgetLocked(sess *session) {
	if m.rooms[sess.roomID] == sess {
		delete(m.rooms, sess.roomID)
	}
	if sess.key != "" && m.byKey[sess.key] == sess {
		delete(m.byKey, sess.key)
	}
}

// --- Messages ---

// SendMessage stores content and broadcasts it to the sender's room,
// the sender included.
func (m *MatcherService) SendMessage(userID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > config.MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	m.mu.Lock()
	sess := m.current[userID]
	if sess == nil || sess.state != StateActive {
		m.mu.Unlock()
		return nil, ErrNotInRoom
	}
	roomID := sess.roomID
	m.mu.Unlock()

	ts, err := m.Storage.AppendMessage(roomID, userID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	msg := models.ChatMessage{
		Type:      models.EventNewMessage,
		RoomID:    roomID,
		SenderID:  userID,
		Content:   content,
		Timestamp: &ts,
	}
	m.Hub.Broadcast(roomID, msg, "")
	metrics.MessagesTotal.Inc()
	return &msg, nil
}

// RoomHistory returns the stored messages of the room with the given key.
func (m *MatcherService) RoomHistory(key string) ([]models.ChatHistory, error) {
	key = keygen.Normalize(key)
	if !keygen.Validate(key) {
		return nil, ErrInvalidKey
	}
	room, err := m.Storage.FindRoomByKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up room: %w", err)
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return m.Storage.History(room.ID)
}

// --- Introspection ---

func (m *MatcherService) WaitingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.size()
}

// State reports where userID is in the pairing lifecycle.
func (m *MatcherService) State(userID string) SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess := m.current[userID]; sess != nil {
		return sess.state
	}
	if m.queue.indexOf(userID) >= 0 || m.index.contains(userID) {
		return StateWaiting
	}
	return StateIdle
}

func (m *MatcherService) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{Waiting: m.queue.size(), KeywordWaiting: len(m.index.profiles)}
	for _, sess := range m.rooms {
		switch sess.state {
		case StateActive:
			st.ActiveRooms++
		case StatePrivateAwaitingPeer:
			st.PrivatePending++
		}
	}
	return st
}

// --- Internals ---

func (m *MatcherService) busyLocked(userID string) bool {
	sess := m.current[userID]
	return sess != nil && sess.state != StateClosed
}

// assignLocked points userID at sess. A closed room the user never left is
// dropped from its channels first.
func (m *MatcherService) assignLocked(userID string, sess *session) {
	if old := m.current[userID]; old != nil && old != sess && old.roomID != 0 {
		m.Hub.LeaveChannel(userID, old.roomID)
	}
	m.current[userID] = sess
}

func (m *MatcherService) waitLocked(userID string) {
	m.queue.enqueue(userID)
	m.syncWaitingLocked()
	m.Hub.Emit(userID, models.ChatMessage{Type: models.EventWaiting, WaitingCount: m.queue.size()})
}

func (m *MatcherService) requeueLocked(userID string, profile models.Profile) {
	if len(profile.Keywords) > 0 {
		m.index.addWithProfile(userID, profile)
	}
	m.waitLocked(userID)
}

func (m *MatcherService) syncWaitingLocked() {
	metrics.WaitingUsers.Set(float64(m.queue.size()))
}

// pairLocked takes a and b out of the waiting structures and binds them to a
// new session in the Paired state.
func (m *MatcherService) pairLocked(a, b string, kind models.RoomKind, score float64, shared []string, profiles map[string]models.Profile) *pendingMatch {
	if profiles == nil {
		profiles = make(map[string]models.Profile)
	}
	for _, id := range []string{a, b} {
		if p, ok := m.index.removeUser(id); ok {
			if _, have := profiles[id]; !have {
				profiles[id] = p
			}
		}
		m.queue.remove(id)
	}
	m.syncWaitingLocked()

	sess := &session{kind: kind, userA: a, userB: b, state: StatePaired}
	m.assignLocked(a, sess)
	m.assignLocked(b, sess)

	return &pendingMatch{
		sess: sess,
		match: Match{
			Kind:            kind,
			UserA:           a,
			UserB:           b,
			Similarity:      score,
			KeywordsMatched: shared,
		},
		profiles: profiles,
	}
}

// finishMatch persists a pending match and activates it. If a participant went
// away in the meantime the row is closed again and the other one waits anew.
func (m *MatcherService) finishMatch(p *pendingMatch) (*Match, error) {
	m.saveProfiles(p.profiles)
	roomID, err := m.Storage.CreateRoom(p.match.Kind, p.match.UserA, p.match.UserB, nil)

	m.mu.Lock()
	sess := p.sess
	if err != nil {
		sess.state = StateClosed
		for _, id := range sess.participants() {
			if m.current[id] != sess {
				continue
			}
			delete(m.current, id)
			if id != p.match.UserA {
				m.requeueLocked(id, p.profiles[id])
			}
		}
		m.mu.Unlock()
		log.Error().Err(err).Str("user_a", p.match.UserA).Str("user_b", p.match.UserB).Msg("Failed to create room")
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	sess.roomID = roomID
	if sess.state == StateClosed {
		for _, id := range sess.participants() {
			if sess.left[id] || m.current[id] != sess {
				continue
			}
			delete(m.current, id)
			m.requeueLocked(id, p.profiles[id])
		}
		m.mu.Unlock()
		m.deactivate(roomID)
		log.Info().Uint("room", roomID).Msg("Match abandoned before the room opened")
		return nil, nil
	}

	sess.state = StateActive
	m.rooms[roomID] = sess
	m.Hub.JoinChannel(p.match.UserA, roomID)
	m.Hub.JoinChannel(p.match.UserB, roomID)
	m.Hub.Broadcast(roomID, models.ChatMessage{
		Type:            models.EventMatched,
		RoomID:          roomID,
		Kind:            p.match.Kind,
		Similarity:      p.match.Similarity,
		KeywordsMatched: p.match.KeywordsMatched,
	}, "")
	m.mu.Unlock()

	metrics.MatchesTotal.WithLabelValues(string(p.match.Kind)).Inc()
	metrics.ActiveRooms.Inc()
	log.Info().
		Str("user_a", p.match.UserA).
		Str("user_b", p.match.UserB).
		Uint("room", roomID).
		Str("kind", string(p.match.Kind)).
		Float64("similarity", p.match.Similarity).
		Msg("Match found")

	match := p.match
	match.RoomID = roomID
	return &match, nil
}

func (m *MatcherService) saveProfiles(profiles map[string]models.Profile) {
	for userID, p := range profiles {
		if p.Text() == "" && len(p.Keywords) == 0 {
			continue
		}
		if err := m.Storage.SaveProfile(userID, p); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("Failed to save profile")
		}
	}
}

func (m *MatcherService) deactivate(roomID uint) {
	if err := m.Storage.DeactivateRoom(roomID); err != nil {
		log.Warn().Err(err).Uint("room", roomID).Msg("Failed to deactivate room")
	}
}
