package chathub

import (
	"sync"

	"github.com/rs/zerolog/log"

	"pairchat/backend/internal/metrics"
	"pairchat/backend/internal/models"
)

// ManagerService is the registry of connected clients and the room channels
// they listen on. It implements Transport for the MatcherService.
//
// Sends never block: a client whose buffer is full misses the event.
// The hub never calls the disconnect handler while holding its lock.
type ManagerService struct {
	Clients map[string]Client

	UnregisterCh chan Client

	mu           sync.RWMutex
	channels     map[string]uint // user id -> room channel
	onDisconnect func(userID string)
	done         chan struct{}
	stopOnce     sync.Once
}

// NewManagerService creates an empty hub.
func NewManagerService() *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		UnregisterCh: make(chan Client),
		channels:     make(map[string]uint),
		done:         make(chan struct{}),
	}
}

// SetDisconnectHandler registers fn to be called after a client is unregistered.
func (m *ManagerService) SetDisconnectHandler(fn func(userID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnect = fn
}

// Run processes unregistrations coming from client pumps until Stop is called.
func (m *ManagerService) Run() {
	log.Info().Msg("Hub started")
	for {
		select {
		case client := <-m.UnregisterCh:
			m.Unregister(client)
		case <-m.done:
			log.Info().Msg("Hub stopped")
			return
		}
	}
}

// Stop ends Run and closes every registered client.
func (m *ManagerService) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		clients := make([]Client, 0, len(m.Clients))
		for id, c := range m.Clients {
			clients = append(clients, c)
			delete(m.Clients, id)
		}
		m.channels = make(map[string]uint)
		metrics.OnlineClients.Set(0)
		m.mu.Unlock()

		for _, c := range clients {
			c.Close()
		}
	})
}

// RequestUnregister hands client to the Run loop. It does not block once the hub is stopped.
func (m *ManagerService) RequestUnregister(client Client) {
	select {
	case m.UnregisterCh <- client:
	case <-m.done:
	}
}

// Register adds client. An older connection of the same user is replaced
// and closed without a disconnect.
func (m *ManagerService) Register(client Client) {
	userID := client.GetUserID()

	m.mu.Lock()
	old := m.Clients[userID]
	m.Clients[userID] = client
	if roomID, ok := m.channels[userID]; ok {
		client.SetRoomID(roomID)
	}
	metrics.OnlineClients.Set(float64(len(m.Clients)))
	m.mu.Unlock()

	if old != nil && old != client {
		old.Close()
		log.Info().Str("user", userID).Msg("Client replaced by a new connection")
		return
	}
	log.Info().Str("user", userID).Msg("Client registered")
}

// Unregister removes client and reports the user as disconnected. A client
// that was already replaced is ignored.
func (m *ManagerService) Unregister(client Client) {
	userID := client.GetUserID()

	m.mu.Lock()
	if m.Clients[userID] != client {
		m.mu.Unlock()
		return
	}
	delete(m.Clients, userID)
	delete(m.channels, userID)
	onDisconnect := m.onDisconnect
	metrics.OnlineClients.Set(float64(len(m.Clients)))
	m.mu.Unlock()

	client.Close()
	log.Info().Str("user", userID).Msg("Client unregistered")

	if onDisconnect != nil {
		onDisconnect(userID)
	}
}

// JoinChannel subscribes userID to the broadcasts of roomID.
func (m *ManagerService) JoinChannel(userID string, roomID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.channels[userID] = roomID
	if c, ok := m.Clients[userID]; ok {
		c.SetRoomID(roomID)
	}
}

// LeaveChannel unsubscribes userID from roomID. Other rooms are not touched.
func (m *ManagerService) LeaveChannel(userID string, roomID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.channels[userID] != roomID {
		return
	}
	delete(m.channels, userID)
	if c, ok := m.Clients[userID]; ok {
		c.SetRoomID(0)
	}
}

// Broadcast sends msg to every connected member of roomID except excludeUserID.
func (m *ManagerService) Broadcast(roomID uint, msg models.ChatMessage, excludeUserID string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for userID, r := range m.channels {
		if r != roomID || userID == excludeUserID {
			continue
		}
		if c, ok := m.Clients[userID]; ok {
			m.send(c, msg)
		}
	}
}

// Emit sends msg to userID if it is connected.
func (m *ManagerService) Emit(userID string, msg models.ChatMessage) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if c, ok := m.Clients[userID]; ok {
		m.send(c, msg)
	}
}

func (m *ManagerService) IsOnline(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Clients[userID]
	return ok
}

func (m *ManagerService) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Clients)
}

// send must be called with mu held, so the client cannot be closed under it.
func (m *ManagerService) send(c Client, msg models.ChatMessage) {
	select {
	case c.GetSendChannel() <- msg:
	default:
		log.Warn().Str("user", c.GetUserID()).Str("type", msg.Type).Msg("Client buffer full, event dropped")
	}
}
