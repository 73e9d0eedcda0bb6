package chathub_test

import (
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"pairchat/backend/internal/models"
)

type MockStorage struct {
	mock.Mock
}

// CreateRoom accepts either a uint or a func() uint as the first return value.
func (m *MockStorage) CreateRoom(kind models.RoomKind, user1ID, user2ID string, key *string) (uint, error) {
	args := m.Called(kind, user1ID, user2ID, key)
	if fn, ok := args.Get(0).(func() uint); ok {
		return fn(), args.Error(1)
	}
	return args.Get(0).(uint), args.Error(1)
}

func (m *MockStorage) ActivateRoom(roomID uint, user2ID string) error {
	args := m.Called(roomID, user2ID)
	return args.Error(0)
}

func (m *MockStorage) DeactivateRoom(roomID uint) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) FindRoomByKey(key string) (*models.ChatRoom, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatRoom), args.Error(1)
}

func (m *MockStorage) RoomKeys() ([]string, error) {
	args := m.Called()
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) DeactivateStaleRooms() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SaveProfile(userID string, profile models.Profile) error {
	args := m.Called(userID, profile)
	return args.Error(0)
}

func (m *MockStorage) GetProfile(userID string) (*models.Profile, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockStorage) AppendMessage(roomID uint, senderID, content string) (time.Time, error) {
	args := m.Called(roomID, senderID, content)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockStorage) History(roomID uint) ([]models.ChatHistory, error) {
	args := m.Called(roomID)
	return args.Get(0).([]models.ChatHistory), args.Error(1)
}

// newPermissiveStorage hands out increasing room ids and accepts every write.
func newPermissiveStorage() *MockStorage {
	var next uint32
	s := new(MockStorage)
	s.On("CreateRoom", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(func() uint { return uint(atomic.AddUint32(&next, 1)) }, nil).Maybe()
	s.On("ActivateRoom", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("DeactivateRoom", mock.Anything).Return(nil).Maybe()
	s.On("SaveProfile", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.On("AppendMessage", mock.Anything, mock.Anything, mock.Anything).Return(time.Now(), nil).Maybe()
	return s
}
