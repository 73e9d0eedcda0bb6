package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
)

// ErrRoomNotFound is returned when an update targets a room that does not exist.
var ErrRoomNotFound = errors.New("chat room not found")

// RoomStore persists rooms created by the pairing engine.
type RoomStore interface {
	CreateRoom(kind models.RoomKind, user1ID, user2ID string, key *string) (uint, error)
	ActivateRoom(roomID uint, user2ID string) error
	DeactivateRoom(roomID uint) error
	FindRoomByKey(key string) (*models.ChatRoom, error)
	RoomKeys() ([]string, error)
	DeactivateStaleRooms() (int64, error)
}

// ProfileStore persists the profiles of matched users.
type ProfileStore interface {
	SaveProfile(userID string, profile models.Profile) error
	GetProfile(userID string) (*models.Profile, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
	AppendMessage(roomID uint, senderID, content string) (time.Time, error)
	History(roomID uint) ([]models.ChatHistory, error)
}

// Storage is everything the chat hub needs from persistence.
type Storage interface {
	RoomStore
	ProfileStore
	MessageStore
}

// Service implements Storage on top of gorm. Redis is optional and only
// caches profiles.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// CreateRoom inserts a room and returns its id. A room without a second
// participant (a fresh private room) is stored inactive.
func (s *Service) CreateRoom(kind models.RoomKind, user1ID, user2ID string, key *string) (uint, error) {
	room := models.ChatRoom{
		User1ID:   user1ID,
		User2ID:   user2ID,
		Key:       key,
		Kind:      kind,
		IsPrivate: kind == models.RoomKindPrivate,
		IsActive:  user2ID != "",
	}
	if err := s.DB.Create(&room).Error; err != nil {
		return 0, fmt.Errorf("failed to create room: %w", err)
	}
	return room.ID, nil
}

// ActivateRoom fills the second participant slot and marks the room active.
// A room that was already closed stays closed.
func (s *Service) ActivateRoom(roomID uint, user2ID string) error {
	result := s.DB.Model(&models.ChatRoom{}).
		Where("id = ? AND ended_at IS NULL", roomID).
		Updates(map[string]interface{}{
			"user2_id":  user2ID,
			"is_active": true,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to activate room %d: %w", roomID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// DeactivateRoom closes the room, setting IsActive = false and EndedAt.
// Closing an already closed room keeps its original EndedAt.
func (s *Service) DeactivateRoom(roomID uint) error {
	err := s.DB.Model(&models.ChatRoom{}).
		Where("id = ? AND ended_at IS NULL", roomID).
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate room %d: %w", roomID, err)
	}
	return nil
}

// FindRoomByKey returns the room issued with key, or nil if there is none.
func (s *Service) FindRoomByKey(key string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.Where("room_key = ?", key).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find room by key: %w", err)
	}
	return &room, nil
}

// GetRoomByID returns a room by its surrogate key.
func (s *Service) GetRoomByID(roomID uint) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %d: %w", roomID, err)
	}
	return &room, nil
}

// ActiveRooms lists the rooms that are currently active, newest first.
func (s *Service) ActiveRooms() ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	if err := s.DB.Where("is_active = ?", true).Order("id desc").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("failed to list active rooms: %w", err)
	}
	return rooms, nil
}

// RoomKeys returns every private key ever issued, active or not.
func (s *Service) RoomKeys() ([]string, error) {
	var keys []string
	if err := s.DB.Model(&models.ChatRoom{}).
		Where("room_key IS NOT NULL").
		Pluck("room_key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to load room keys: %w", err)
	}
	return keys, nil
}

// DeactivateStaleRooms closes every room still open in the database.
// It runs at startup: sessions do not survive a restart.
func (s *Service) DeactivateStaleRooms() (int64, error) {
	result := s.DB.Model(&models.ChatRoom{}).
		Where("ended_at IS NULL").
		Updates(map[string]interface{}{
			"is_active": false,
			"ended_at":  time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to close stale rooms: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// SaveProfile upserts the profile and refreshes the Redis cache.
func (s *Service) SaveProfile(userID string, profile models.Profile) error {
	row := models.NewUserProfile(userID, profile)
	if err := s.DB.Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error; err != nil {
		return fmt.Errorf("failed to save profile for %s: %w", userID, err)
	}

	if s.Redis != nil {
		data, err := json.Marshal(profile)
		if err != nil {
			return err
		}
		if err := s.Redis.Set(s.Ctx, profileKey(userID), data, config.ProfileCacheTTL).Err(); err != nil {
			// The database row is the source of truth.
			log.Warn().Err(err).Str("user", userID).Msg("failed to cache profile")
		}
	}
	return nil
}

// GetProfile returns the stored profile of userID, or nil if there is none.
func (s *Service) GetProfile(userID string) (*models.Profile, error) {
	if s.Redis != nil {
		data, err := s.Redis.Get(s.Ctx, profileKey(userID)).Bytes()
		if err == nil {
			var p models.Profile
			if err := json.Unmarshal(data, &p); err == nil {
				return &p, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("user", userID).Msg("profile cache lookup failed")
		}
	}

	var row models.UserProfile
	err := s.DB.Where("user_id = ?", userID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile for %s: %w", userID, err)
	}
	p := row.Profile()
	return &p, nil
}

// AppendMessage stores a message and returns its timestamp.
func (s *Service) AppendMessage(roomID uint, senderID, content string) (time.Time, error) {
	history := models.ChatHistory{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.DB.Create(&history).Error; err != nil {
		return time.Time{}, fmt.Errorf("failed to save message for room %d: %w", roomID, err)
	}
	return history.CreatedAt, nil
}

// History returns the messages of a room in chronological order.
func (s *Service) History(roomID uint) ([]models.ChatHistory, error) {
	var history []models.ChatHistory
	if err := s.DB.Where("room_id = ?", roomID).Order("created_at asc, id asc").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to get chat history for room %d: %w", roomID, err)
	}
	return history, nil
}

func profileKey(userID string) string {
	return "profile:" + userID
}
