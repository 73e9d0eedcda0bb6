package models

import (
	"time"

	"github.com/lib/pq"
)

// Profile is the free-text self description of a waiting user together with
// the keywords extracted from it. Keywords are deduplicated and ranked.
type Profile struct {
	Bio      string   `json:"bio"`
	Purpose  string   `json:"purpose"`
	Keywords []string `json:"keywords"`
}

// Text returns the text keywords are extracted from.
func (p Profile) Text() string {
	if p.Bio == "" {
		return p.Purpose
	}
	if p.Purpose == "" {
		return p.Bio
	}
	return p.Purpose + " " + p.Bio
}

// UserProfile is the persisted form of a Profile.
type UserProfile struct {
	UserID    string         `gorm:"primaryKey;size:100" json:"user_id"`
	Bio       string         `gorm:"type:text" json:"bio"`
	Purpose   string         `gorm:"type:text" json:"purpose"`
	Keywords  pq.StringArray `gorm:"type:text" json:"keywords"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewUserProfile builds the row stored for userID.
func NewUserProfile(userID string, p Profile) *UserProfile {
	return &UserProfile{
		UserID:   userID,
		Bio:      p.Bio,
		Purpose:  p.Purpose,
		Keywords: pq.StringArray(append([]string(nil), p.Keywords...)),
	}
}

// Profile converts the row back to its in-memory form.
func (u *UserProfile) Profile() Profile {
	return Profile{
		Bio:      u.Bio,
		Purpose:  u.Purpose,
		Keywords: append([]string(nil), u.Keywords...),
	}
}
