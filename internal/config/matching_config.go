package config

import "time"

const (
	// Keywords
	DefaultMaxKeywords   = 10
	DefaultMinSimilarity = 0.2
	MinKeywordRunes      = 2

	// Messages
	MaxMessageLength = 500

	// Private rooms
	PrivateKeyLength   = 6
	PrivateKeyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	KeyMaxAttempts     = 1000

	// Anonymous users
	AnonIDLength = 8
	TokenTTL     = 72 * time.Hour

	// Profile cache
	ProfileCacheTTL = 24 * time.Hour
)
