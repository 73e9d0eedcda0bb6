// Package keygen issues short, human-typeable keys for private rooms.
package keygen

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	nanoid "github.com/jaevor/go-nanoid"

	"pairchat/backend/internal/config"
)

// ErrKeySpaceExhausted is returned when no unused key was found within
// the configured number of attempts.
var ErrKeySpaceExhausted = errors.New("no unused key available")

// Generator produces fixed-length keys over config.PrivateKeyAlphabet.
type Generator struct {
	mu          sync.Mutex
	next        func() string
	MaxAttempts int
}

// New creates a Generator with the default alphabet and key length.
func New() (*Generator, error) {
	next, err := nanoid.CustomASCII(config.PrivateKeyAlphabet, config.PrivateKeyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to create key generator: %w", err)
	}
	return &Generator{next: next, MaxAttempts: config.KeyMaxAttempts}, nil
}

// GenerateUnique returns a key that is not in existing, retrying on collision.
func (g *Generator) GenerateUnique(existing map[string]struct{}) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := 0; i < g.MaxAttempts; i++ {
		key := g.next()
		if _, taken := existing[key]; !taken {
			return key, nil
		}
	}
	return "", ErrKeySpaceExhausted
}

// Validate checks the key format only: length and alphabet. Whether the key
// belongs to a room is a separate question.
func Validate(key string) bool {
	if len(key) != config.PrivateKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		if strings.IndexByte(config.PrivateKeyAlphabet, key[i]) < 0 {
			return false
		}
	}
	return true
}

// Normalize trims surrounding whitespace and upper-cases user input.
func Normalize(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}
