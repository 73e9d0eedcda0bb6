package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MIN_SIMILARITY", "")
	t.Setenv("MAX_KEYWORDS", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UsePostgres())
	assert.Equal(t, "chat.db", cfg.SQLitePath)
	assert.Equal(t, DefaultMinSimilarity, cfg.MinSimilarity)
	assert.Equal(t, DefaultMaxKeywords, cfg.MaxKeywords)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "host=db user=u dbname=chat sslmode=disable")
	t.Setenv("MIN_SIMILARITY", "0.35")
	t.Setenv("MAX_KEYWORDS", "5")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.UsePostgres())
	assert.InDelta(t, 0.35, cfg.MinSimilarity, 1e-9)
	assert.Equal(t, 5, cfg.MaxKeywords)
}

func TestLoad_IgnoresOutOfRangeValues(t *testing.T) {
	t.Setenv("MIN_SIMILARITY", "1.5")
	t.Setenv("MAX_KEYWORDS", "-3")

	cfg := Load()

	assert.Equal(t, DefaultMinSimilarity, cfg.MinSimilarity)
	assert.Equal(t, DefaultMaxKeywords, cfg.MaxKeywords)
}
