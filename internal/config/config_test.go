package config

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CACHE_TTL", "LLM_TIMEOUT", "TREND_WINDOW", "FALLBACK_CONFIDENCE", "FETCH_LIMIT", "LLM_PROVIDER", "PREWARM_QUERIES"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 300*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.TrendWindow)
	assert.Equal(t, 0.3, cfg.FallbackConfidence)
	assert.Equal(t, 50, cfg.FetchLimit)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 0, len(cfg.PrewarmQueries))
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CACHE_TTL", "2h")
	t.Setenv("FALLBACK_CONFIDENCE", "0.25")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("PREWARM_QUERIES", " tesla , ,nvidia earnings")

	cfg := Load()

	assert.Equal(t, 2*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.25, cfg.FallbackConfidence)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, []string{"tesla", "nvidia earnings"}, cfg.PrewarmQueries)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_TTL", "forever")
	t.Setenv("FALLBACK_CONFIDENCE", "2")
	t.Setenv("FETCH_LIMIT", "-3")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 0.3, cfg.FallbackConfidence)
	assert.Equal(t, 50, cfg.FetchLimit)
}
