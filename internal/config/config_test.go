package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CACHE_BACKEND", "")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("SUMMARY_CONCURRENCY", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 1, cfg.SummaryConcurrency)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("CACHE_TTL", "2h")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SUMMARY_CONCURRENCY", "0")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "redis", cfg.CacheBackend)
	assert.Equal(t, 2*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 1, cfg.SummaryConcurrency, "concurrency is clamped to at least one")
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("FMP_RATE_LIMIT", "lots")
	t.Setenv("FMP_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 5, cfg.FMPRateLimit)
	assert.Equal(t, 20*time.Second, cfg.FMPTimeout)
}
