package fmp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NutanNimkar/FinChat/internal/store"
)

// Source is the provider surface the assistant relies on. *Client and
// *CachedClient both satisfy it.
type Source interface {
	SearchCompanies(ctx context.Context, query string) ([]SearchResult, error)
	EarningsCallTranscript(ctx context.Context, ticker string, year, quarter int) ([]Transcript, error)
	IncomeStatements(ctx context.Context, ticker, period string) ([]IncomeStatement, error)
}

// CachedClient caches name searches and transcripts. Income statements go
// straight through because the latest figures change.
type CachedClient struct {
	next     Source
	cache    store.Cache
	ttl      time.Duration
	emptyTTL time.Duration
	logger   *zap.Logger
}

func NewCachedClient(next Source, cache store.Cache, ttl, emptyTTL time.Duration, logger *zap.Logger) *CachedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClient{next: next, cache: cache, ttl: ttl, emptyTTL: emptyTTL, logger: logger}
}

func (c *CachedClient) SearchCompanies(ctx context.Context, query string) ([]SearchResult, error) {
	key := "search:" + strings.ToLower(strings.TrimSpace(query))
	var out []SearchResult
	if c.load(ctx, key, &out) {
		return out, nil
	}
	out, err := c.next.SearchCompanies(ctx, query)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, out, len(out) == 0)
	return out, nil
}

func (c *CachedClient) EarningsCallTranscript(ctx context.Context, ticker string, year, quarter int) ([]Transcript, error) {
	key := fmt.Sprintf("transcript:%s:%d:%d", strings.ToUpper(ticker), year, quarter)
	var out []Transcript
	if c.load(ctx, key, &out) {
		return out, nil
	}
	out, err := c.next.EarningsCallTranscript(ctx, ticker, year, quarter)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, out, len(out) == 0)
	return out, nil
}

func (c *CachedClient) IncomeStatements(ctx context.Context, ticker, period string) ([]IncomeStatement, error) {
	return c.next.IncomeStatements(ctx, ticker, period)
}

// load reports whether key was served from the cache. Backend errors and
// undecodable entries count as misses.
func (c *CachedClient) load(ctx context.Context, key string, out any) bool {
	b, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("provider cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CachedClient) save(ctx context.Context, key string, v any, empty bool) {
	ttl := c.ttl
	if empty {
		ttl = c.emptyTTL
	}
	if ttl <= 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, b, ttl); err != nil {
		c.logger.Warn("provider cache write failed", zap.String("key", key), zap.Error(err))
	}
}
