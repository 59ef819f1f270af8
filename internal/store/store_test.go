package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NutanNimkar/FinChat/internal/db"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	payload := []byte(`[{"symbol":"TSLA"}]`)
	require.NoError(t, c.Set(ctx, "search:tesla", payload, 0))
	payload[0] = 'X'

	got, ok, err := c.Get(ctx, "search:tesla")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"symbol":"TSLA"}]`, string(got), "stored value is a copy")
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Minute)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNopCache(t *testing.T) {
	var c Cache = NopCache{}
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Hour))
	_, ok, err := c.Get(context.Background(), "k")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	rdb, err := DialRedis(ctx, mr.Addr(), "", 0)
	require.NoError(t, err)
	defer rdb.Close()
	c := NewRedisCache(rdb, "finchat:")

	_, ok, err := c.Get(ctx, "transcript:TSLA:2024:3")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "transcript:TSLA:2024:3", []byte("body"), time.Hour))
	assert.True(t, mr.Exists("finchat:transcript:TSLA:2024:3"))

	got, ok, err := c.Get(ctx, "transcript:TSLA:2024:3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "body", string(got))

	mr.FastForward(2 * time.Hour)
	_, ok, err = c.Get(ctx, "transcript:TSLA:2024:3")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheBackendError(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	c := NewRedisCache(rdb, "")

	mr.SetError("LOADING")
	_, _, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
}

func TestDialRedisFailsFast(t *testing.T) {
	_, err := DialRedis(context.Background(), "127.0.0.1:1", "", 0)
	assert.Error(t, err)
}

func newMockCache(t *testing.T) (*DatabaseCache, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewDatabaseCache(db.Wrap(sqlDB, nil))
	c.now = func() time.Time { return now }
	return c, mock, now
}

func TestDatabaseCacheGet(t *testing.T) {
	c, mock, now := newMockCache(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("search:tesla", now).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("cached")))

	got, ok, err := c.Get(context.Background(), "search:tesla")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "cached", string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseCacheMiss(t *testing.T) {
	c, mock, now := newMockCache(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).
		WithArgs("nope", now).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	_, ok, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDatabaseCacheGetError(t *testing.T) {
	c, mock, _ := newMockCache(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT value")).WillReturnError(errors.New("conn reset"))

	_, ok, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestDatabaseCacheSetUpserts(t *testing.T) {
	c, mock, now := newMockCache(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO provider_cache")).
		WithArgs("k", []byte("v"), now.Add(time.Hour)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabaseCachePurge(t *testing.T) {
	c, mock, now := newMockCache(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM provider_cache")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := c.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
