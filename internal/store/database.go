package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NutanNimkar/FinChat/internal/db"
)

// DatabaseCache stores provider payloads in the provider_cache table.
type DatabaseCache struct {
	db  *db.DB
	now func() time.Time
}

func NewDatabaseCache(database *db.DB) *DatabaseCache {
	return &DatabaseCache{db: database, now: time.Now}
}

func (ds *DatabaseCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	query := `
		SELECT value
		FROM provider_cache
		WHERE key = $1 AND expires_at > $2
	`
	err := ds.db.QueryRowContext(ctx, query, key, ds.now()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read provider cache: %w", err)
	}
	return value, true, nil
}

func (ds *DatabaseCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `
		INSERT INTO provider_cache (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at
	`
	if _, err := ds.db.ExecContext(ctx, query, key, value, ds.now().Add(ttl)); err != nil {
		return fmt.Errorf("failed to write provider cache: %w", err)
	}
	return nil
}

// Purge deletes expired rows and reports how many were removed.
func (ds *DatabaseCache) Purge(ctx context.Context) (int64, error) {
	res, err := ds.db.ExecContext(ctx, `DELETE FROM provider_cache WHERE expires_at <= $1`, ds.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge provider cache: %w", err)
	}
	return res.RowsAffected()
}
