package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresIdempotencyChecker is the second tier of deduplication: when a key
// misses the in-memory LRU, the processor falls back to the event log.
type PostgresIdempotencyChecker struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresIdempotencyChecker(db *sql.DB) *PostgresIdempotencyChecker {
	return &PostgresIdempotencyChecker{
		db:      db,
		timeout: 500 * time.Millisecond,
	}
}

// IsDuplicate reports whether an operation with this type and key was already
// persisted.
func (c *PostgresIdempotencyChecker) IsDuplicate(opType, idempotencyKey string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	var exists bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM fund_log.ops
			WHERE op_type = $1 AND idempotency_key = $2
		)`,
		opType, idempotencyKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return exists, nil
}

// LoadRecentKeys returns up to limit of the most recent composite idempotency
// keys for warming the LRU after a restart.
func (c *PostgresIdempotencyChecker) LoadRecentKeys(ctx context.Context, limit int) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT op_type, idempotency_key
		FROM fund_log.ops
		ORDER BY sequence DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load recent keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var opType, key string
		if err := rows.Scan(&opType, &key); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		keys = append(keys, opType+":"+key)
	}
	return keys, rows.Err()
}
