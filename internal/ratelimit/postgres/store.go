package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/fgimenez/mythril-ci/internal/ratelimit"
	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store keeps the window counters in Postgres. The whole
// compare-reset-or-increment happens inside one upsert, so the post-update
// count each caller reads back is linearizable per (user, window).
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

const incrementQuery = `
	INSERT INTO rate_limit_windows (user_id, window_name, request_count, window_start)
	VALUES ($1, $2, 1, $3)
	ON CONFLICT (user_id, window_name) DO UPDATE SET
		request_count = CASE
			WHEN $3 - rate_limit_windows.window_start >= $4 THEN 1
			ELSE rate_limit_windows.request_count + 1
		END,
		window_start = CASE
			WHEN $3 - rate_limit_windows.window_start >= $4 THEN $3
			ELSE rate_limit_windows.window_start
		END
	RETURNING request_count;
`

func (s *Store) Increment(ctx context.Context, userID string, w ratelimit.Window, now time.Time) (int, error) {
	var count int64
	err := s.db.QueryRow(ctx, incrementQuery,
		userID, w.Name, now.UnixMilli(), w.Duration.Milliseconds()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to advance %s window for user %s: %w", w.Name, userID, err)
	}

	return int(count), nil
}
