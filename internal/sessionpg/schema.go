package sessionpg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the session_tokens table if it does not exist. The
// layout matches the GORM-managed table so both drivers can share a database.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS session_tokens (
    profile TEXT NOT NULL,
    slot_key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at_unix BIGINT NOT NULL,
    PRIMARY KEY (profile, slot_key)
);
`)
	if err != nil {
		return fmt.Errorf("sessionpg.schema: %w", err)
	}
	return nil
}
