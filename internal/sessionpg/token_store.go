package sessionpg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tyemirov/petjo-admin/internal/session"
)

const upsertSlotSQL = `
INSERT INTO session_tokens (profile, slot_key, value, updated_at_unix)
VALUES ($1, $2, $3, $4)
ON CONFLICT (profile, slot_key) DO UPDATE
SET value = EXCLUDED.value, updated_at_unix = EXCLUDED.updated_at_unix
`

// PostgresTokenStore keeps the token slots of one profile in PostgreSQL using pgx.
type PostgresTokenStore struct {
	pool    *pgxpool.Pool
	profile string
	keys    session.Keys
}

var _ session.TokenStore = (*PostgresTokenStore)(nil)

// NewPostgresTokenStore scopes a pool to a profile.
func NewPostgresTokenStore(pool *pgxpool.Pool, profile string, keys session.Keys) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool, profile: profile, keys: keys}
}

// Open builds a pool, ensures the schema, and returns a store for the profile.
func Open(ctx context.Context, databaseURL string, profile string, keys session.Keys) (*PostgresTokenStore, error) {
	pool, err := BuildPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if schemaErr := EnsureSchema(ctx, pool); schemaErr != nil {
		pool.Close()
		return nil, schemaErr
	}
	return NewPostgresTokenStore(pool, profile, keys), nil
}

// Close releases the pool.
func (store *PostgresTokenStore) Close() {
	store.pool.Close()
}

// Get returns the value of a slot, or an empty string when no row exists.
func (store *PostgresTokenStore) Get(ctx context.Context, slot session.Slot) (string, error) {
	key, err := store.keys.For(slot)
	if err != nil {
		return "", err
	}
	var value string
	scanErr := store.pool.QueryRow(ctx, `
SELECT value FROM session_tokens WHERE profile = $1 AND slot_key = $2
`, store.profile, key).Scan(&value)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return "", nil
	}
	if scanErr != nil {
		return "", fmt.Errorf("token_store.get.pgx: %w", scanErr)
	}
	return value, nil
}

// Set upserts a slot.
func (store *PostgresTokenStore) Set(ctx context.Context, slot session.Slot, value string) error {
	key, err := store.keys.For(slot)
	if err != nil {
		return err
	}
	if _, execErr := store.pool.Exec(ctx, upsertSlotSQL, store.profile, key, value, time.Now().UTC().Unix()); execErr != nil {
		return fmt.Errorf("token_store.set.pgx: %w", execErr)
	}
	return nil
}

// Clear deletes a slot.
func (store *PostgresTokenStore) Clear(ctx context.Context, slot session.Slot) error {
	key, err := store.keys.For(slot)
	if err != nil {
		return err
	}
	if _, execErr := store.pool.Exec(ctx, `
DELETE FROM session_tokens WHERE profile = $1 AND slot_key = $2
`, store.profile, key); execErr != nil {
		return fmt.Errorf("token_store.clear.pgx: %w", execErr)
	}
	return nil
}

// SetPair upserts both slots in one transaction.
func (store *PostgresTokenStore) SetPair(ctx context.Context, pair session.TokenPair) error {
	updatedAt := time.Now().UTC().Unix()
	txErr := pgx.BeginFunc(ctx, store.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertSlotSQL, store.profile, store.keys.Access, pair.AccessToken, updatedAt); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, upsertSlotSQL, store.profile, store.keys.Refresh, pair.RefreshToken, updatedAt)
		return err
	})
	if txErr != nil {
		return fmt.Errorf("token_store.set_pair.pgx: %w", txErr)
	}
	return nil
}

// ClearAll deletes both slots in one statement.
func (store *PostgresTokenStore) ClearAll(ctx context.Context) error {
	if _, execErr := store.pool.Exec(ctx, `
DELETE FROM session_tokens WHERE profile = $1 AND slot_key = ANY($2)
`, store.profile, []string{store.keys.Access, store.keys.Refresh}); execErr != nil {
		return fmt.Errorf("token_store.clear_all.pgx: %w", execErr)
	}
	return nil
}
