package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tyemirov/petjo-admin/internal/session"
	"github.com/tyemirov/petjo-admin/internal/sessionpg"
)

const redisNamespacePrefix = "petjo_admin"

var errPGXRequiresPostgres = errors.New("store.pgx_requires_postgres")

// openTokenStore selects a token store from the store URL scheme. The returned
// closer releases whatever connection the store holds.
func openTokenStore(ctx context.Context, configuration SessionConfig) (session.TokenStore, func(), error) {
	keys := session.NewKeys(configuration.TokenKey)
	parsed, parseErr := url.Parse(configuration.StoreURL)
	if parseErr != nil {
		return nil, nil, fmt.Errorf("store.parse_url: %w", parseErr)
	}
	scheme := strings.ToLower(parsed.Scheme)

	if configuration.StoreDriver == storeDriverPGX {
		if scheme != "postgres" && scheme != "postgresql" {
			return nil, nil, fmt.Errorf("store.open: %w", errPGXRequiresPostgres)
		}
		store, err := sessionpg.Open(ctx, configuration.StoreURL, configuration.Profile, keys)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}

	switch scheme {
	case "memory":
		return session.NewMemoryTokenStore(keys), func() {}, nil
	case "redis", "rediss":
		options, err := goredis.ParseURL(configuration.StoreURL)
		if err != nil {
			return nil, nil, fmt.Errorf("store.redis.parse_url: %w", err)
		}
		client := goredis.NewClient(options)
		if pingErr := client.Ping(ctx).Err(); pingErr != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("store.redis.ping: %w", pingErr)
		}
		namespace := redisNamespacePrefix + ":" + configuration.Profile
		return session.NewRedisTokenStore(client, namespace, keys), func() { _ = client.Close() }, nil
	case "sqlite", "sqlite3":
		if err := ensureSQLiteDirectory(parsed); err != nil {
			return nil, nil, err
		}
	}

	store, err := session.NewDatabaseTokenStore(ctx, configuration.StoreURL, configuration.Profile, keys)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func ensureSQLiteDirectory(parsed *url.URL) error {
	if parsed.Host != "" || parsed.Path == "" {
		return nil
	}
	directory := filepath.Dir(filepath.FromSlash(parsed.Path))
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("store.sqlite.mkdir: %w", err)
	}
	return nil
}
