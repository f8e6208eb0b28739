package session

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// RedisTokenStore keeps the token slots of one profile in Redis.
type RedisTokenStore struct {
	client    *goredis.Client
	namespace string
	keys      Keys
}

// NewRedisTokenStore scopes a Redis client to a profile namespace.
func NewRedisTokenStore(client *goredis.Client, namespace string, keys Keys) *RedisTokenStore {
	return &RedisTokenStore{client: client, namespace: namespace, keys: keys}
}

// Get returns the value of a slot, or an empty string when the key is absent.
func (store *RedisTokenStore) Get(ctx context.Context, slot Slot) (string, error) {
	key, err := store.redisKey(slot)
	if err != nil {
		return "", err
	}
	value, getErr := store.client.Get(ctx, key).Result()
	if errors.Is(getErr, goredis.Nil) {
		return "", nil
	}
	if getErr != nil {
		return "", fmt.Errorf("token_store.get.redis: %w", getErr)
	}
	return value, nil
}

// Set writes a slot without expiry.
func (store *RedisTokenStore) Set(ctx context.Context, slot Slot, value string) error {
	key, err := store.redisKey(slot)
	if err != nil {
		return err
	}
	if setErr := store.client.Set(ctx, key, value, 0).Err(); setErr != nil {
		return fmt.Errorf("token_store.set.redis: %w", setErr)
	}
	return nil
}

// Clear deletes a slot.
func (store *RedisTokenStore) Clear(ctx context.Context, slot Slot) error {
	key, err := store.redisKey(slot)
	if err != nil {
		return err
	}
	if delErr := store.client.Del(ctx, key).Err(); delErr != nil {
		return fmt.Errorf("token_store.clear.redis: %w", delErr)
	}
	return nil
}

// SetPair writes both slots inside MULTI/EXEC.
func (store *RedisTokenStore) SetPair(ctx context.Context, pair TokenPair) error {
	_, err := store.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, store.namespaced(store.keys.Access), pair.AccessToken, 0)
		pipe.Set(ctx, store.namespaced(store.keys.Refresh), pair.RefreshToken, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("token_store.set_pair.redis: %w", err)
	}
	return nil
}

// ClearAll deletes both slots with a single DEL.
func (store *RedisTokenStore) ClearAll(ctx context.Context) error {
	if err := store.client.Del(ctx, store.namespaced(store.keys.Access), store.namespaced(store.keys.Refresh)).Err(); err != nil {
		return fmt.Errorf("token_store.clear_all.redis: %w", err)
	}
	return nil
}

func (store *RedisTokenStore) redisKey(slot Slot) (string, error) {
	key, err := store.keys.For(slot)
	if err != nil {
		return "", err
	}
	return store.namespaced(key), nil
}

func (store *RedisTokenStore) namespaced(key string) string {
	if store.namespace == "" {
		return key
	}
	return store.namespace + ":" + key
}
