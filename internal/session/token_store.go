package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Slot names one of the two persisted token entries.
type Slot int

const (
	// SlotAccess holds the access token.
	SlotAccess Slot = iota
	// SlotRefresh holds the refresh token.
	SlotRefresh
)

func (slot Slot) String() string {
	switch slot {
	case SlotAccess:
		return "access"
	case SlotRefresh:
		return "refresh"
	default:
		return fmt.Sprintf("slot(%d)", int(slot))
	}
}

// TokenPair is the credential pair returned by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenStore persists the access and refresh token slots of one profile.
// Get returns an empty string and a nil error for an empty slot.
// SetPair and ClearAll change both slots atomically.
type TokenStore interface {
	Get(ctx context.Context, slot Slot) (string, error)
	Set(ctx context.Context, slot Slot, value string) error
	Clear(ctx context.Context, slot Slot) error
	SetPair(ctx context.Context, pair TokenPair) error
	ClearAll(ctx context.Context) error
}

// DefaultTokenKey is used when no token key is configured.
const DefaultTokenKey = "petjo_admin_token"

// Keys maps slots onto the configured storage key names.
type Keys struct {
	Access  string
	Refresh string
}

// NewKeys derives the slot keys from a token key: the access slot uses the key
// itself and the refresh slot appends "_refresh".
func NewKeys(tokenKey string) Keys {
	tokenKey = strings.TrimSpace(tokenKey)
	if tokenKey == "" {
		tokenKey = DefaultTokenKey
	}
	return Keys{Access: tokenKey, Refresh: tokenKey + "_refresh"}
}

// For returns the key name of a slot.
func (keys Keys) For(slot Slot) (string, error) {
	switch slot {
	case SlotAccess:
		return keys.Access, nil
	case SlotRefresh:
		return keys.Refresh, nil
	default:
		return "", fmt.Errorf("session.token_store.key.%s: %w", slot, ErrUnknownSlot)
	}
}

// MemoryTokenStore keeps the slots in process memory. Intended for tests and dev.
type MemoryTokenStore struct {
	mutex  sync.RWMutex
	keys   Keys
	values map[string]string
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore(keys Keys) *MemoryTokenStore {
	return &MemoryTokenStore{
		keys:   keys,
		values: make(map[string]string),
	}
}

// Get returns the value of a slot.
func (store *MemoryTokenStore) Get(ctx context.Context, slot Slot) (string, error) {
	key, err := store.keys.For(slot)
	if err != nil {
		return "", err
	}
	store.mutex.RLock()
	defer store.mutex.RUnlock()
	return store.values[key], nil
}

// Set writes a slot.
func (store *MemoryTokenStore) Set(ctx context.Context, slot Slot, value string) error {
	key, err := store.keys.For(slot)
	if err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.values[key] = value
	return nil
}

// Clear empties a slot.
func (store *MemoryTokenStore) Clear(ctx context.Context, slot Slot) error {
	key, err := store.keys.For(slot)
	if err != nil {
		return err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.values, key)
	return nil
}

// SetPair writes both slots under one lock.
func (store *MemoryTokenStore) SetPair(ctx context.Context, pair TokenPair) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	store.values[store.keys.Access] = pair.AccessToken
	store.values[store.keys.Refresh] = pair.RefreshToken
	return nil
}

// ClearAll empties both slots under one lock.
func (store *MemoryTokenStore) ClearAll(ctx context.Context) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()
	delete(store.values, store.keys.Access)
	delete(store.values, store.keys.Refresh)
	return nil
}
