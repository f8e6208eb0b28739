package devidp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRefreshTokenNotFound indicates no refresh token matched the provided value.
	ErrRefreshTokenNotFound = errors.New("refresh_store.not_found")
	// ErrRefreshTokenRevoked indicates the refresh token has been revoked.
	ErrRefreshTokenRevoked = errors.New("refresh_store.revoked")
	// ErrRefreshTokenExpired indicates the refresh token has exceeded its expiry.
	ErrRefreshTokenExpired = errors.New("refresh_store.expired")
	// ErrRefreshTokenEmptyOpaque indicates that the provided opaque token text is empty.
	ErrRefreshTokenEmptyOpaque = errors.New("refresh_store.empty_token")
)

// RefreshTokenStore manages the refresh tokens handed out at login.
type RefreshTokenStore interface {
	Issue(ctx context.Context, userID string, expiresAt time.Time) (tokenID string, tokenOpaque string, err error)
	Validate(ctx context.Context, tokenOpaque string) (userID string, tokenID string, err error)
	Revoke(ctx context.Context, tokenID string) error
}

// MemoryRefreshTokenStore keeps hashed refresh tokens in memory.
type MemoryRefreshTokenStore struct {
	mutex  sync.Mutex
	byID   map[string]*refreshRecord
	byHash map[string]string
	now    func() time.Time
}

type refreshRecord struct {
	TokenID       string
	UserID        string
	Hash          string
	ExpiresAt     time.Time
	RevokedAtUnix int64
}

// NewMemoryRefreshTokenStore creates an empty store using now for expiry checks.
func NewMemoryRefreshTokenStore(now func() time.Time) *MemoryRefreshTokenStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryRefreshTokenStore{
		byID:   make(map[string]*refreshRecord),
		byHash: make(map[string]string),
		now:    now,
	}
}

// Issue stores a new token and returns its id and opaque value.
func (store *MemoryRefreshTokenStore) Issue(ctx context.Context, userID string, expiresAt time.Time) (string, string, error) {
	opaque, hashValue, err := newRefreshSecret()
	if err != nil {
		return "", "", err
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	tokenID := uuid.NewString()
	store.byID[tokenID] = &refreshRecord{
		TokenID:   tokenID,
		UserID:    userID,
		Hash:      hashValue,
		ExpiresAt: expiresAt,
	}
	store.byHash[hashValue] = tokenID
	return tokenID, opaque, nil
}

// Validate checks the opaque token and returns its owner and id.
func (store *MemoryRefreshTokenStore) Validate(ctx context.Context, tokenOpaque string) (string, string, error) {
	if tokenOpaque == "" {
		return "", "", ErrRefreshTokenEmptyOpaque
	}
	store.mutex.Lock()
	defer store.mutex.Unlock()

	tokenID, ok := store.byHash[refreshDigest(tokenOpaque)]
	if !ok {
		return "", "", ErrRefreshTokenNotFound
	}
	record := store.byID[tokenID]
	if record == nil {
		return "", "", ErrRefreshTokenNotFound
	}
	if record.RevokedAtUnix != 0 {
		return "", "", ErrRefreshTokenRevoked
	}
	if !store.now().Before(record.ExpiresAt) {
		return "", "", ErrRefreshTokenExpired
	}
	return record.UserID, record.TokenID, nil
}

// Revoke marks a token as revoked. Revoking twice is not an error.
func (store *MemoryRefreshTokenStore) Revoke(ctx context.Context, tokenID string) error {
	store.mutex.Lock()
	defer store.mutex.Unlock()

	record := store.byID[tokenID]
	if record == nil {
		return ErrRefreshTokenNotFound
	}
	if record.RevokedAtUnix == 0 {
		record.RevokedAtUnix = store.now().Unix()
	}
	return nil
}
