package devidp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRefreshTokenStoreLifecycle(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryRefreshTokenStore(func() time.Time { return now })

	tokenID, opaque, err := store.Issue(context.Background(), "user-1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokenID == "" || opaque == "" {
		t.Fatalf("expected non-empty token id and opaque token")
	}

	userID, validatedID, validateErr := store.Validate(context.Background(), opaque)
	if validateErr != nil || userID != "user-1" || validatedID != tokenID {
		t.Fatalf("unexpected validation %s %s %v", userID, validatedID, validateErr)
	}

	if err := store.Revoke(context.Background(), tokenID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := store.Revoke(context.Background(), tokenID); err != nil {
		t.Fatalf("second revoke should be a no-op, got %v", err)
	}
	if _, _, err := store.Validate(context.Background(), opaque); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Fatalf("expected ErrRefreshTokenRevoked, got %v", err)
	}
}

func TestMemoryRefreshTokenStoreRejections(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryRefreshTokenStore(func() time.Time { return now })
	_, opaque, err := store.Issue(context.Background(), "user-1", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, _, err := store.Validate(context.Background(), opaque); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected ErrRefreshTokenExpired, got %v", err)
	}
	if _, _, err := store.Validate(context.Background(), "unknown"); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
	if _, _, err := store.Validate(context.Background(), ""); !errors.Is(err, ErrRefreshTokenEmptyOpaque) {
		t.Fatalf("expected ErrRefreshTokenEmptyOpaque, got %v", err)
	}
	if err := store.Revoke(context.Background(), "missing"); !errors.Is(err, ErrRefreshTokenNotFound) {
		t.Fatalf("expected ErrRefreshTokenNotFound, got %v", err)
	}
}
