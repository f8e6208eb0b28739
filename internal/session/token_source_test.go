package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientAttachesBearerToken(t *testing.T) {
	t.Parallel()

	harness := newTestHarness(t, nil)
	loginHarness(t, harness, time.Hour)
	accessToken := harness.slot(t, SlotAccess)

	var received string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		received = request.Header.Get("Authorization")
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := harness.manager.HTTPClient(context.Background(), nil)
	response, err := client.Get(server.URL + "/admin/stats")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = response.Body.Close()
	if received != "Bearer "+accessToken {
		t.Fatalf("expected bearer header, got %q", received)
	}
}

func TestHTTPClientStopsAfterLogout(t *testing.T) {
	t.Parallel()

	harness := newTestHarness(t, nil)
	loginHarness(t, harness, time.Hour)

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		calls++
		writer.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := harness.manager.HTTPClient(context.Background(), nil)
	harness.manager.Logout(context.Background())

	_, err := client.Get(server.URL)
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no request without a token, got %d", calls)
	}
}

func TestTokenSourceClearsExpiredSession(t *testing.T) {
	t.Parallel()

	harness := newTestHarness(t, nil)
	loginHarness(t, harness, time.Minute)

	source := harness.manager.TokenSource(context.Background())
	token, err := source.Token()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.TokenType != "Bearer" || !token.Expiry.Equal(harness.clock.Now().Add(time.Minute)) {
		t.Fatalf("unexpected token %#v", token)
	}

	harness.clock.Advance(time.Minute)
	if _, err := source.Token(); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	harness.requireAnonymous(t)
	if harness.navigator.count() != 1 {
		t.Fatalf("expected redirect to login, got %d", harness.navigator.count())
	}
	if len(harness.client.revoked()) != 0 {
		t.Fatalf("an expired token must not trigger revocation")
	}
}

func TestTokenSourceKeepsLoginCompletedDuringRead(t *testing.T) {
	t.Parallel()

	harness, store := newInterleavingHarness(t)
	accessToken := armLoginDuringCheck(t, harness, store)

	token, err := harness.manager.TokenSource(context.Background()).Token()
	if err != nil {
		t.Fatalf("expected token after concurrent login, got %v", err)
	}
	if token.AccessToken != accessToken {
		t.Fatalf("expected fresh access token, got %q", token.AccessToken)
	}
	if harness.navigator.count() != 0 || harness.metrics.Count(metricLocalClear) != 0 {
		t.Fatalf("expected no clear and no redirect")
	}
	if access := harness.slot(t, SlotAccess); access != accessToken {
		t.Fatalf("expected stored access token to be kept, got %q", access)
	}
}
