package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"
)

type controllableClock struct {
	mutex   sync.Mutex
	current time.Time
}

func (clock *controllableClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.current
}

func (clock *controllableClock) Advance(duration time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.current = clock.current.Add(duration)
}

type recordingNavigator struct {
	mutex     sync.Mutex
	redirects []string
}

func (navigator *recordingNavigator) RedirectToLogin(loginPath string) {
	navigator.mutex.Lock()
	defer navigator.mutex.Unlock()
	navigator.redirects = append(navigator.redirects, loginPath)
}

func (navigator *recordingNavigator) count() int {
	navigator.mutex.Lock()
	defer navigator.mutex.Unlock()
	return len(navigator.redirects)
}

type fakeIdentityClient struct {
	mutex       sync.Mutex
	loginFunc   func(ctx context.Context, credentials Credentials) (TokenPair, error)
	revokeFunc  func(ctx context.Context, refreshToken string) error
	loginCalls  int
	revokeCalls []string
}

func (client *fakeIdentityClient) Login(ctx context.Context, credentials Credentials) (TokenPair, error) {
	client.mutex.Lock()
	client.loginCalls++
	loginFunc := client.loginFunc
	client.mutex.Unlock()
	if loginFunc == nil {
		return TokenPair{}, errors.New("login_not_configured")
	}
	return loginFunc(ctx, credentials)
}

func (client *fakeIdentityClient) Revoke(ctx context.Context, refreshToken string) error {
	client.mutex.Lock()
	client.revokeCalls = append(client.revokeCalls, refreshToken)
	revokeFunc := client.revokeFunc
	client.mutex.Unlock()
	if revokeFunc == nil {
		return nil
	}
	return revokeFunc(ctx, refreshToken)
}

func (client *fakeIdentityClient) loginCount() int {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	return client.loginCalls
}

func (client *fakeIdentityClient) revoked() []string {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	return append([]string(nil), client.revokeCalls...)
}

type failingTokenStore struct {
	err error
}

func (store failingTokenStore) Get(context.Context, Slot) (string, error) { return "", store.err }
func (store failingTokenStore) Set(context.Context, Slot, string) error  { return store.err }
func (store failingTokenStore) Clear(context.Context, Slot) error        { return store.err }
func (store failingTokenStore) SetPair(context.Context, TokenPair) error { return store.err }
func (store failingTokenStore) ClearAll(context.Context) error           { return store.err }

func mintAccessToken(t *testing.T, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"exp":  expiresAt.Unix(),
		"role": "admin",
	})
	signed, err := token.SignedString([]byte("provider-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func staticLogin(pair TokenPair) func(context.Context, Credentials) (TokenPair, error) {
	return func(context.Context, Credentials) (TokenPair, error) {
		return pair, nil
	}
}

type testHarness struct {
	manager   *Manager
	state     *State
	store     *MemoryTokenStore
	client    *fakeIdentityClient
	clock     *controllableClock
	metrics   *CounterMetrics
	navigator *recordingNavigator
}

func newTestHarness(t *testing.T, prepare func(store *MemoryTokenStore)) *testHarness {
	t.Helper()
	harness := &testHarness{
		state:     NewState(),
		store:     NewMemoryTokenStore(NewKeys("test_token")),
		client:    &fakeIdentityClient{},
		clock:     &controllableClock{current: time.Unix(1700000000, 0).UTC()},
		metrics:   NewCounterMetrics(),
		navigator: &recordingNavigator{},
	}
	if prepare != nil {
		prepare(harness.store)
	}
	manager, err := New(context.Background(), Config{
		Store:         harness.store,
		Client:        harness.client,
		State:         harness.state,
		Logger:        zaptest.NewLogger(t),
		Metrics:       harness.metrics,
		Clock:         harness.clock,
		Navigator:     harness.navigator,
		LoginTimeout:  time.Second,
		RevokeTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	harness.manager = manager
	return harness
}

func (harness *testHarness) slot(t *testing.T, slot Slot) string {
	t.Helper()
	value, err := harness.store.Get(context.Background(), slot)
	if err != nil {
		t.Fatalf("read %s slot: %v", slot, err)
	}
	return value
}

func (harness *testHarness) requireAnonymous(t *testing.T) {
	t.Helper()
	if harness.manager.IsAuthenticated(context.Background()) {
		t.Fatalf("expected IsAuthenticated to be false")
	}
	if identity := harness.manager.CurrentIdentity(); identity != nil {
		t.Fatalf("expected no identity, got %#v", identity)
	}
	if access := harness.slot(t, SlotAccess); access != "" {
		t.Fatalf("expected empty access slot, got %q", access)
	}
	if refresh := harness.slot(t, SlotRefresh); refresh != "" {
		t.Fatalf("expected empty refresh slot, got %q", refresh)
	}
}

var validCredentials = Credentials{Email: "admin@example.com", Password: "correct horse"}

// interleavingTokenStore runs afterAccessRead once, between the first access
// slot read after it is armed and the return of that read's now stale value.
type interleavingTokenStore struct {
	TokenStore
	once            sync.Once
	afterAccessRead func()
}

func (store *interleavingTokenStore) Get(ctx context.Context, slot Slot) (string, error) {
	value, err := store.TokenStore.Get(ctx, slot)
	if slot == SlotAccess && store.afterAccessRead != nil {
		store.once.Do(store.afterAccessRead)
	}
	return value, err
}

func newInterleavingHarness(t *testing.T) (*testHarness, *interleavingTokenStore) {
	t.Helper()
	harness := &testHarness{
		state:     NewState(),
		store:     NewMemoryTokenStore(NewKeys("test_token")),
		client:    &fakeIdentityClient{},
		clock:     &controllableClock{current: time.Unix(1700000000, 0).UTC()},
		metrics:   NewCounterMetrics(),
		navigator: &recordingNavigator{},
	}
	wrapped := &interleavingTokenStore{TokenStore: harness.store}
	manager, err := New(context.Background(), Config{
		Store:         wrapped,
		Client:        harness.client,
		State:         harness.state,
		Logger:        zaptest.NewLogger(t),
		Metrics:       harness.metrics,
		Clock:         harness.clock,
		Navigator:     harness.navigator,
		LoginTimeout:  time.Second,
		RevokeTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	harness.manager = manager
	return harness, wrapped
}

// armLoginDuringCheck makes a login complete between the caller's validity
// check and the stale-state cleanup that follows it.
func armLoginDuringCheck(t *testing.T, harness *testHarness, store *interleavingTokenStore) string {
	t.Helper()
	accessToken := mintAccessToken(t, "u1", harness.clock.Now().Add(time.Hour))
	harness.client.loginFunc = staticLogin(TokenPair{AccessToken: accessToken, RefreshToken: "refresh-1"})
	var loginErr error
	store.afterAccessRead = func() {
		loginErr = harness.manager.Login(context.Background(), validCredentials)
	}
	t.Cleanup(func() {
		if loginErr != nil {
			t.Errorf("interleaved login failed: %v", loginErr)
		}
	})
	return accessToken
}
