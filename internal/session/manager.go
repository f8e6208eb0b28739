package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tyemirov/petjo-admin/pkg/tokenclaims"
	"go.uber.org/zap"
)

// Manager owns the token store and the session state. It is the only writer
// of State; every transition between anonymous and authenticated goes through it.
type Manager struct {
	store     TokenStore
	client    IdentityClient
	state     *State
	logger    *zap.Logger
	metrics   MetricsRecorder
	clock     Clock
	navigator Navigator

	loginPath     string
	loginTimeout  time.Duration
	revokeTimeout time.Duration

	// mutex serializes store writes with state publication.
	mutex sync.Mutex
	// epoch increments on every local clear so an in-flight login can tell it lost.
	epoch         uint64
	loginInFlight atomic.Bool
}

// New validates the configuration, applies defaults, and hydrates the state
// from whatever token the store already holds.
func New(ctx context.Context, configuration Config) (*Manager, error) {
	if configuration.Store == nil {
		return nil, fmt.Errorf("session.manager.new: %w", ErrMissingStore)
	}
	if configuration.Client == nil {
		return nil, fmt.Errorf("session.manager.new: %w", ErrMissingIdentityClient)
	}
	if configuration.State == nil {
		return nil, fmt.Errorf("session.manager.new: %w", ErrMissingState)
	}
	manager := &Manager{
		store:         configuration.Store,
		client:        configuration.Client,
		state:         configuration.State,
		logger:        configuration.Logger,
		metrics:       configuration.Metrics,
		clock:         configuration.Clock,
		navigator:     configuration.Navigator,
		loginPath:     configuration.LoginPath,
		loginTimeout:  configuration.LoginTimeout,
		revokeTimeout: configuration.RevokeTimeout,
	}
	if manager.logger == nil {
		manager.logger = zap.NewNop()
	}
	if manager.metrics == nil {
		manager.metrics = NewCounterMetrics()
	}
	if manager.clock == nil {
		manager.clock = systemClock{}
	}
	if manager.navigator == nil {
		manager.navigator = noopNavigator{}
	}
	if strings.TrimSpace(manager.loginPath) == "" {
		manager.loginPath = DefaultLoginPath
	}
	if manager.loginTimeout <= 0 {
		manager.loginTimeout = DefaultLoginTimeout
	}
	if manager.revokeTimeout <= 0 {
		manager.revokeTimeout = DefaultRevokeTimeout
	}

	manager.hydrate(ctx)
	return manager, nil
}

// LoginPath returns the login entry point.
func (manager *Manager) LoginPath() string {
	return manager.loginPath
}

// Login submits credentials to the identity provider. On success both tokens
// are stored and the decoded identity is published; on failure nothing changes.
func (manager *Manager) Login(ctx context.Context, credentials Credentials) error {
	if validationErr := credentials.Validate(); validationErr != nil {
		manager.metrics.Increment(metricLoginFailure)
		return fmt.Errorf("session.login: %w", errors.Join(ErrInvalidCredentials, validationErr))
	}
	if !manager.loginInFlight.CompareAndSwap(false, true) {
		manager.metrics.Increment(metricLoginRejected)
		return fmt.Errorf("session.login: %w", ErrLoginInProgress)
	}
	defer manager.loginInFlight.Store(false)

	startEpoch := manager.currentEpoch()

	loginCtx, cancel := context.WithTimeout(ctx, manager.loginTimeout)
	defer cancel()
	pair, loginErr := manager.client.Login(loginCtx, credentials)
	if loginErr != nil {
		manager.metrics.Increment(metricLoginFailure)
		manager.logger.Warn("login rejected",
			zap.String("code", "session.login.rejected"),
			zap.String("email", credentials.Email),
			zap.Error(loginErr))
		return loginErr
	}

	claims, decodeErr := tokenclaims.Decode(pair.AccessToken)
	if decodeErr != nil {
		manager.metrics.Increment(metricLoginFailure)
		return &LoginFailure{Message: "Identity provider returned an unreadable access token", Err: decodeErr}
	}
	if !claims.ValidAt(manager.clock.Now()) {
		manager.metrics.Increment(metricLoginFailure)
		return &LoginFailure{Message: "Identity provider returned an expired access token"}
	}

	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if manager.epoch != startEpoch {
		manager.metrics.Increment(metricLoginFailure)
		return fmt.Errorf("session.login: %w", ErrLoginSuperseded)
	}
	if storeErr := manager.store.SetPair(context.WithoutCancel(ctx), pair); storeErr != nil {
		manager.metrics.Increment(metricLoginFailure)
		return fmt.Errorf("session.login.persist: %w", storeErr)
	}
	manager.state.publish(claims)
	manager.metrics.Increment(metricLoginSuccess)
	manager.logger.Info("login succeeded",
		zap.String("code", "session.login.success"),
		zap.String("subject", claims.Subject()),
		zap.Time("expires_at", claims.ExpiresAt()))
	return nil
}

// Logout revokes the refresh token on a best-effort basis and then clears the
// local session. The local clear runs exactly once whatever the revocation
// outcome, and the revocation wait is bounded by the revoke timeout.
func (manager *Manager) Logout(ctx context.Context) {
	defer manager.clearLocal(context.WithoutCancel(ctx), "logout", true)
	manager.metrics.Increment(metricLogout)

	refreshToken, readErr := manager.store.Get(ctx, SlotRefresh)
	if readErr != nil {
		manager.logger.Warn("refresh token unreadable, skipping revocation",
			zap.String("code", "session.logout.read_failed"),
			zap.Error(readErr))
		return
	}
	if refreshToken == "" {
		return
	}
	manager.revoke(ctx, refreshToken)
}

// IsAuthenticated reports whether the stored access token decodes and has not
// expired. It never fails: any error reads as not authenticated.
func (manager *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := manager.validAccessToken(ctx)
	return ok
}

// CurrentIdentity returns the last published identity without re-decoding.
func (manager *Manager) CurrentIdentity() tokenclaims.Claims {
	return manager.state.Identity()
}

// Subscribe streams identity changes; see State.Subscribe.
func (manager *Manager) Subscribe() (<-chan tokenclaims.Claims, func()) {
	return manager.state.Subscribe()
}

func (manager *Manager) validAccessToken(ctx context.Context) (string, bool) {
	accessToken, readErr := manager.store.Get(ctx, SlotAccess)
	if readErr != nil {
		manager.logger.Warn("access token unreadable",
			zap.String("code", "session.access_token.read_failed"),
			zap.Error(readErr))
		return "", false
	}
	if accessToken == "" {
		return "", false
	}
	claims, decodeErr := tokenclaims.Decode(accessToken)
	if decodeErr != nil {
		return "", false
	}
	return accessToken, claims.ValidAt(manager.clock.Now())
}

func (manager *Manager) hydrate(ctx context.Context) {
	accessToken, accessErr := manager.store.Get(ctx, SlotAccess)
	refreshToken, refreshErr := manager.store.Get(ctx, SlotRefresh)
	if accessErr != nil || refreshErr != nil {
		manager.logger.Error("token store unreadable during startup",
			zap.String("code", "session.hydrate.read_failed"),
			zap.Error(errors.Join(accessErr, refreshErr)))
		return
	}
	if accessToken == "" {
		if refreshToken != "" {
			manager.clearLocal(ctx, "hydrate.orphan_refresh", true)
		}
		return
	}
	claims, decodeErr := tokenclaims.Decode(accessToken)
	if decodeErr != nil || !claims.ValidAt(manager.clock.Now()) {
		manager.clearLocal(ctx, "hydrate.unusable_token", true)
		return
	}

	manager.mutex.Lock()
	manager.state.publish(claims)
	manager.mutex.Unlock()
	manager.metrics.Increment(metricHydrated)
	manager.logger.Info("session restored",
		zap.String("code", "session.hydrate.restored"),
		zap.String("subject", claims.Subject()))
}

// discardStale clears leftovers of a session that is no longer valid. The
// store is re-read under the mutex, so a login that completed after the
// caller's own check is kept and its access token returned with ok true.
func (manager *Manager) discardStale(ctx context.Context, reason string, redirect bool) (string, bool) {
	manager.mutex.Lock()
	accessToken, _ := manager.store.Get(ctx, SlotAccess)
	if accessToken != "" {
		if claims, decodeErr := tokenclaims.Decode(accessToken); decodeErr == nil && claims.ValidAt(manager.clock.Now()) {
			manager.mutex.Unlock()
			return accessToken, true
		}
	}
	refreshToken, _ := manager.store.Get(ctx, SlotRefresh)
	if accessToken == "" && refreshToken == "" && manager.state.Identity() == nil {
		manager.mutex.Unlock()
		return "", false
	}
	manager.clearLocked(ctx, reason)
	manager.mutex.Unlock()
	manager.afterClear(reason, redirect)
	return "", false
}

func (manager *Manager) revoke(ctx context.Context, refreshToken string) {
	revokeCtx, cancel := context.WithTimeout(ctx, manager.revokeTimeout)
	defer cancel()

	outcome := make(chan error, 1)
	go func() {
		outcome <- manager.client.Revoke(revokeCtx, refreshToken)
	}()

	var revokeErr error
	select {
	case revokeErr = <-outcome:
	case <-revokeCtx.Done():
		revokeErr = revokeCtx.Err()
	}
	if revokeErr != nil {
		manager.metrics.Increment(metricRevokeFailure)
		manager.logger.Warn("refresh token revocation failed",
			zap.String("code", "session.logout.revoke_failed"),
			zap.Error(revokeErr))
		return
	}
	manager.metrics.Increment(metricRevokeSuccess)
}

func (manager *Manager) clearLocal(ctx context.Context, reason string, redirect bool) {
	manager.mutex.Lock()
	manager.clearLocked(ctx, reason)
	manager.mutex.Unlock()
	manager.afterClear(reason, redirect)
}

// clearLocked requires manager.mutex.
func (manager *Manager) clearLocked(ctx context.Context, reason string) {
	manager.epoch++
	if clearErr := manager.store.ClearAll(ctx); clearErr != nil {
		manager.logger.Error("token store clear failed",
			zap.String("code", "session.clear.store_failed"),
			zap.String("reason", reason),
			zap.Error(clearErr))
	}
	manager.state.publish(nil)
}

func (manager *Manager) afterClear(reason string, redirect bool) {
	manager.metrics.Increment(metricLocalClear)
	manager.logger.Info("session cleared",
		zap.String("code", "session.clear"),
		zap.String("reason", reason))
	if redirect {
		manager.navigator.RedirectToLogin(manager.loginPath)
	}
}

func (manager *Manager) currentEpoch() uint64 {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return manager.epoch
}
