package session

import (
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultLoginPath is the login entry point used for redirects.
	DefaultLoginPath = "/login"
	// DefaultLoginTimeout bounds the remote login call.
	DefaultLoginTimeout = 15 * time.Second
	// DefaultRevokeTimeout bounds the best-effort revocation made on logout.
	DefaultRevokeTimeout = 5 * time.Second
)

// Config wires a Manager to its collaborators.
type Config struct {
	Store     TokenStore
	Client    IdentityClient
	State     *State
	Logger    *zap.Logger
	Metrics   MetricsRecorder
	Clock     Clock
	Navigator Navigator

	LoginPath     string
	LoginTimeout  time.Duration
	RevokeTimeout time.Duration
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC timestamp.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystemClock returns a Clock backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

// Navigator sends the user back to the login entry point after the session is cleared.
type Navigator interface {
	RedirectToLogin(loginPath string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(loginPath string)

// RedirectToLogin calls the wrapped function.
func (navigate NavigatorFunc) RedirectToLogin(loginPath string) {
	navigate(loginPath)
}

type noopNavigator struct{}

func (noopNavigator) RedirectToLogin(string) {}
