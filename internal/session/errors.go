package session

import (
	"errors"
	"fmt"
)

// DefaultLoginFailureMessage is shown when the identity provider rejects a login without a message.
const DefaultLoginFailureMessage = "Invalid email or password"

var (
	// ErrMissingStore indicates that no TokenStore was configured.
	ErrMissingStore = errors.New("session.manager.missing_store")
	// ErrMissingIdentityClient indicates that no IdentityClient was configured.
	ErrMissingIdentityClient = errors.New("session.manager.missing_identity_client")
	// ErrMissingState indicates that no State was configured.
	ErrMissingState = errors.New("session.manager.missing_state")

	// ErrLoginInProgress is returned when Login is called while another login is in flight.
	ErrLoginInProgress = errors.New("session.login.in_progress")
	// ErrLoginSuperseded is returned when a logout completed while the login call was in flight.
	ErrLoginSuperseded = errors.New("session.login.superseded")
	// ErrInvalidCredentials wraps local validation failures; no remote call is made.
	ErrInvalidCredentials = errors.New("session.login.invalid_credentials")
	// ErrLoginFailed matches every *LoginFailure.
	ErrLoginFailed = errors.New("session.login.failed")

	// ErrRevocationFailed indicates the identity provider did not accept a logout call.
	ErrRevocationFailed = errors.New("session.revoke.failed")
	// ErrNotAuthenticated indicates there is no usable access token.
	ErrNotAuthenticated = errors.New("session.not_authenticated")
	// ErrUnknownSlot indicates a slot outside the access/refresh pair.
	ErrUnknownSlot = errors.New("session.token_store.unknown_slot")
)

// LoginFailure carries the reason a login was rejected, ready for display.
type LoginFailure struct {
	StatusCode int
	Message    string
	Err        error
}

func (failure *LoginFailure) Error() string {
	if failure.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrLoginFailed.Error(), failure.Message, failure.Err)
	}
	return fmt.Sprintf("%s: %s", ErrLoginFailed.Error(), failure.Message)
}

// Unwrap exposes the underlying transport or decode error, if any.
func (failure *LoginFailure) Unwrap() error {
	return failure.Err
}

// Is makes errors.Is(err, ErrLoginFailed) true for every LoginFailure.
func (failure *LoginFailure) Is(target error) bool {
	return target == ErrLoginFailed
}
