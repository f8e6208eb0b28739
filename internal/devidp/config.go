package devidp

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultIssuer is stamped into every access token minted by the dev provider.
	DefaultIssuer = "petjo-admin-devidp"
	// DefaultAccessTTL is the lifetime of minted access tokens.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL is the lifetime of issued refresh tokens.
	DefaultRefreshTTL = 24 * time.Hour
)

var (
	// ErrMissingSigningKey indicates that no HS256 key was configured.
	ErrMissingSigningKey = errors.New("devidp.config.missing_signing_key")
	// ErrNonPositiveTTL indicates a zero or negative token lifetime.
	ErrNonPositiveTTL = errors.New("devidp.config.non_positive_ttl")
)

// Config configures token minting for the development identity provider.
type Config struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// Normalize applies defaults and validates the configuration.
func (configuration Config) Normalize() (Config, error) {
	if len(configuration.SigningKey) == 0 {
		return Config{}, ErrMissingSigningKey
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		configuration.Issuer = DefaultIssuer
	}
	if configuration.AccessTTL == 0 {
		configuration.AccessTTL = DefaultAccessTTL
	}
	if configuration.RefreshTTL == 0 {
		configuration.RefreshTTL = DefaultRefreshTTL
	}
	if configuration.AccessTTL < 0 || configuration.RefreshTTL < 0 {
		return Config{}, ErrNonPositiveTTL
	}
	if configuration.Now == nil {
		configuration.Now = func() time.Time { return time.Now().UTC() }
	}
	return configuration, nil
}
