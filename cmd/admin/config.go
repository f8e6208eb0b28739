package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/petjo-admin/internal/devidp"
)

const (
	storeDriverGORM = "gorm"
	storeDriverPGX  = "pgx"

	configCodeMissingAPIBaseURL        = "config.missing_api_base_url"
	configCodeInvalidAPIBaseURL        = "config.invalid_api_base_url"
	configCodeMissingProfile           = "config.missing_profile"
	configCodeMissingStoreURL          = "config.missing_store_url"
	configCodeInvalidStoreDriver       = "config.invalid_store_driver"
	configCodeInvalidLoginTimeout      = "config.invalid_login_timeout"
	configCodeInvalidRevokeTimeout     = "config.invalid_revoke_timeout"
	configCodeUninitializedSessionConf = "config.uninitialized_session_config"
	configCodeMissingSigningKey        = "config.missing_devidp_signing_key"
	configCodeMissingAdminAccount      = "config.missing_devidp_admin_account"
	configCodeInvalidTokenTTL          = "config.invalid_devidp_ttl"
)

// SessionConfig selects the admin API and the durable profile used by every session command.
type SessionConfig struct {
	APIBaseURL    string
	TokenKey      string
	Profile       string
	StoreURL      string
	StoreDriver   string
	LoginTimeout  time.Duration
	RevokeTimeout time.Duration
}

// DevIDPConfig configures the development identity provider.
type DevIDPConfig struct {
	ListenAddr    string
	Provider      devidp.Config
	AdminEmail    string
	AdminPassword string
}

type contextKey string

const sessionConfigContextKey contextKey = "sessionConfig"

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func prepareSessionConfig(command *cobra.Command, arguments []string) error {
	sessionConfig, loadErr := LoadSessionConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, sessionConfigContextKey, sessionConfig))
	return nil
}

func sessionConfigFromCommand(command *cobra.Command) (SessionConfig, error) {
	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(sessionConfigContextKey)
	}
	sessionConfig, ok := contextValue.(SessionConfig)
	if !ok {
		return SessionConfig{}, configError(configCodeUninitializedSessionConf, "session configuration not prepared; PreRunE must execute before RunE")
	}
	return sessionConfig, nil
}

// LoadSessionConfig reads and validates the session settings from viper.
func LoadSessionConfig() (SessionConfig, error) {
	apiBaseURL := strings.TrimRight(strings.TrimSpace(viper.GetString("api_base_url")), "/")
	if apiBaseURL == "" {
		return SessionConfig{}, configError(configCodeMissingAPIBaseURL, "api_base_url must be provided")
	}
	parsedBaseURL, parseErr := url.Parse(apiBaseURL)
	if parseErr != nil || parsedBaseURL.Scheme == "" || parsedBaseURL.Host == "" {
		return SessionConfig{}, configError(configCodeInvalidAPIBaseURL, "api_base_url must be an absolute http(s) URL")
	}

	profile := strings.TrimSpace(viper.GetString("profile"))
	if profile == "" {
		return SessionConfig{}, configError(configCodeMissingProfile, "profile must be provided")
	}

	storeURL := strings.TrimSpace(viper.GetString("store_url"))
	if storeURL == "" {
		return SessionConfig{}, configError(configCodeMissingStoreURL, "store_url must be provided")
	}

	storeDriver := strings.ToLower(strings.TrimSpace(viper.GetString("store_driver")))
	if storeDriver == "" {
		storeDriver = storeDriverGORM
	}
	if storeDriver != storeDriverGORM && storeDriver != storeDriverPGX {
		return SessionConfig{}, configError(configCodeInvalidStoreDriver, "store_driver must be gorm or pgx")
	}

	loginTimeout := viper.GetDuration("login_timeout")
	if loginTimeout <= 0 {
		return SessionConfig{}, configError(configCodeInvalidLoginTimeout, "login_timeout must be greater than zero")
	}
	revokeTimeout := viper.GetDuration("revoke_timeout")
	if revokeTimeout <= 0 {
		return SessionConfig{}, configError(configCodeInvalidRevokeTimeout, "revoke_timeout must be greater than zero")
	}

	return SessionConfig{
		APIBaseURL:    apiBaseURL,
		TokenKey:      viper.GetString("token_key"),
		Profile:       profile,
		StoreURL:      storeURL,
		StoreDriver:   storeDriver,
		LoginTimeout:  loginTimeout,
		RevokeTimeout: revokeTimeout,
	}, nil
}

// LoadDevIDPConfig reads and validates the development identity provider settings.
func LoadDevIDPConfig() (DevIDPConfig, error) {
	signingKey := viper.GetString("devidp_signing_key")
	if signingKey == "" {
		return DevIDPConfig{}, configError(configCodeMissingSigningKey, "devidp_signing_key must be provided")
	}
	adminEmail := strings.TrimSpace(viper.GetString("devidp_admin_email"))
	adminPassword := viper.GetString("devidp_admin_password")
	if adminEmail == "" || adminPassword == "" {
		return DevIDPConfig{}, configError(configCodeMissingAdminAccount, "devidp_admin_email and devidp_admin_password must be provided")
	}
	accessTTL := viper.GetDuration("devidp_access_ttl")
	refreshTTL := viper.GetDuration("devidp_refresh_ttl")
	if accessTTL <= 0 || refreshTTL <= 0 {
		return DevIDPConfig{}, configError(configCodeInvalidTokenTTL, "devidp_access_ttl and devidp_refresh_ttl must be greater than zero")
	}
	return DevIDPConfig{
		ListenAddr: viper.GetString("devidp_listen_addr"),
		Provider: devidp.Config{
			SigningKey: []byte(signingKey),
			Issuer:     viper.GetString("devidp_issuer"),
			AccessTTL:  accessTTL,
			RefreshTTL: refreshTTL,
		},
		AdminEmail:    adminEmail,
		AdminPassword: adminPassword,
	}, nil
}

func defaultStoreURL() string {
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		return "sqlite://petjo-admin-sessions.db"
	}
	return "sqlite://" + filepath.ToSlash(filepath.Join(configDir, "petjo-admin", "sessions.db"))
}
