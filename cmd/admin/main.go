package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/petjo-admin/internal/devidp"
	"github.com/tyemirov/petjo-admin/internal/session"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "petjo-admin",
		Short:        "Administrative console and CLI for the PetJo platform",
		SilenceUsage: true,
	}

	persistent := rootCmd.PersistentFlags()
	persistent.String("api_base_url", "", "Base URL of the PetJo API (identity provider and admin endpoints)")
	persistent.String("token_key", session.DefaultTokenKey, "Storage key of the access token; the refresh token uses <key>_refresh")
	persistent.String("profile", "default", "Session profile; each profile holds its own token pair")
	persistent.String("store_url", defaultStoreURL(), "Token store URL (sqlite://, postgres://, redis://, memory://)")
	persistent.String("store_driver", storeDriverGORM, "Driver for postgres:// store URLs (gorm or pgx)")
	persistent.Duration("login_timeout", session.DefaultLoginTimeout, "Upper bound on a login exchange")
	persistent.Duration("revoke_timeout", session.DefaultRevokeTimeout, "Upper bound on remote refresh token revocation during logout")
	persistent.String("log_level", "info", "Log level (debug, info, warn, error)")

	for _, key := range []string{"api_base_url", "token_key", "profile", "store_url", "store_driver", "login_timeout", "revoke_timeout", "log_level"} {
		_ = viper.BindPFlag(key, persistent.Lookup(key))
	}

	rootCmd.AddCommand(
		newLoginCommand(),
		newLogoutCommand(),
		newWhoAmICommand(),
		newStatusCommand(),
		newServeCommand(),
		newDevIDPCommand(),
	)

	viper.SetEnvPrefix("ADMIN")
	viper.AutomaticEnv()

	return rootCmd
}

func newLoginCommand() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:     "login",
		Short:   "Sign in and store the token pair in the selected profile",
		PreRunE: prepareSessionConfig,
		RunE:    runLogin,
	}
	loginCmd.Flags().String("email", "", "Account email")
	loginCmd.Flags().String("password", "", "Account password; read from stdin when empty")
	_ = viper.BindPFlag("email", loginCmd.Flags().Lookup("email"))
	_ = viper.BindPFlag("password", loginCmd.Flags().Lookup("password"))
	return loginCmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Revoke the refresh token and clear the selected profile",
		PreRunE: prepareSessionConfig,
		RunE:    runLogout,
	}
}

func newWhoAmICommand() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		Short:   "Print the identity carried by the stored access token",
		PreRunE: prepareSessionConfig,
		RunE:    runWhoAmI,
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Report whether the selected profile holds a usable session; exits non-zero when signed out",
		PreRunE: prepareSessionConfig,
		RunE:    runStatus,
	}
}

func newServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the web console with its guarded route tree",
		PreRunE: prepareSessionConfig,
		RunE:    runServe,
	}
	serveCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	serveCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	serveCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	_ = viper.BindPFlag("listen_addr", serveCmd.Flags().Lookup("listen_addr"))
	_ = viper.BindPFlag("enable_cors", serveCmd.Flags().Lookup("enable_cors"))
	_ = viper.BindPFlag("cors_allowed_origins", serveCmd.Flags().Lookup("cors_allowed_origins"))
	return serveCmd
}

func newDevIDPCommand() *cobra.Command {
	devIDPCmd := &cobra.Command{
		Use:   "devidp",
		Short: "Run a local identity provider and admin stats endpoint for development",
		RunE:  runDevIDP,
	}
	devIDPCmd.Flags().String("devidp_listen_addr", ":8081", "HTTP listen address of the development provider")
	devIDPCmd.Flags().String("devidp_signing_key", "", "HS256 signing secret for minted access tokens")
	devIDPCmd.Flags().String("devidp_issuer", devidp.DefaultIssuer, "Issuer stamped into minted access tokens")
	devIDPCmd.Flags().Duration("devidp_access_ttl", devidp.DefaultAccessTTL, "Access token TTL")
	devIDPCmd.Flags().Duration("devidp_refresh_ttl", devidp.DefaultRefreshTTL, "Refresh token TTL")
	devIDPCmd.Flags().String("devidp_admin_email", "", "Email of the seeded admin account")
	devIDPCmd.Flags().String("devidp_admin_password", "", "Password of the seeded admin account")
	for _, key := range []string{"devidp_listen_addr", "devidp_signing_key", "devidp_issuer", "devidp_access_ttl", "devidp_refresh_ttl", "devidp_admin_email", "devidp_admin_password"} {
		_ = viper.BindPFlag(key, devIDPCmd.Flags().Lookup(key))
	}
	return devIDPCmd
}

var buildLogger = func(level string) (*zap.Logger, error) {
	loggerConfig := zap.NewProductionConfig()
	parsedLevel, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, configError("config.invalid_log_level", err.Error())
	}
	loggerConfig.Level = zap.NewAtomicLevelAt(parsedLevel)
	return loggerConfig.Build()
}
