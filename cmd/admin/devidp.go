package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tyemirov/petjo-admin/internal/devidp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const devIDPAdminDisplayName = "Development Admin"

var devIDPBcryptCost = bcrypt.DefaultCost

func runDevIDP(command *cobra.Command, arguments []string) error {
	configuration, err := LoadDevIDPConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(viper.GetString("log_level"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	accounts := devidp.NewAccountStore(devIDPBcryptCost)
	if _, addErr := accounts.Add(configuration.AdminEmail, configuration.AdminPassword, devIDPAdminDisplayName, []string{devidp.AdminRole}); addErr != nil {
		return addErr
	}
	refreshTokens := devidp.NewMemoryRefreshTokenStore(configuration.Provider.Now)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))
	if mountErr := devidp.MountRoutes(router, configuration.Provider, accounts, refreshTokens, logger); mountErr != nil {
		return mountErr
	}

	server := &http.Server{
		Addr:              configuration.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Warn("development identity provider running; do not expose it publicly",
		zap.String("issuer", configuration.Provider.Issuer),
		zap.String("admin_email", configuration.AdminEmail),
	)
	return listenUntilSignal(server, logger)
}
