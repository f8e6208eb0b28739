package devidp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tyemirov/petjo-admin/internal/adminapi"
	"go.uber.org/zap"
)

// AdminRole is required to read /admin endpoints.
const AdminRole = "admin"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// MountRoutes registers POST /auth/login, POST /auth/logout and GET /admin/stats.
func MountRoutes(router gin.IRouter, configuration Config, accounts *AccountStore, refreshTokens RefreshTokenStore, logger *zap.Logger) error {
	normalized, configErr := configuration.Normalize()
	if configErr != nil {
		return configErr
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	router.POST("/auth/login", func(contextGin *gin.Context) {
		var inbound loginRequest
		if err := contextGin.ShouldBindJSON(&inbound); err != nil || strings.TrimSpace(inbound.Email) == "" {
			contextGin.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"success": false, "detail": "Email and password are required"})
			return
		}

		account, authErr := accounts.Authenticate(contextGin, inbound.Email, inbound.Password)
		switch {
		case errors.Is(authErr, ErrAccountInactive):
			logger.Info("login refused", zap.String("code", "devidp.login.inactive"), zap.String("email", inbound.Email))
			contextGin.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Account is inactive"})
			return
		case authErr != nil:
			logger.Info("login refused", zap.String("code", "devidp.login.invalid_credentials"), zap.String("email", inbound.Email))
			contextGin.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "detail": "Incorrect email or password"})
			return
		}

		accessToken, _, mintErr := MintAccessToken(account, normalized)
		if mintErr != nil {
			logger.Error("access token mint failed", zap.String("code", "devidp.login.mint_failed"), zap.Error(mintErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		_, refreshOpaque, issueErr := refreshTokens.Issue(contextGin, account.UserID, normalized.Now().Add(normalized.RefreshTTL))
		if issueErr != nil || strings.TrimSpace(refreshOpaque) == "" {
			logger.Error("refresh token issue failed", zap.String("code", "devidp.login.issue_failed"), zap.Error(issueErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		logger.Info("login accepted", zap.String("code", "devidp.login.success"), zap.String("user_id", account.UserID))
		contextGin.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Login successful",
			"data": gin.H{
				"access_token":  accessToken,
				"refresh_token": refreshOpaque,
				"token_type":    "bearer",
			},
		})
	})

	router.POST("/auth/logout", func(contextGin *gin.Context) {
		var inbound logoutRequest
		if err := contextGin.ShouldBindJSON(&inbound); err == nil && strings.TrimSpace(inbound.RefreshToken) != "" {
			_, tokenID, validateErr := refreshTokens.Validate(contextGin, inbound.RefreshToken)
			if validateErr == nil && tokenID != "" {
				_ = refreshTokens.Revoke(contextGin, tokenID)
				logger.Info("refresh token revoked", zap.String("code", "devidp.logout.revoked"), zap.String("token_id", tokenID))
			}
		}
		contextGin.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out"})
	})

	router.GET("/admin/stats", RequireBearer(normalized, AdminRole), func(contextGin *gin.Context) {
		total, active, inactive := accounts.Counts()
		stats := adminapi.SystemStats{}
		stats.Users.Total = total
		stats.Users.Active = active
		stats.Users.Inactive = inactive
		contextGin.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
	})

	return nil
}
