package devidp

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidAccessToken indicates a bearer token that failed verification.
var ErrInvalidAccessToken = errors.New("devidp.tokens.invalid_access_token")

// AccessClaims are embedded in minted access tokens.
type AccessClaims struct {
	UserEmail       string   `json:"user_email"`
	UserDisplayName string   `json:"user_display_name"`
	UserRoles       []string `json:"user_roles"`
	jwt.RegisteredClaims
}

// MintAccessToken creates a signed HS256 access token whose subject is the account's user id.
func MintAccessToken(account Account, configuration Config) (string, time.Time, error) {
	issuedAt := configuration.Now().UTC()
	expiresAt := issuedAt.Add(configuration.AccessTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		UserEmail:       account.Email,
		UserDisplayName: account.DisplayName,
		UserRoles:       account.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    configuration.Issuer,
			Subject:   account.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(configuration.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("devidp.tokens.sign: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies signature, issuer and expiry of a minted token.
func ParseAccessToken(rawToken string, configuration Config) (*AccessClaims, error) {
	parsedToken, parseErr := jwt.ParseWithClaims(rawToken, &AccessClaims{}, func(parsed *jwt.Token) (interface{}, error) {
		return configuration.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(configuration.Issuer),
		jwt.WithTimeFunc(configuration.Now),
	)
	if parseErr != nil || parsedToken == nil || !parsedToken.Valid {
		return nil, errors.Join(ErrInvalidAccessToken, parseErr)
	}
	claims, ok := parsedToken.Claims.(*AccessClaims)
	if !ok {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}
