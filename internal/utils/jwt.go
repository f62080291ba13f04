package utils

import (
	"errors"
	"time"

	"amafaranga/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer          = "amafaranga-api"
	refreshTokenTTL = 7 * 24 * time.Hour
)

// GenerateTokens signs an access token valid for accessTTL and a refresh
// token valid for seven days.
func GenerateTokens(claims *models.AccountClaims, secret string, accessTTL time.Duration) (accessToken string, refreshToken string, err error) {
	if secret == "" {
		return "", "", errors.New("JWT secret not configured")
	}

	now := time.Now()

	accessClaims := models.AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   claims.AccountID,
		},
		AccountID:   claims.AccountID,
		CardNumber:  claims.CardNumber,
		Role:        claims.Role,
		Permissions: claims.Permissions,
		TokenType:   models.TokenAccess,
	}
	accessToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	refreshClaims := models.AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   claims.AccountID,
		},
		AccountID: claims.AccountID,
		Role:      claims.Role,
		TokenType: models.TokenRefresh,
	}
	refreshToken, err = jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(secret))
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ParseToken parses and validates a JWT token string.
func ParseToken(tokenStr, secret string) (*jwt.Token, *models.AccountClaims, error) {
	if secret == "" {
		return nil, nil, errors.New("JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &models.AccountClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, nil, err
	}

	claims, ok := token.Claims.(*models.AccountClaims)
	if !ok || !token.Valid {
		return nil, nil, errors.New("invalid token claims")
	}

	return token, claims, nil
}
