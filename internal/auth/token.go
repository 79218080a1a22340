// Package auth is the authentication collaborator: it issues and verifies
// JWTs and hands downstream handlers a verified Actor (identity plus role).
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dinehall/orderdesk/internal/apperr"
	"github.com/dinehall/orderdesk/pkg/models"
)

type SignedDetails struct {
	UserID string      `json:"uid"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens with an injected secret; no
// package-level key state.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  24 * time.Hour,
		refreshTTL: 168 * time.Hour,
	}
}

// Generate returns an access token and a refresh token for the user.
func (tm *TokenManager) Generate(user *models.User) (string, string, error) {
	claims := &SignedDetails{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.accessTTL)),
		},
	}

	refreshClaims := &SignedDetails{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.refreshTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(tm.secret)
	if err != nil {
		return "", "", err
	}

	return token, refreshToken, nil
}

// Validate parses a signed token and returns its claims.
func (tm *TokenManager) Validate(signedToken string) (*SignedDetails, error) {
	token, err := jwt.ParseWithClaims(
		signedToken,
		&SignedDetails{},
		func(token *jwt.Token) (interface{}, error) {
			return tm.secret, nil
		},
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid token", err)
	}

	claims, ok := token.Claims.(*SignedDetails)
	if !ok || !token.Valid {
		return nil, apperr.New(apperr.Unauthenticated, "invalid token")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, apperr.New(apperr.Unauthenticated, "token is expired")
	}

	return claims, nil
}
