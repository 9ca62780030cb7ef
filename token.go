package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	statusSubject  = "status"
	statusTokenTTL = 30 * 24 * time.Hour
)

var errNoToken = errors.New("missing bearer token")

// MintStatusToken signs an operator token for the /status endpoint.
func MintStatusToken(secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("status.secret is not set")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   statusSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyStatusToken checks an operator token minted with secret.
func VerifyStatusToken(secret, tokenStr string) error {
	_, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(statusSubject),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("invalid status token: %w", err)
	}
	return nil
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errNoToken
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}
