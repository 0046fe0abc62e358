// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "movienight"

// DefaultTokenTTL matches the lifetime of the voter cookie.
const DefaultTokenTTL = 365 * 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid voter token")
	ErrExpiredToken = errors.New("voter token expired")
)

// VoterClaims identifies one voter in one session.
type VoterClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// VoterID returns the subject of the token.
func (c *VoterClaims) VoterID() string {
	return c.Subject
}

// TokenIssuer signs and verifies voter identity tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL is how long issued tokens stay valid.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue signs a token binding voterID to sessionID.
func (t *TokenIssuer) Issue(voterID, sessionID string) (string, error) {
	now := t.now()
	claims := &VoterClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   voterID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign voter token: %w", err)
	}
	return token, nil
}

// Parse verifies signature, algorithm, issuer and expiry.
func (t *TokenIssuer) Parse(token string) (*VoterClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &VoterClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
