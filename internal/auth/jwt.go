// Package auth provides operator authentication for udnm: JWT issuing and
// validation for the management API, and bcrypt password hashing.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/robcowart/udnm/internal/config"
	"github.com/robcowart/udnm/internal/database/models"
)

var (
	// ErrInvalidToken is returned for any token that fails validation
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoSecret is returned when signing before a secret is configured
	ErrNoSecret = errors.New("jwt secret not configured")
)

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates operator tokens with a shared HMAC secret.
// The secret can be replaced at runtime, which happens once during first-run
// setup when no secret was configured.
type TokenIssuer struct {
	mu         sync.RWMutex
	secret     []byte
	issuer     string
	expiration time.Duration
}

// NewTokenIssuer creates a TokenIssuer. The secret comes from the database
// when cfg.Secret is empty, so it is passed separately.
func NewTokenIssuer(secret string, cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		issuer:     cfg.Issuer,
		expiration: cfg.Expiration,
	}
}

// SetSecret replaces the signing secret
func (ti *TokenIssuer) SetSecret(secret string) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.secret = []byte(secret)
}

// HasSecret reports whether a signing secret is configured
func (ti *TokenIssuer) HasSecret() bool {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return len(ti.secret) > 0
}

func (ti *TokenIssuer) key() []byte {
	ti.mu.RLock()
	defer ti.mu.RUnlock()
	return ti.secret
}

// Expiration returns how long issued tokens stay valid
func (ti *TokenIssuer) Expiration() time.Duration {
	return ti.expiration
}

// Issue generates a signed token for an operator
func (ti *TokenIssuer) Issue(user *models.User) (string, error) {
	key := ti.key()
	if len(key) == 0 {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    ti.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims. Tokens from another
// issuer are rejected.
func (ti *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	key := ti.key()
	if len(key) == 0 {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ti.issuer != "" {
		opts = append(opts, jwt.WithIssuer(ti.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return key, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
