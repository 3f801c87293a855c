package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenConfig holds the process-wide signing configuration for the codec.
// It is constructed explicitly and passed in, never read from a global, so
// tests can inject ephemeral secrets. Rotating the secret invalidates every
// previously issued token; there is no dual-key grace period.
type TokenConfig struct {
	Secret    string
	Algorithm string // HS256, HS384, or HS512
	Expiry    time.Duration
}

// TokenCodec issues and verifies signed, expiring bearer tokens.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	expiry time.Duration
}

// NewTokenCodec creates a codec from the given configuration. Only HMAC
// algorithms are accepted.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", cfg.Algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q: only HMAC algorithms are allowed", cfg.Algorithm)
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("signing secret must not be empty")
	}
	if cfg.Expiry <= 0 {
		return nil, fmt.Errorf("token expiry must be positive, got %s", cfg.Expiry)
	}

	return &TokenCodec{
		secret: []byte(cfg.Secret),
		method: method,
		expiry: cfg.Expiry,
	}, nil
}

// Issue creates a signed token with the given subject (the username) and an
// absolute expiry of now + the configured validity window.
func (c *TokenCodec) Issue(subject string) (string, error) {
	now := time.Now().UTC()
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.expiry)),
		Issuer:    "identity-service",
	}

	token := jwt.NewWithClaims(c.method, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a token, returning its subject. Any single
// failure (unparseable structure, signature mismatch, wrong algorithm, or
// expiry at or before now) invalidates the whole token.
func (c *TokenCodec) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if token.Method.Alg() != c.method.Alg() {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return c.secret, nil
		},
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}
