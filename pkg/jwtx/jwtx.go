// Package jwtx signs and verifies the engine's symmetric (HS256) JWTs.
//
// Two token kinds exist, distinguished by a "type" claim: short-lived access
// tokens carrying identity fields, and long-lived refresh tokens carrying
// only the subject. Verification always pins the algorithm, issuer and
// audience, and enforces the expected token type so the two kinds are never
// interchangeable.
package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes the two token kinds minted by the engine.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Default token TTLs. Short-lived access tokens limit the blast radius of a
// leak; the refresh token trades that off for user convenience.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// MinSecretLen is the minimum HMAC secret length accepted by NewSigner.
const MinSecretLen = 32

var (
	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrInvalidSignature = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrNotYetValid      = errors.New("jwtx: token not yet valid")
	ErrIssuer           = errors.New("jwtx: issuer mismatch")
	ErrAudience         = errors.New("jwtx: audience mismatch")
	ErrWrongType        = errors.New("jwtx: wrong token type")
)

// Claims are the token claims used across the engine. Access tokens fill
// every field; refresh tokens carry only the registered claims and type.
type Claims struct {
	jwt.RegisteredClaims

	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`

	// TokenType is "access" or "refresh". Checked on every verification.
	TokenType TokenType `json:"type"`
}

// Signer signs and verifies HS256 tokens with a fixed issuer and audience.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	leeway   time.Duration
}

// NewSigner builds a Signer. The secret must carry at least MinSecretLen
// bytes; anything shorter makes HS256 brute-forceable.
func NewSigner(secret []byte, issuer, audience string) (*Signer, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("jwtx: signing secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}
	if issuer == "" || audience == "" {
		return nil, errors.New("jwtx: issuer and audience are required")
	}
	return &Signer{
		secret:   secret,
		issuer:   issuer,
		audience: audience,
		leeway:   30 * time.Second,
	}, nil
}

// NewAccessClaims builds claims for an access token.
func (s *Signer) NewAccessClaims(subject, email, username, role string, ttl time.Duration, now time.Time) Claims {
	c := s.newBaseClaims(subject, ttl, now)
	c.Email = email
	c.Username = username
	c.Role = role
	c.TokenType = TypeAccess
	return c
}

// NewRefreshClaims builds claims for a refresh token. Only the subject is
// carried; identity fields are re-read from the directory on refresh.
func (s *Signer) NewRefreshClaims(subject string, ttl time.Duration, now time.Time) Claims {
	c := s.newBaseClaims(subject, ttl, now)
	c.TokenType = TypeRefresh
	return c
}

func (s *Signer) newBaseClaims(subject string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
	}
}

// Sign produces a compact HS256 JWS for the given claims.
func (s *Signer) Sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, audience, expiry and token type, and
// returns the claims on success. Each failure mode maps to a distinct
// sentinel so callers can decide between "refresh" and "re-login".
func (s *Signer) Verify(raw string, want TokenType) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if claims.TokenType != want {
		return Claims{}, ErrWrongType
	}

	return claims, nil
}

// DecodeUnverified parses a token WITHOUT checking its signature or claims.
// It exists solely so callers can display token contents; the result must
// never feed an authorization decision.
func DecodeUnverified(raw string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	default:
		return ErrMalformed
	}
}
