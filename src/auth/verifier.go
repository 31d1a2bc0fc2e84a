// Package auth implements the bearer-token verification contract used at
// connect time. Tokens are JWTs; both HMAC and RSA signatures are
// supported. Expiry is checked once here, never re-checked for a live
// connection.
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pulsegrid/realtime/src/types"
)

// ErrUnauthorized covers every verification failure: missing, expired, or
// malformed tokens, bad signatures, and tokens without a subject.
var ErrUnauthorized = errors.New("auth: unauthorized")

// SessionClaims is the JWT payload issued for realtime sessions.
type SessionClaims struct {
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates session tokens against a single key.
type JWTVerifier struct {
	key     any
	methods []string
}

var _ types.TokenVerifier = (*JWTVerifier)(nil)

// NewHMACVerifier verifies HS256-signed tokens with the given secret.
func NewHMACVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{key: secret, methods: []string{"HS256"}}
}

// NewRSAVerifier verifies RS256-signed tokens with the given public key.
func NewRSAVerifier(pub *rsa.PublicKey) *JWTVerifier {
	return &JWTVerifier{key: pub, methods: []string{"RS256"}}
}

// LoadPublicKey reads an RSA public key from a PEM file.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(b)
}

// Verify parses and validates the token, returning its claims. Any
// failure is reported as ErrUnauthorized with the parse error wrapped in.
func (v *JWTVerifier) Verify(token string) (types.Claims, error) {
	if token == "" {
		return types.Claims{}, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return v.key, nil },
		jwt.WithValidMethods(v.methods),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return types.Claims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return types.Claims{}, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}

	out := types.Claims{
		UserID:      claims.Subject,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	return out, nil
}

// GenerateToken signs an HS256 session token. Used by operators and in
// tests; production issuance normally lives with the identity service.
func GenerateToken(secret []byte, userID string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
