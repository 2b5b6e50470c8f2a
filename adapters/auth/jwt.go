// Package auth authenticates operators of the admin API and answers the
// lifecycle engine's authorization question from the request context.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/revmura/revmura-suite/ports"
)

// Issuer is the iss claim of every admin session token.
const Issuer = "revmura"

// ErrInvalidToken is returned for a token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the JWT claims of an admin session.
type Claims struct {
	Actor string `json:"act"`
	Role  Role   `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless admin session tokens.
// Safe for concurrent use.
type TokenService struct {
	secret     []byte
	expiration time.Duration
	ids        ports.IDGenerator
	clock      ports.Clock
}

// NewTokenService creates a token service. An empty secret is replaced by a
// random one, which invalidates sessions on restart.
func NewTokenService(secret string, expiration time.Duration, ids ports.IDGenerator, clock ports.Clock) *TokenService {
	var secretBytes []byte
	if secret == "" {
		secretBytes = make([]byte, 32)
		rand.Read(secretBytes)
	} else {
		secretBytes = []byte(secret)
	}

	if expiration == 0 {
		expiration = 12 * time.Hour
	}

	return &TokenService{
		secret:     secretBytes,
		expiration: expiration,
		ids:        ids,
		clock:      clock,
	}
}

// Issue creates a session token for actor.
func (s *TokenService) Issue(actor string, role Role) (string, time.Time, error) {
	now := s.clock.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		Actor: actor,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ids.New(),
			Issuer:    Issuer,
			Subject:   actor,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify validates a session token and returns its claims.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(Issuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSecret generates a random secret suitable for token signing.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}
