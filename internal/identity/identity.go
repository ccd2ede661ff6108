package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification. The
// reason is not surfaced to callers.
var ErrInvalidToken = errors.New("invalid token")

// Identity is a verified caller.
type Identity struct {
	ID    string
	Email string
}

// Verifier turns a bearer token into a verified identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// JWTVerifier validates HS256 tokens minted by the identity provider.
type JWTVerifier struct {
	key []byte
}

// NewJWTVerifier builds a verifier over the shared signing key.
func NewJWTVerifier(key string) (*JWTVerifier, error) {
	if key == "" {
		return nil, errors.New("identity: signing key is required")
	}
	return &JWTVerifier{key: []byte(key)}, nil
}

// Verify implements Verifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.key, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{ID: sub, Email: email}, nil
}
