package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestVerify(t *testing.T) {
	verifier, err := NewJWTVerifier("shared-secret")
	if err != nil {
		t.Fatalf("NewJWTVerifier() error = %v", err)
	}

	valid := jwt.MapClaims{
		"sub":   "user-1",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name    string
		token   string
		wantErr bool
		wantID  string
	}{
		{
			name:   "valid token",
			token:  mintToken(t, "shared-secret", valid),
			wantID: "user-1",
		},
		{
			name:    "wrong key",
			token:   mintToken(t, "other-secret", valid),
			wantErr: true,
		},
		{
			name: "expired",
			token: mintToken(t, "shared-secret", jwt.MapClaims{
				"sub": "user-1",
				"exp": time.Now().Add(-time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name: "missing subject",
			token: mintToken(t, "shared-secret", jwt.MapClaims{
				"email": "user@example.com",
				"exp":   time.Now().Add(time.Hour).Unix(),
			}),
			wantErr: true,
		},
		{
			name:    "garbage",
			token:   "not.a.token",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := verifier.Verify(context.Background(), tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("Verify() error = %v, want ErrInvalidToken", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if id.ID != tt.wantID {
				t.Fatalf("Verify() id = %q, want %q", id.ID, tt.wantID)
			}
			if id.Email != "user@example.com" {
				t.Fatalf("Verify() email = %q", id.Email)
			}
		})
	}
}

func TestNewJWTVerifierRequiresKey(t *testing.T) {
	if _, err := NewJWTVerifier(""); err == nil {
		t.Fatal("an empty signing key must be rejected")
	}
}
