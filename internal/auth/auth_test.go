package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"taskwell/internal/apperrors"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("Abcd1234!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "Abcd1234!" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if err := h.Verify(hash, "Abcd1234!"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := h.Verify(hash, "abcd1234!"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := h.Verify("not-a-hash", "Abcd1234!"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch for malformed hash, got %v", err)
	}
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	issuer, err := NewTokenIssuer([]byte("secret"), func() time.Time { return now })
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	subject, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", subject)
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	if got := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time); got != SessionTTL {
		t.Fatalf("expected %v lifetime, got %v", SessionTTL, got)
	}
}

func TestTokenIssuerRejects(t *testing.T) {
	issued := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	issuer, _ := NewTokenIssuer([]byte("secret"), func() time.Time { return issued })
	token, err := issuer.Issue("user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	later, _ := NewTokenIssuer([]byte("secret"), func() time.Time { return issued.Add(SessionTTL + time.Second) })
	other, _ := NewTokenIssuer([]byte("other-secret"), func() time.Time { return issued })

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-1"}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign no exp: %v", err)
	}
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(issued.Add(time.Hour)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign no subject: %v", err)
	}

	tests := []struct {
		name   string
		issuer *TokenIssuer
		token  string
	}{
		{name: "empty", issuer: issuer, token: "  "},
		{name: "garbage", issuer: issuer, token: "not.a.jwt"},
		{name: "expired", issuer: later, token: token},
		{name: "wrong secret", issuer: other, token: token},
		{name: "alg none", issuer: issuer, token: noneToken},
		{name: "missing expiry", issuer: issuer, token: noExp},
		{name: "missing subject", issuer: issuer, token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.issuer.Verify(tt.token)
			if apperrors.KindOf(err) != apperrors.KindUnauthorized {
				t.Fatalf("expected unauthorized error, got %v", err)
			}
		})
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer(nil, nil); err == nil {
		t.Fatal("expected error for empty secret")
	}
	secret, err := RandomSecret()
	if err != nil {
		t.Fatalf("random secret: %v", err)
	}
	if len(secret) != 32 {
		t.Fatalf("expected 32 byte secret, got %d", len(secret))
	}
}
