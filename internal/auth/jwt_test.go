package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	keyOnce.Do(func() {
		k, err := GenerateKey()
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	return NewManager(ManagerConfig{
		PrivateKey:    rsaKey(t),
		KeyID:         "test-kid",
		RefreshSecret: "refresh-secret",
	})
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.GenerateAccessToken("42", user.RoleManager)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	claims, err := m.VerifyAccessToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("VerifyAccessToken error: %v", err)
	}

	if claims.Subject != "42" || claims.Role != user.RoleManager {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != DefaultIssuer {
		t.Fatalf("unexpected issuer %q", claims.Issuer)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != AccessTokenTTL {
		t.Fatalf("unexpected lifetime %s", got)
	}
}

func TestAccessToken_UsesRS256WithKid(t *testing.T) {
	m := newTestManager(t)

	tok, _ := m.GenerateAccessToken("1", user.RoleCustomer)

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, &Claims{})
	if err != nil {
		t.Fatalf("ParseUnverified error: %v", err)
	}
	if parsed.Method.Alg() != "RS256" {
		t.Fatalf("expected RS256, got %s", parsed.Method.Alg())
	}
	if parsed.Header["kid"] != "test-kid" {
		t.Fatalf("expected kid header, got %v", parsed.Header["kid"])
	}
}

func TestAccessToken_Expired(t *testing.T) {
	m := newTestManager(t)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }

	tok, err := m.GenerateAccessToken("1", user.RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	m.now = time.Now
	if _, err := m.VerifyAccessToken(context.Background(), tok); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAccessToken_RejectsRefreshToken(t *testing.T) {
	m := newTestManager(t)

	refresh, err := m.GenerateRefreshToken("1", user.RoleCustomer, "7")
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}

	if _, err := m.VerifyAccessToken(context.Background(), refresh); err == nil {
		t.Fatalf("HS256 token must not pass access verification")
	}
}

func TestAccessToken_RejectsForeignKey(t *testing.T) {
	m := newTestManager(t)

	other, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	forger := NewManager(ManagerConfig{PrivateKey: other, KeyID: "test-kid"})

	tok, _ := forger.GenerateAccessToken("1", user.RoleAdmin)

	if _, err := m.VerifyAccessToken(context.Background(), tok); err == nil {
		t.Fatalf("token signed by a different key must fail")
	}
}

func TestAccessToken_MissingKey(t *testing.T) {
	m := NewManager(ManagerConfig{RefreshSecret: "x"})

	if _, err := m.GenerateAccessToken("1", user.RoleCustomer); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
	if _, err := m.VerifyAccessToken(context.Background(), "a.b.c"); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing on verify, got %v", err)
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.GenerateRefreshToken("42", user.RoleAdmin, "99")
	if err != nil {
		t.Fatalf("GenerateRefreshToken error: %v", err)
	}

	claims, err := m.VerifyRefreshToken(tok)
	if err != nil {
		t.Fatalf("VerifyRefreshToken error: %v", err)
	}
	if claims.Subject != "42" || claims.ID != "99" || claims.Role != user.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != RefreshTokenTTL {
		t.Fatalf("unexpected lifetime %s", got)
	}
}

func TestRefreshToken_Failures(t *testing.T) {
	m := newTestManager(t)

	other := NewManager(ManagerConfig{RefreshSecret: "another-secret"})
	foreign, _ := other.GenerateRefreshToken("1", user.RoleCustomer, "1")

	noJTI, _ := m.GenerateRefreshToken("1", user.RoleCustomer, "")

	access, _ := m.GenerateAccessToken("1", user.RoleCustomer)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "wrong_secret", token: foreign, want: jwt.ErrTokenSignatureInvalid},
		{name: "missing_jti", token: noJTI, want: ErrMissingJTI},
		{name: "access_token", token: access},
		{name: "garbage", token: "not-a-token"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.VerifyRefreshToken(tt.token)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRefreshToken_MissingSecret(t *testing.T) {
	m := NewManager(ManagerConfig{PrivateKey: rsaKey(t)})

	if _, err := m.GenerateRefreshToken("1", user.RoleCustomer, "1"); !errors.Is(err, ErrRefreshSecretMissing) {
		t.Fatalf("expected ErrRefreshSecretMissing, got %v", err)
	}
	if _, err := m.VerifyRefreshToken("a.b.c"); !errors.Is(err, ErrRefreshSecretMissing) {
		t.Fatalf("expected ErrRefreshSecretMissing on verify, got %v", err)
	}
}
