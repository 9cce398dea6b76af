package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
)

func TestJWK_RoundTrip(t *testing.T) {
	pub := &rsaKey(t).PublicKey

	jwk := NewJWK("kid-1", pub)
	if jwk.Kty != "RSA" || jwk.Alg != "RS256" || jwk.Use != "sig" {
		t.Fatalf("unexpected jwk header fields: %+v", jwk)
	}

	got, err := jwk.PublicKey()
	if err != nil {
		t.Fatalf("PublicKey error: %v", err)
	}
	if got.N.Cmp(pub.N) != 0 || got.E != pub.E {
		t.Fatalf("decoded key does not match original")
	}
}

func TestPublishedKeys_EmptyWithoutKey(t *testing.T) {
	m := NewManager(ManagerConfig{})

	set := m.PublishedKeys()
	if set.Keys == nil || len(set.Keys) != 0 {
		t.Fatalf("expected empty non-nil key list, got %+v", set.Keys)
	}
}

func TestStaticKeys_KidMismatch(t *testing.T) {
	s := NewStaticKeys("a", &rsaKey(t).PublicKey)

	if _, err := s.PublicKey(context.Background(), "a"); err != nil {
		t.Fatalf("matching kid: %v", err)
	}
	if _, err := s.PublicKey(context.Background(), ""); err != nil {
		t.Fatalf("empty kid: %v", err)
	}
	if _, err := s.PublicKey(context.Background(), "b"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
}

func jwksServer(t *testing.T, set func() JWKSet, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJWKSClient_VerifiesRemoteSignedToken(t *testing.T) {
	issuer := newTestManager(t)

	var hits atomic.Int32
	srv := jwksServer(t, issuer.PublishedKeys, &hits)

	verifier := NewManager(ManagerConfig{
		RefreshSecret: "refresh-secret",
		Keys:          NewJWKSClient(srv.URL, srv.Client(), time.Minute),
	})

	tok, err := issuer.GenerateAccessToken("5", user.RoleCustomer)
	if err != nil {
		t.Fatalf("GenerateAccessToken error: %v", err)
	}

	for i := 0; i < 3; i++ {
		claims, err := verifier.VerifyAccessToken(context.Background(), tok)
		if err != nil {
			t.Fatalf("VerifyAccessToken error: %v", err)
		}
		if claims.Subject != "5" {
			t.Fatalf("unexpected subject %q", claims.Subject)
		}
	}

	if hits.Load() != 1 {
		t.Fatalf("expected key set to be fetched once, got %d", hits.Load())
	}
}

func TestJWKSClient_UnknownKidRefetches(t *testing.T) {
	first := newTestManager(t)

	rotatedKey, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey error: %v", err)
	}
	rotated := NewManager(ManagerConfig{PrivateKey: rotatedKey, KeyID: "rotated"})

	var rotatedOut atomic.Bool
	var hits atomic.Int32
	srv := jwksServer(t, func() JWKSet {
		if rotatedOut.Load() {
			return rotated.PublishedKeys()
		}
		return first.PublishedKeys()
	}, &hits)

	client := NewJWKSClient(srv.URL, srv.Client(), time.Hour)
	now := time.Unix(1_700_000_000, 0)
	client.now = func() time.Time { return now }

	if _, err := client.PublicKey(context.Background(), "test-kid"); err != nil {
		t.Fatalf("initial lookup: %v", err)
	}

	rotatedOut.Store(true)
	now = now.Add(minJWKSRefetch)

	if _, err := client.PublicKey(context.Background(), "rotated"); err != nil {
		t.Fatalf("lookup after rotation: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected a refetch for unknown kid, got %d fetches", hits.Load())
	}

	if _, err := client.PublicKey(context.Background(), "nope"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("unknown kid right after a fetch must be answered from cache, got %d fetches", hits.Load())
	}
}

func TestJWKSClient_UnknownKidsAreRateLimited(t *testing.T) {
	m := newTestManager(t)

	var hits atomic.Int32
	srv := jwksServer(t, m.PublishedKeys, &hits)

	client := NewJWKSClient(srv.URL, srv.Client(), time.Hour)
	now := time.Unix(1_700_000_000, 0)
	client.now = func() time.Time { return now }

	if _, err := client.PublicKey(context.Background(), "test-kid"); err != nil {
		t.Fatalf("initial lookup: %v", err)
	}

	for i := 0; i < 20; i++ {
		kid := "made-up-" + strconv.Itoa(i)
		if _, err := client.PublicKey(context.Background(), kid); !errors.Is(err, ErrUnknownKey) {
			t.Fatalf("kid %s: expected ErrUnknownKey, got %v", kid, err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("made-up kids must not trigger fetches inside the window, got %d", hits.Load())
	}

	now = now.Add(minJWKSRefetch)
	if _, err := client.PublicKey(context.Background(), "made-up-again"); !errors.Is(err, ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected one refetch once the window passed, got %d", hits.Load())
	}

	if _, err := client.PublicKey(context.Background(), "test-kid"); err != nil {
		t.Fatalf("known kid must still resolve: %v", err)
	}
}

func TestJWKSClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewJWKSClient(srv.URL, srv.Client(), time.Minute)

	if _, err := client.PublicKey(context.Background(), "any"); err == nil {
		t.Fatalf("expected error from failing jwks endpoint")
	}
}
