package auth

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
)

var ErrUnknownKey = errors.New("no verification key for kid")

// StaticKeys resolves every kid to the single locally configured key.
type StaticKeys struct {
	kid string
	key *rsa.PublicKey
}

func NewStaticKeys(kid string, key *rsa.PublicKey) *StaticKeys {
	return &StaticKeys{kid: kid, key: key}
}

func (s *StaticKeys) PublicKey(_ context.Context, kid string) (*rsa.PublicKey, error) {
	if s.key == nil {
		return nil, ErrSigningKeyMissing
	}
	if kid != "" && s.kid != "" && kid != s.kid {
		return nil, ErrUnknownKey
	}
	return s.key, nil
}

const (
	jwksCacheKey   = "jwks"
	defaultJWKSTTL = 10 * time.Minute
	maxJWKSBytes   = 1 << 20

	// minJWKSRefetch bounds how often an unknown kid may hit the issuer.
	minJWKSRefetch = 30 * time.Second
)

// JWKSClient fetches a remote key set and caches it. An unknown kid forces a
// refetch so key rotation on the issuer side is picked up, at most once per
// minRefetch; inside that window unknown kids are rejected from cache.
type JWKSClient struct {
	url        string
	http       *http.Client
	cache      *cache.Cache[map[string]*rsa.PublicKey]
	minRefetch time.Duration
	now        func() time.Time

	fetchMu   sync.Mutex
	lastFetch atomic.Int64 // unix nanos of the last successful fetch
}

func NewJWKSClient(url string, httpClient *http.Client, ttl time.Duration) *JWKSClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if ttl <= 0 {
		ttl = defaultJWKSTTL
	}

	return &JWKSClient{
		url:        url,
		http:       httpClient,
		cache:      cache.New[map[string]*rsa.PublicKey](ttl),
		minRefetch: minJWKSRefetch,
		now:        time.Now,
	}
}

func (c *JWKSClient) PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if keys, ok := c.cache.Get(jwksCacheKey); ok {
		if key, err := pick(keys, kid); err == nil {
			return key, nil
		}
		if c.fetchedRecently() {
			return nil, ErrUnknownKey
		}
	}

	keys, err := c.refresh(ctx)
	if err != nil {
		return nil, err
	}
	return pick(keys, kid)
}

func (c *JWKSClient) fetchedRecently() bool {
	last := c.lastFetch.Load()
	return last != 0 && c.now().Sub(time.Unix(0, last)) < c.minRefetch
}

func (c *JWKSClient) refresh(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	// a request queued behind us may find the set it needs already fetched
	if keys, ok := c.cache.Get(jwksCacheKey); ok && c.fetchedRecently() {
		return keys, nil
	}

	keys, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.Set(jwksCacheKey, keys)
	c.lastFetch.Store(c.now().UnixNano())
	return keys, nil
}

func (c *JWKSClient) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch jwks: unexpected status %d", res.StatusCode)
	}

	var set JWKSet
	if err := json.NewDecoder(io.LimitReader(res.Body, maxJWKSBytes)).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := k.PublicKey()
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable rsa keys")
	}
	return keys, nil
}

func pick(keys map[string]*rsa.PublicKey, kid string) (*rsa.PublicKey, error) {
	if kid == "" {
		// tokens without kid are only accepted against a single-key set
		if len(keys) == 1 {
			for _, k := range keys {
				return k, nil
			}
		}
		return nil, ErrUnknownKey
	}

	key, ok := keys[kid]
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}
