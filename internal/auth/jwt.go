package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 365 * 24 * time.Hour

	DefaultIssuer = "auth-service"
)

var (
	ErrSigningKeyMissing    = errors.New("access token signing key is not configured")
	ErrRefreshSecretMissing = errors.New("refresh token secret is not configured")
	ErrInvalidToken         = errors.New("invalid token")
	ErrMissingJTI           = errors.New("missing jti")
)

// Claims is shared by both token kinds. Refresh tokens additionally carry
// the revocation record id in RegisteredClaims.ID (jti).
type Claims struct {
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// KeyResolver returns the RSA public key for a kid taken from a token header.
type KeyResolver interface {
	PublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

type ManagerConfig struct {
	PrivateKey    *rsa.PrivateKey
	KeyID         string
	Issuer        string
	RefreshSecret string
	Keys          KeyResolver
}

type Manager struct {
	privateKey    *rsa.PrivateKey
	keyID         string
	issuer        string
	refreshSecret []byte
	keys          KeyResolver
	now           func() time.Time
}

func NewManager(cfg ManagerConfig) *Manager {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	keys := cfg.Keys
	if keys == nil && cfg.PrivateKey != nil {
		keys = NewStaticKeys(cfg.KeyID, &cfg.PrivateKey.PublicKey)
	}

	return &Manager{
		privateKey:    cfg.PrivateKey,
		keyID:         cfg.KeyID,
		issuer:        issuer,
		refreshSecret: []byte(cfg.RefreshSecret),
		keys:          keys,
		now:           time.Now,
	}
}

// PublicKey exposes the verification half of the signing key, or nil.
func (m *Manager) PublicKey() *rsa.PublicKey {
	if m.privateKey == nil {
		return nil
	}
	return &m.privateKey.PublicKey
}

func (m *Manager) KeyID() string {
	return m.keyID
}

// GenerateAccessToken signs {sub, role} with RS256 for one hour.
func (m *Manager) GenerateAccessToken(sub string, role user.Role) (string, error) {
	if m.privateKey == nil {
		return "", ErrSigningKeyMissing
	}

	now := m.now().UTC()

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if m.keyID != "" {
		token.Header["kid"] = m.keyID
	}

	signed, err := token.SignedString(m.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// GenerateRefreshToken signs {sub, role, jti} with HS256 for one year.
// jwtID must be the id of an already persisted revocation record.
func (m *Manager) GenerateRefreshToken(sub string, role user.Role, jwtID string) (string, error) {
	if len(m.refreshSecret) == 0 {
		return "", ErrRefreshSecretMissing
	}

	now := m.now().UTC()

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    m.issuer,
			ID:        jwtID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken checks the RS256 signature against the resolved key,
// the issuer and the expiry.
func (m *Manager) VerifyAccessToken(ctx context.Context, tokenStr string) (*Claims, error) {
	if m.keys == nil {
		return nil, ErrSigningKeyMissing
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}

		kid, _ := t.Header["kid"].(string)
		return m.keys.PublicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	return claimsFrom(token)
}

// VerifyRefreshToken checks signature and expiry only. Revocation is the
// caller's job (see service.TokenIssuer.IsRevoked).
func (m *Manager) VerifyRefreshToken(tokenStr string) (*Claims, error) {
	if len(m.refreshSecret) == 0 {
		return nil, ErrRefreshSecretMissing
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.refreshSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}

	claims, err := claimsFrom(token)
	if err != nil {
		return nil, err
	}

	if claims.ID == "" {
		return nil, ErrMissingJTI
	}
	return claims, nil
}

func claimsFrom(token *jwt.Token) (*Claims, error) {
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
