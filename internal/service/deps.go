// Package service holds the auth flows: OTP registration, login, token
// issuance and rotation, password reset and admin account management.
// Storage, signing and mail are injected as narrow interfaces.
package service

import (
	"context"
	"strconv"
	"time"

	"github.com/geocoder89/authhub/internal/domain/tenant"
	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type UserStore interface {
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
	GetByID(ctx context.Context, id int64) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Update(ctx context.Context, id int64, p user.UpdateParams) (user.User, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, userID int64, expiresAt time.Time) (token.RefreshToken, error)
	FindByIDAndUser(ctx context.Context, id, userID int64) (token.RefreshToken, error)
	Delete(ctx context.Context, id int64) error
}

type TenantReader interface {
	GetByID(ctx context.Context, id int64) (tenant.Tenant, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) (bool, error)
}

type TokenSigner interface {
	GenerateAccessToken(sub string, role user.Role) (string, error)
	GenerateRefreshToken(sub string, role user.Role, jwtID string) (string, error)
}

// Metrics counts flow outcomes. *observability.Prom satisfies it.
type Metrics interface {
	AuthEvent(event, result string)
}

type noopMetrics struct{}

func (noopMetrics) AuthEvent(string, string) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// Subject renders a user id as the JWT sub claim.
func Subject(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseSubject is the inverse of Subject.
func ParseSubject(sub string) (int64, error) {
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}
	return id, nil
}
