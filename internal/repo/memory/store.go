// Package memory holds map-backed repositories used by tests and local runs
// without Postgres. They mirror the relational constraints that matter for
// auth: unique user email and ON DELETE SET NULL on foreign keys.
package memory

import (
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/domain/tenant"
	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	users   map[int64]user.User
	tenants map[int64]tenant.Tenant
	tokens  map[int64]token.RefreshToken

	nextUserID   int64
	nextTenantID int64
	nextTokenID  int64
}

func NewStore() *Store {
	return &Store{
		now:     func() time.Time { return time.Now().UTC() },
		users:   make(map[int64]user.User),
		tenants: make(map[int64]tenant.Tenant),
		tokens:  make(map[int64]token.RefreshToken),
	}
}

func (s *Store) Users() *UsersRepo {
	return &UsersRepo{s: s}
}

func (s *Store) Tenants() *TenantsRepo {
	return &TenantsRepo{s: s}
}

func (s *Store) RefreshTokens() *RefreshTokensRepo {
	return &RefreshTokensRepo{s: s}
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}
