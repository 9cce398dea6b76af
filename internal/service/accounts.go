package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/authhub/internal/domain/tenant"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type CreateUserInput struct {
	FullName string
	Email    string
	Password string
	Role     user.Role
	TenantID *int64
}

type UpdateUserInput struct {
	FullName string
	Role     user.Role
	TenantID *int64
}

// Accounts is the admin path for creating and editing users directly.
type Accounts struct {
	users   UserStore
	tenants TenantReader
	hasher  PasswordHasher
}

func NewAccounts(users UserStore, tenants TenantReader, hasher PasswordHasher) *Accounts {
	return &Accounts{users: users, tenants: tenants, hasher: hasher}
}

func (a *Accounts) Create(ctx context.Context, in CreateUserInput) (user.User, error) {
	if !in.Role.IsValid() {
		return user.User{}, user.ErrInvalidRole
	}
	if err := a.checkTenant(ctx, in.TenantID); err != nil {
		return user.User{}, err
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return user.User{}, err
	}

	return a.users.Create(ctx, user.CreateParams{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		TenantID:     in.TenantID,
	})
}

// Update sets name, role and tenant. A nil TenantID detaches the user.
func (a *Accounts) Update(ctx context.Context, id int64, in UpdateUserInput) (user.User, error) {
	if !in.Role.IsValid() {
		return user.User{}, user.ErrInvalidRole
	}
	if err := a.checkTenant(ctx, in.TenantID); err != nil {
		return user.User{}, err
	}

	return a.users.Update(ctx, id, user.UpdateParams{
		FullName: in.FullName,
		Role:     in.Role,
		TenantID: in.TenantID,
	})
}

func (a *Accounts) checkTenant(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := a.tenants.GetByID(ctx, *id); err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			return err
		}
		return fmt.Errorf("load tenant: %w", err)
	}
	return nil
}
