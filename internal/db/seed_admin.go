package db

import (
	"context"
	"errors"
	"strings"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type AdminStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, p user.CreateParams) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// EnsureAdminUser creates the bootstrap ADMIN from ADMIN_EMAIL/ADMIN_PASSWORD
// when both are set and no user with that email exists yet.
func EnsureAdminUser(ctx context.Context, store AdminStore, hasher PasswordHasher, cfg config.Config) (bool, error) {
	email := strings.TrimSpace(cfg.AdminEmail)
	if email == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	exists, err := store.ExistsByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	hash, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return false, err
	}

	_, err = store.Create(ctx, user.CreateParams{
		FullName:     cfg.AdminName,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
	})
	if errors.Is(err, user.ErrEmailTaken) {
		// another instance seeded first
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}
