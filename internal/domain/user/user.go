package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email is already registered")
	ErrInvalidRole = errors.New("invalid role")
)

// Role is one of a fixed set of values; anything else fails Parse.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleManager, RoleAdmin:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

type User struct {
	ID           int64
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	TenantID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateParams carries an already-hashed password.
type CreateParams struct {
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	TenantID     *int64
}

type UpdateParams struct {
	FullName string
	Role     Role
	TenantID *int64
}

// DTO is the sanitized shape returned to clients. The hash never leaves the server.
type DTO struct {
	ID       int64  `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	TenantID *int64 `json:"tenantId"`
}

func (u User) DTO() DTO {
	return DTO{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     u.Role,
		TenantID: u.TenantID,
	}
}

// ListFilter is keyset pagination over ascending ids.
type ListFilter struct {
	AfterID int64
	Limit   int
}
