package tenant

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("tenant not found")

type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateTenantRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Address string `json:"address" binding:"required,min=10,max=255"`
}

type UpdateTenantRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Address string `json:"address" binding:"required,min=10,max=255"`
	Rating  int    `json:"rating" binding:"min=0,max=5"`
}

type ListFilter struct {
	AfterID int64
	Limit   int
}
