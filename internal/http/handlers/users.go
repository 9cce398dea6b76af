package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
)

type UserAccounts interface {
	Create(ctx context.Context, in service.CreateUserInput) (user.User, error)
	Update(ctx context.Context, id int64, in service.UpdateUserInput) (user.User, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (user.User, error)
	List(ctx context.Context, f user.ListFilter) ([]user.User, error)
	Delete(ctx context.Context, id int64) error
}

type UsersHandler struct {
	accounts  UserAccounts
	directory UserDirectory
}

func NewUsersHandler(accounts UserAccounts, directory UserDirectory) *UsersHandler {
	return &UsersHandler{accounts: accounts, directory: directory}
}

type createUserRequest struct {
	FullName string `json:"fullName" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=customer manager admin"`
	TenantID *int64 `json:"tenantId" binding:"omitempty,min=1"`
}

type updateUserRequest struct {
	FullName string `json:"fullName" binding:"required,max=100"`
	Role     string `json:"role" binding:"required,oneof=customer manager admin"`
	TenantID *int64 `json:"tenantId" binding:"omitempty,min=1"`
}

// POST /api/users
func (h *UsersHandler) Create(ctx *gin.Context) {
	var req createUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.accounts.Create(ctx.Request.Context(), service.CreateUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Role:     user.Role(req.Role),
		TenantID: req.TenantID,
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u.DTO()})
}

// GET /api/users
func (h *UsersHandler) List(ctx *gin.Context) {
	p, ok := parsePage(ctx)
	if !ok {
		return
	}

	rows, err := h.directory.List(ctx.Request.Context(), user.ListFilter{AfterID: p.AfterID, Limit: p.Limit + 1})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	n, next := nextCursor(len(rows), p.Limit, func(i int) int64 { return rows[i].ID })

	out := make([]user.DTO, 0, n)
	for _, u := range rows[:n] {
		out = append(out, u.DTO())
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"users": out, "nextCursor": next})
}

// GET /api/users/:id
func (h *UsersHandler) GetOne(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	u, err := h.directory.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			ctx.JSON(http.StatusOK, gin.H{"user": nil})
			return
		}
		RespondAppError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"user": u.DTO()})
}

// PUT /api/users/:id
func (h *UsersHandler) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req updateUserRequest
	if !BindJSON(ctx, &req) {
		return
	}

	u, err := h.accounts.Update(ctx.Request.Context(), id, service.UpdateUserInput{
		FullName: req.FullName,
		Role:     user.Role(req.Role),
		TenantID: req.TenantID,
	})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u.DTO()})
}

// DELETE /api/users/:id
func (h *UsersHandler) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	if err := h.directory.Delete(ctx.Request.Context(), id); err != nil {
		RespondAppError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"id": id})
}
