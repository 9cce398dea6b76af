package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/authhub/internal/cache"
	"github.com/geocoder89/authhub/internal/domain/tenant"
	"github.com/geocoder89/authhub/internal/utils"
	"github.com/gin-gonic/gin"
)

type TenantStore interface {
	Create(ctx context.Context, req tenant.CreateTenantRequest) (tenant.Tenant, error)
	GetByID(ctx context.Context, id int64) (tenant.Tenant, error)
	Update(ctx context.Context, id int64, req tenant.UpdateTenantRequest) (tenant.Tenant, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f tenant.ListFilter) ([]tenant.Tenant, error)
}

const tenantListCacheTTL = 5 * time.Second

type tenantPage struct {
	Tenants    []tenant.Tenant `json:"tenants"`
	NextCursor *string         `json:"nextCursor"`
}

type TenantsHandler struct {
	store     TenantStore
	listCache *cache.Cache[tenantPage]
}

func NewTenantsHandler(store TenantStore) *TenantsHandler {
	return &TenantsHandler{
		store:     store,
		listCache: cache.New[tenantPage](tenantListCacheTTL),
	}
}

// POST /api/tenants
func (h *TenantsHandler) Create(ctx *gin.Context) {
	var req tenant.CreateTenantRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t, err := h.store.Create(ctx.Request.Context(), req)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.listCache.Clear()
	ctx.JSON(http.StatusCreated, gin.H{"tenant": t})
}

// GET /api/tenants
func (h *TenantsHandler) List(ctx *gin.Context) {
	p, ok := parsePage(ctx)
	if !ok {
		return
	}

	key := utils.BuildListCacheKey("tenants", p.AfterID, p.Limit)
	if cached, ok := h.listCache.Get(key); ok {
		RespondJSONWithETag(ctx, http.StatusOK, cached)
		return
	}

	rows, err := h.store.List(ctx.Request.Context(), tenant.ListFilter{AfterID: p.AfterID, Limit: p.Limit + 1})
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	n, next := nextCursor(len(rows), p.Limit, func(i int) int64 { return rows[i].ID })
	res := tenantPage{Tenants: rows[:n], NextCursor: next}

	h.listCache.Set(key, res)
	RespondJSONWithETag(ctx, http.StatusOK, res)
}

// GET /api/tenants/:id
func (h *TenantsHandler) GetOne(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	t, err := h.store.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			ctx.JSON(http.StatusOK, gin.H{"tenant": nil})
			return
		}
		RespondAppError(ctx, err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{"tenant": t})
}

// PUT /api/tenants/:id
func (h *TenantsHandler) Update(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	var req tenant.UpdateTenantRequest
	if !BindJSON(ctx, &req) {
		return
	}

	t, err := h.store.Update(ctx.Request.Context(), id, req)
	if err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.listCache.Clear()
	ctx.JSON(http.StatusOK, gin.H{"tenant": t})
}

// DELETE /api/tenants/:id
func (h *TenantsHandler) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx)
	if !ok {
		return
	}

	if err := h.store.Delete(ctx.Request.Context(), id); err != nil {
		RespondAppError(ctx, err)
		return
	}

	h.listCache.Clear()
	ctx.JSON(http.StatusOK, gin.H{"id": id})
}
