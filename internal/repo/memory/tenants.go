package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/authhub/internal/domain/tenant"
)

type TenantsRepo struct {
	s *Store
}

func (r *TenantsRepo) Create(_ context.Context, req tenant.CreateTenantRequest) (tenant.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextTenantID++
	now := r.s.now()

	t := tenant.Tenant{
		ID:        r.s.nextTenantID,
		Name:      req.Name,
		Address:   req.Address,
		Rating:    0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.tenants[t.ID] = t

	return t, nil
}

func (r *TenantsRepo) GetByID(_ context.Context, id int64) (tenant.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tenants[id]
	if !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	return t, nil
}

func (r *TenantsRepo) Update(_ context.Context, id int64, req tenant.UpdateTenantRequest) (tenant.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tenants[id]
	if !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}

	t.Name = req.Name
	t.Address = req.Address
	t.Rating = req.Rating
	t.UpdatedAt = r.s.now()
	r.s.tenants[id] = t

	return t, nil
}

// Delete clears the tenant reference on its users.
func (r *TenantsRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tenants[id]; !ok {
		return tenant.ErrNotFound
	}
	delete(r.s.tenants, id)

	for uid, u := range r.s.users {
		if u.TenantID != nil && *u.TenantID == id {
			u.TenantID = nil
			r.s.users[uid] = u
		}
	}
	return nil
}

func (r *TenantsRepo) List(_ context.Context, f tenant.ListFilter) ([]tenant.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]tenant.Tenant, 0, len(r.s.tenants))
	for _, t := range r.s.tenants {
		if t.ID > f.AfterID {
			out = append(out, t)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if limit := limitOrDefault(f.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
