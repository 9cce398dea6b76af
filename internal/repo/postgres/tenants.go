package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/authhub/internal/domain/tenant"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const tenantColumns = `id, name, address, rating, created_at, updated_at`

type TenantsRepo struct {
	observer
	pool *pgxpool.Pool
}

func NewTenantsRepo(pool *pgxpool.Pool, prom *observability.Prom) *TenantsRepo {
	return &TenantsRepo{observer: observer{prom: prom}, pool: pool}
}

func scanTenant(row pgx.Row) (tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Address, &t.Rating, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *TenantsRepo) Create(ctx context.Context, req tenant.CreateTenantRequest) (tenant.Tenant, error) {
	var t tenant.Tenant

	err := r.observe("tenants.create", func() error {
		var err error
		t, err = scanTenant(r.pool.QueryRow(ctx,
			`INSERT INTO tenants (name, address, rating)
			 VALUES ($1, $2, 0)
			 RETURNING `+tenantColumns,
			req.Name, req.Address,
		))
		return err
	})

	return t, err
}

func (r *TenantsRepo) GetByID(ctx context.Context, id int64) (tenant.Tenant, error) {
	var t tenant.Tenant

	err := r.observe("tenants.get_by_id", func() error {
		var err error
		t, err = scanTenant(r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (r *TenantsRepo) Update(ctx context.Context, id int64, req tenant.UpdateTenantRequest) (tenant.Tenant, error) {
	var t tenant.Tenant

	err := r.observe("tenants.update", func() error {
		var err error
		t, err = scanTenant(r.pool.QueryRow(ctx,
			`UPDATE tenants
			 SET name = $2, address = $3, rating = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+tenantColumns,
			id, req.Name, req.Address, req.Rating,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		return tenant.Tenant{}, err
	}
	return t, nil
}

func (r *TenantsRepo) Delete(ctx context.Context, id int64) error {
	var affected int64

	err := r.observe("tenants.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
		affected = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}
	if affected == 0 {
		return tenant.ErrNotFound
	}
	return nil
}

func (r *TenantsRepo) List(ctx context.Context, f tenant.ListFilter) ([]tenant.Tenant, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	out := make([]tenant.Tenant, 0, limit)

	err := r.observe("tenants.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+tenantColumns+`
			 FROM tenants
			 WHERE id > $1
			 ORDER BY id ASC
			 LIMIT $2`,
			f.AfterID, limit,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTenant(rows)
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}
