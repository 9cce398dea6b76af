package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	observer
	pool *pgxpool.Pool
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{observer: observer{prom: prom}, pool: pool}
}

// Create inserts a record and returns it with its serial id, which the
// caller embeds as the refresh token's jti.
func (r *RefreshTokensRepo) Create(ctx context.Context, userID int64, expiresAt time.Time) (token.RefreshToken, error) {
	var row token.RefreshToken

	err := r.observe("refresh_tokens.create", func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO refresh_tokens (user_id, expires_at)
			 VALUES ($1, $2)
			 RETURNING id, user_id, expires_at, created_at, updated_at`,
			userID, expiresAt,
		).Scan(&row.ID, &row.UserID, &row.ExpiresAt, &row.CreatedAt, &row.UpdatedAt)
	})

	if err != nil {
		if isForeignKeyViolation(err) {
			return token.RefreshToken{}, user.ErrNotFound
		}
		return token.RefreshToken{}, err
	}
	return row, nil
}

// FindByIDAndUser is the revocation lookup: a miss means revoked.
func (r *RefreshTokensRepo) FindByIDAndUser(ctx context.Context, id, userID int64) (token.RefreshToken, error) {
	var row token.RefreshToken

	err := r.observe("refresh_tokens.find", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, user_id, expires_at, created_at, updated_at
			 FROM refresh_tokens
			 WHERE id = $1 AND user_id = $2`,
			id, userID,
		).Scan(&row.ID, &row.UserID, &row.ExpiresAt, &row.CreatedAt, &row.UpdatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return token.RefreshToken{}, token.ErrNotFound
		}
		return token.RefreshToken{}, err
	}
	return row, nil
}

// Delete removes one record. A record that is already gone yields
// token.ErrNotFound, so only one of two concurrent rotations can win.
func (r *RefreshTokensRepo) Delete(ctx context.Context, id int64) error {
	var removed int64

	err := r.observe("refresh_tokens.delete", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
		removed = tag.RowsAffected()
		return err
	})
	if err != nil {
		return err
	}
	if removed == 0 {
		return token.ErrNotFound
	}
	return nil
}

// DeleteExpired prunes records whose token can no longer verify anyway.
func (r *RefreshTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64

	err := r.observe("refresh_tokens.delete_expired", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
		n = tag.RowsAffected()
		return err
	})

	return n, err
}
