package memory

import (
	"context"
	"time"

	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type RefreshTokensRepo struct {
	s *Store
}

func (r *RefreshTokensRepo) Create(_ context.Context, userID int64, expiresAt time.Time) (token.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[userID]; !ok {
		return token.RefreshToken{}, user.ErrNotFound
	}

	r.s.nextTokenID++
	now := r.s.now()
	uid := userID

	t := token.RefreshToken{
		ID:        r.s.nextTokenID,
		UserID:    &uid,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.tokens[t.ID] = t

	return t, nil
}

func (r *RefreshTokensRepo) FindByIDAndUser(_ context.Context, id, userID int64) (token.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[id]
	if !ok || t.UserID == nil || *t.UserID != userID {
		return token.RefreshToken{}, token.ErrNotFound
	}
	return t, nil
}

// Delete reports token.ErrNotFound when the record is already gone.
func (r *RefreshTokensRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[id]; !ok {
		return token.ErrNotFound
	}
	delete(r.s.tokens, id)
	return nil
}

// Count is a test helper.
func (r *RefreshTokensRepo) Count() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.tokens)
}
