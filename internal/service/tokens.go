package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
)

type Tokens struct {
	Access    string
	Refresh   string
	RecordID  int64
	ExpiresAt time.Time // refresh record expiry
}

// TokenIssuer mints token pairs and owns the refresh-token records that make
// refresh tokens revocable.
type TokenIssuer struct {
	store  RefreshTokenStore
	signer TokenSigner
	log    *slog.Logger
	now    func() time.Time
}

func NewTokenIssuer(store RefreshTokenStore, signer TokenSigner, log *slog.Logger) *TokenIssuer {
	if log == nil {
		log = slog.Default()
	}
	return &TokenIssuer{store: store, signer: signer, log: log, now: time.Now}
}

// Issue signs the access token, then creates the revocation record, then
// signs the refresh token with the record id as jti. A signing failure
// before the insert leaves nothing behind.
func (i *TokenIssuer) Issue(ctx context.Context, u user.User) (Tokens, error) {
	sub := Subject(u.ID)

	access, err := i.signer.GenerateAccessToken(sub, u.Role)
	if err != nil {
		return Tokens{}, fmt.Errorf("sign access token: %w", err)
	}

	rec, err := i.store.Create(ctx, u.ID, i.now().Add(auth.RefreshTokenTTL))
	if err != nil {
		return Tokens{}, fmt.Errorf("create refresh record: %w", err)
	}

	refresh, err := i.signer.GenerateRefreshToken(sub, u.Role, rec.JTI())
	if err != nil {
		// the record would authorize nothing; drop it
		_ = i.store.Delete(ctx, rec.ID)
		return Tokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return Tokens{
		Access:    access,
		Refresh:   refresh,
		RecordID:  rec.ID,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

// Rotate deletes the presented refresh record before issuing a new pair.
// When the record is already gone another request rotated or revoked it
// first, and the caller gets token.ErrNotFound instead of a second pair.
func (i *TokenIssuer) Rotate(ctx context.Context, oldRecordID int64, u user.User) (Tokens, error) {
	if err := i.store.Delete(ctx, oldRecordID); err != nil {
		return Tokens{}, fmt.Errorf("delete refresh record: %w", err)
	}
	return i.Issue(ctx, u)
}

// Revoke is idempotent: a record removed by a concurrent logout or rotation
// counts as revoked.
func (i *TokenIssuer) Revoke(ctx context.Context, recordID int64) error {
	err := i.store.Delete(ctx, recordID)
	if err != nil && !errors.Is(err, token.ErrNotFound) {
		return fmt.Errorf("delete refresh record: %w", err)
	}
	return nil
}

// IsRevoked reports whether the refresh token identified by jti and sub has
// no live record. Lookup failures count as revoked.
func (i *TokenIssuer) IsRevoked(ctx context.Context, jti, sub string) bool {
	id, err := token.ParseJTI(jti)
	if err != nil {
		return true
	}
	userID, err := ParseSubject(sub)
	if err != nil {
		return true
	}

	_, err = i.store.FindByIDAndUser(ctx, id, userID)
	if err == nil {
		return false
	}

	if !errors.Is(err, token.ErrNotFound) {
		i.log.ErrorContext(ctx, "auth.revocation_lookup_failed", "jti", jti, "user_id", userID, "err", err)
	}
	return true
}
