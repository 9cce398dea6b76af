package token

import (
	"errors"
	"strconv"
	"time"
)

var ErrNotFound = errors.New("refresh token record not found")

// RefreshToken is the revocation record behind one issued refresh token.
// Its existence (matched by ID and UserID) is what keeps the token valid.
type RefreshToken struct {
	ID        int64
	UserID    *int64 // nil once the owning user is deleted
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JTI is the record id as carried in the refresh token's jti claim.
func (t RefreshToken) JTI() string {
	return strconv.FormatInt(t.ID, 10)
}

// ParseJTI converts a jti claim back into a record id.
func ParseJTI(jti string) (int64, error) {
	id, err := strconv.ParseInt(jti, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrNotFound
	}
	return id, nil
}
