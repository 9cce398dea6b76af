// Package actorctx carries the authenticated principal on a context.Context
// so code below the HTTP layer (logs, services) can see who is acting.
package actorctx

import (
	"context"

	"github.com/geocoder89/authhub/internal/domain/user"
)

type ctxKey struct{}

type Principal struct {
	UserID string
	Role   user.Role
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(Principal)

	return p, ok && p.UserID != ""
}

func UserIDFrom(ctx context.Context) (string, bool) {
	p, ok := PrincipalFrom(ctx)
	return p.UserID, ok
}
