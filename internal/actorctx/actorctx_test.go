package actorctx

import (
	"context"
	"testing"

	"github.com/geocoder89/authhub/internal/domain/user"
)

func TestPrincipalRoundTrip(t *testing.T) {
	if _, ok := PrincipalFrom(context.Background()); ok {
		t.Fatalf("empty context must not carry a principal")
	}

	ctx := WithPrincipal(context.Background(), Principal{UserID: "7", Role: user.RoleAdmin})

	p, ok := PrincipalFrom(ctx)
	if !ok || p.UserID != "7" || p.Role != user.RoleAdmin {
		t.Fatalf("unexpected principal %+v ok=%v", p, ok)
	}

	if id, ok := UserIDFrom(ctx); !ok || id != "7" {
		t.Fatalf("unexpected user id %q", id)
	}

	if _, ok := PrincipalFrom(WithPrincipal(context.Background(), Principal{})); ok {
		t.Fatalf("principal without user id must not count")
	}
}
