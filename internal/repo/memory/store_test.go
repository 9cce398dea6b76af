package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/domain/tenant"
	"github.com/geocoder89/authhub/internal/domain/token"
	"github.com/geocoder89/authhub/internal/domain/user"
)

func TestUsersRepo_UniqueEmailUnderConcurrency(t *testing.T) {
	users := NewStore().Users()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := users.Create(ctx, user.CreateParams{FullName: "A", Email: "a@b.com", PasswordHash: "h", Role: user.RoleCustomer})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, taken int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, user.ErrEmailTaken):
			taken++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if ok != 1 || taken != n-1 {
		t.Fatalf("expected 1 insert and %d conflicts, got %d/%d", n-1, ok, taken)
	}
	if users.Count() != 1 {
		t.Fatalf("expected one row, got %d", users.Count())
	}
}

func TestUsersRepo_DeleteDetachesRefreshTokens(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	u, err := s.Users().Create(ctx, user.CreateParams{Email: "a@b.com", Role: user.RoleCustomer})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	rec, err := s.RefreshTokens().Create(ctx, u.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("token Create error: %v", err)
	}

	if err := s.Users().Delete(ctx, u.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	if s.RefreshTokens().Count() != 1 {
		t.Fatalf("token row must survive user deletion")
	}
	if _, err := s.RefreshTokens().FindByIDAndUser(ctx, rec.ID, u.ID); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("detached record must not match the old user, got %v", err)
	}
}

func TestRefreshTokensRepo_FindRequiresMatchingUser(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, _ := s.Users().Create(ctx, user.CreateParams{Email: "a@b.com", Role: user.RoleCustomer})
	b, _ := s.Users().Create(ctx, user.CreateParams{Email: "b@b.com", Role: user.RoleCustomer})

	rec, err := s.RefreshTokens().Create(ctx, a.ID, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := s.RefreshTokens().FindByIDAndUser(ctx, rec.ID, a.ID); err != nil {
		t.Fatalf("expected match, got %v", err)
	}
	if _, err := s.RefreshTokens().FindByIDAndUser(ctx, rec.ID, b.ID); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}

	if err := s.RefreshTokens().Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, err := s.RefreshTokens().FindByIDAndUser(ctx, rec.ID, a.ID); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.RefreshTokens().Delete(ctx, rec.ID); !errors.Is(err, token.ErrNotFound) {
		t.Fatalf("deleting an absent record must report ErrNotFound, got %v", err)
	}
}

func TestTenantsRepo_DeleteClearsUserTenant(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tn, err := s.Tenants().Create(ctx, tenant.CreateTenantRequest{Name: "Acme", Address: "1 Long Street"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if tn.Rating != 0 {
		t.Fatalf("new tenant rating must be 0")
	}

	u, _ := s.Users().Create(ctx, user.CreateParams{Email: "m@b.com", Role: user.RoleManager, TenantID: &tn.ID})

	if err := s.Tenants().Delete(ctx, tn.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	got, _ := s.Users().GetByID(ctx, u.ID)
	if got.TenantID != nil {
		t.Fatalf("expected tenant reference cleared, got %v", *got.TenantID)
	}
}

func TestList_KeysetPagination(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.Tenants().Create(ctx, tenant.CreateTenantRequest{Name: "t", Address: "0123456789"}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}

	page, _ := s.Tenants().List(ctx, tenant.ListFilter{Limit: 2})
	if len(page) != 2 || page[0].ID != 1 || page[1].ID != 2 {
		t.Fatalf("unexpected first page: %+v", page)
	}

	page, _ = s.Tenants().List(ctx, tenant.ListFilter{AfterID: 2, Limit: 10})
	if len(page) != 3 || page[0].ID != 3 {
		t.Fatalf("unexpected second page: %+v", page)
	}
}
