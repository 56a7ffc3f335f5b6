package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"talksphere/internal/cache"
	"talksphere/internal/model"
	"talksphere/internal/repository/memory"
)

// =============================================================================
// PROFILE TESTS
// =============================================================================

func TestUserService_UpsertProfile(t *testing.T) {
	tests := []struct {
		name    string
		req     model.UpsertUserRequest
		wantErr error
	}{
		{
			name: "valid",
			req:  model.UpsertUserRequest{Name: " Alice ", Email: "alice@example.com"},
		},
		{
			name:    "missing name",
			req:     model.UpsertUserRequest{Name: "  "},
			wantErr: model.ErrNameRequired,
		},
		{
			name:    "bad email",
			req:     model.UpsertUserRequest{Name: "Alice", Email: "not-an-email"},
			wantErr: model.ErrInvalidProfile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewUserService(memory.NewUserStore(), nil)

			user, err := svc.UpsertProfile(context.Background(), "alice", tt.req)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if user.Name != "Alice" {
				t.Errorf("name = %q, want Alice", user.Name)
			}
			if user.Role != model.RoleUser {
				t.Errorf("role = %q, want %q", user.Role, model.RoleUser)
			}
		})
	}
}

func TestUserService_UpsertProfile_RefreshesAuthorCache(t *testing.T) {
	store := memory.NewUserStore()
	authors := NewAuthorResolver(store, cache.NewAuthorCache(10, time.Minute), testAvatar)
	svc := NewUserService(store, authors)
	ctx := context.Background()

	if _, err := svc.UpsertProfile(ctx, "alice", model.UpsertUserRequest{Name: "Alice"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if got := authors.Resolve(ctx, []string{"alice"})["alice"].Name; got != "Alice" {
		t.Fatalf("name = %q, want Alice", got)
	}

	if _, err := svc.UpsertProfile(ctx, "alice", model.UpsertUserRequest{Name: "Alicia"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if got := authors.Resolve(ctx, []string{"alice"})["alice"].Name; got != "Alicia" {
		t.Errorf("name after rename = %q, want Alicia", got)
	}
}

// =============================================================================
// ADMIN CHECK TESTS
// =============================================================================

func TestUserService_RequireAdmin(t *testing.T) {
	store := memory.NewUserStore()
	ctx := context.Background()
	_ = store.Upsert(ctx, &model.User{ID: "root", Name: "Root"})
	_ = store.SetRole(ctx, "root", model.RoleAdmin)
	_ = store.Upsert(ctx, &model.User{ID: "joe", Name: "Joe"})

	svc := NewUserService(store, nil)

	if err := svc.RequireAdmin(ctx, "root"); err != nil {
		t.Errorf("admin rejected: %v", err)
	}
	if err := svc.RequireAdmin(ctx, "joe"); !errors.Is(err, model.ErrNotAdmin) {
		t.Errorf("regular user: err = %v, want ErrNotAdmin", err)
	}
	if err := svc.RequireAdmin(ctx, "stranger"); !errors.Is(err, model.ErrNotAdmin) {
		t.Errorf("unknown user: err = %v, want ErrNotAdmin", err)
	}
}

func TestUserService_List(t *testing.T) {
	store := memory.NewUserStore()
	ctx := context.Background()
	old := time.Now().Add(-time.Hour)
	_ = store.Upsert(ctx, &model.User{ID: "old", Name: "Old", CreatedAt: old})
	_ = store.Upsert(ctx, &model.User{ID: "new", Name: "New", CreatedAt: old.Add(time.Minute)})
	_ = store.SetBanned(ctx, "old", true)

	svc := NewUserService(store, nil)
	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(users) != 2 {
		t.Fatalf("len(users) = %d, want 2", len(users))
	}
	if users[0].ID != "new" || users[1].ID != "old" {
		t.Errorf("order = [%s %s], want newest first", users[0].ID, users[1].ID)
	}
	if !users[1].IsBanned {
		t.Error("ban state missing from listing")
	}
	if users[0].Role != model.RoleUser {
		t.Errorf("role = %q, want %q", users[0].Role, model.RoleUser)
	}
}

func TestUserService_SeedAdmins(t *testing.T) {
	store := memory.NewUserStore()
	ctx := context.Background()
	_ = store.Upsert(ctx, &model.User{ID: "known", Name: "Known"})

	svc := NewUserService(store, nil)
	if err := svc.SeedAdmins(ctx, []string{"known", "fresh"}); err != nil {
		t.Fatalf("SeedAdmins() error = %v", err)
	}

	for _, id := range []string{"known", "fresh"} {
		if err := svc.RequireAdmin(ctx, id); err != nil {
			t.Errorf("RequireAdmin(%q) = %v, want nil", id, err)
		}
	}

	known, _ := store.GetByID(ctx, "known")
	if known.Name != "Known" {
		t.Errorf("existing profile name overwritten: %q", known.Name)
	}
}
