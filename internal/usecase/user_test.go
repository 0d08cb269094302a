package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/akashdesaidev/Threadspire/internal/domain"
)

func TestUserRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	user, err := e.user.Register(ctx, "alice", " Alice ", "Alice@Example.com")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Name != "Alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	cases := []struct {
		name  string
		id    string
		uname string
		email string
		want  error
	}{
		{"anonymous", "", "x", "x@example.com", domain.ErrForbidden},
		{"empty name", "bob", "", "bob@example.com", domain.ErrValidation},
		{"bad email", "bob", "Bob", "not-an-email", domain.ErrValidation},
		{"duplicate", "alice", "Alice", "other@example.com", domain.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.user.Register(ctx, tc.id, tc.uname, tc.email)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v got %v", tc.want, err)
			}
		})
	}
}

func TestUserUpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.register(t, "alice", "Alice")

	updated, err := e.user.UpdateProfile(ctx, "alice", ProfileChanges{Bio: ptr("writes about calm")})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Name != "Alice" || updated.Bio != "writes about calm" {
		t.Fatalf("unexpected profile %+v", updated)
	}

	if _, err := e.user.UpdateProfile(ctx, "alice", ProfileChanges{Name: ptr("  ")}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation got %v", err)
	}
	if _, err := e.user.UpdateProfile(ctx, "nobody", ProfileChanges{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
	if _, err := e.user.Profile(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}
