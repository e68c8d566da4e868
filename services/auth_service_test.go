package services

import (
	"context"
	"errors"
	"testing"

	"github.com/arenapool/wager-system/models"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.auth.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Role != models.RoleParticipant {
		t.Fatalf("expected participant role, got %q", user.Role)
	}
	if user.Balance != 0 {
		t.Fatalf("expected zero starting balance, got %d", user.Balance)
	}
	if user.PasswordHash != "" {
		t.Fatal("password hash must not leak out of the service")
	}

	logged, err := env.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "correct horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, logged.ID)
	}
}

func TestRegisterRejections(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "short"}); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	if _, err := env.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "long enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := env.auth.Register(ctx, RegisterInput{Email: "bob@example.com", Password: "long enough"}); !errors.Is(err, ErrAuthEmailTaken) {
		t.Fatalf("expected ErrAuthEmailTaken, got %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.auth.Register(ctx, RegisterInput{Email: "carol@example.com", Password: "long enough"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := env.auth.Login(ctx, LoginInput{Email: "carol@example.com", Password: "wrong password"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Fatalf("expected ErrAuthInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := env.auth.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "long enough"}); !errors.Is(err, ErrAuthInvalidCredentials) {
		t.Fatalf("expected ErrAuthInvalidCredentials for unknown email, got %v", err)
	}
}

func TestEnsureAuthorityIsIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first, err := env.auth.EnsureAuthority(ctx, "admin@example.com", "service password")
	if err != nil {
		t.Fatalf("ensure authority: %v", err)
	}
	if first.Role != models.RoleAuthority {
		t.Fatalf("expected authority role, got %q", first.Role)
	}

	second, err := env.auth.EnsureAuthority(ctx, "admin@example.com", "service password")
	if err != nil {
		t.Fatalf("repeated ensure authority: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same account %d, got %d", first.ID, second.ID)
	}
}
