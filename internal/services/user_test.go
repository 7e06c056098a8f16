package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"guestlist/internal/domain"
)

func newUserFixture() (*mockUserRepository, domain.UserService) {
	userRepo := newMockUserRepository()
	svc := NewUserService(userRepo, mockHasher{}, &mockTokenIssuer{token: "jwt-token"}, time.Hour, 2*time.Second)
	return userRepo, svc
}

func TestUserService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("success normalizes email", func(t *testing.T) {
		_, svc := newUserFixture()
		user, err := svc.SignUp(ctx, "  Ana@Example.COM ", "correct-horse", "Ana")
		if err != nil {
			t.Fatalf("SignUp: %v", err)
		}
		if user.Email != "ana@example.com" {
			t.Fatalf("email not normalized: %q", user.Email)
		}
		if user.PasswordHash == "" || user.Salt == "" {
			t.Fatal("expected hash and salt to be set")
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		_, svc := newUserFixture()
		if _, err := svc.SignUp(ctx, "not-an-email", "correct-horse", "Ana"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("short password", func(t *testing.T) {
		_, svc := newUserFixture()
		if _, err := svc.SignUp(ctx, "a@example.com", "short", "Ana"); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, svc := newUserFixture()
		if _, err := svc.SignUp(ctx, "a@example.com", "correct-horse", "Ana"); err != nil {
			t.Fatalf("first SignUp: %v", err)
		}
		if _, err := svc.SignUp(ctx, "a@example.com", "correct-horse", "Ana"); !errors.Is(err, domain.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		_, svc := newUserFixture()
		if _, err := svc.SignUp(ctx, "a@example.com", "correct-horse", "Ana"); err != nil {
			t.Fatalf("SignUp: %v", err)
		}
		token, user, err := svc.Login(ctx, "A@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if token != "jwt-token" || user.Email != "a@example.com" {
			t.Fatalf("unexpected result token=%q user=%+v", token, user)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, svc := newUserFixture()
		if _, err := svc.SignUp(ctx, "a@example.com", "correct-horse", "Ana"); err != nil {
			t.Fatalf("SignUp: %v", err)
		}
		if _, _, err := svc.Login(ctx, "a@example.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		_, svc := newUserFixture()
		if _, _, err := svc.Login(ctx, "ghost@example.com", "whatever"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}
