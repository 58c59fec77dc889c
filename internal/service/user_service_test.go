package service

import (
	"context"
	"errors"
	"testing"

	dom "github.com/middle0128/Aitravel/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func seedUser(t *testing.T, r *mockUserRepo, email, name, password string) int64 {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	r.nextID++
	r.Users[email] = dom.User{ID: r.nextID, Email: email, DisplayName: name, PasswordHash: string(hash)}
	return r.nextID
}

func TestUserServiceValidateCredentials(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a correct password When validated Then the user is returned", func(t *testing.T) {
		r := newMockUserRepo()
		seedUser(t, r, "ops@example.com", "王小明", "secret1")
		svc := NewUserService(r)

		u, err := svc.ValidateCredentials(ctx, "ops@example.com", "secret1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.DisplayName != "王小明" {
			t.Errorf("display name = %q", u.DisplayName)
		}
	})

	t.Run("Given mixed-case email input When validated Then lookup is normalized", func(t *testing.T) {
		r := newMockUserRepo()
		seedUser(t, r, "ops@example.com", "王小明", "secret1")
		svc := NewUserService(r)

		if _, err := svc.ValidateCredentials(ctx, "  OPS@Example.COM ", "secret1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Given a wrong password When validated Then ErrInvalidCredentials", func(t *testing.T) {
		r := newMockUserRepo()
		seedUser(t, r, "ops@example.com", "王小明", "secret1")
		svc := NewUserService(r)

		if _, err := svc.ValidateCredentials(ctx, "ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("Given an unknown email When validated Then ErrInvalidCredentials", func(t *testing.T) {
		svc := NewUserService(newMockUserRepo())
		if _, err := svc.ValidateCredentials(ctx, "nobody@example.com", "x"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("err = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestUserServiceRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a short password When registering Then ErrPasswordTooShort", func(t *testing.T) {
		svc := NewUserService(newMockUserRepo())
		if _, err := svc.Register(ctx, "new@example.com", "新人", "abc"); !errors.Is(err, ErrPasswordTooShort) {
			t.Fatalf("err = %v, want ErrPasswordTooShort", err)
		}
	})

	t.Run("Given a taken email When registering Then ErrEmailTaken", func(t *testing.T) {
		r := newMockUserRepo()
		seedUser(t, r, "ops@example.com", "王小明", "secret1")
		svc := NewUserService(r)

		if _, err := svc.Register(ctx, "ops@example.com", "重複", "secret1"); !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("err = %v, want ErrEmailTaken", err)
		}
	})

	t.Run("Given a fresh email When registering Then the hash is stored, not the password", func(t *testing.T) {
		r := newMockUserRepo()
		svc := NewUserService(r)

		u, err := svc.Register(ctx, "new@example.com", "新人", "secret1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored := r.Users["new@example.com"]
		if stored.PasswordHash == "secret1" || stored.PasswordHash == "" {
			t.Errorf("password stored in the clear or missing: %q", stored.PasswordHash)
		}
		if u.Email != "new@example.com" {
			t.Errorf("email = %q", u.Email)
		}
	})
}

func TestUserServiceUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Given a new display name When updated Then it is persisted", func(t *testing.T) {
		r := newMockUserRepo()
		id := seedUser(t, r, "ops@example.com", "王小明", "secret1")
		svc := NewUserService(r)

		u, err := svc.UpdateProfile(ctx, id, "王大明", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if u.DisplayName != "王大明" {
			t.Errorf("display name = %q", u.DisplayName)
		}
	})

	t.Run("Given no effective change When updated Then ErrNothingToUpdate", func(t *testing.T) {
		r := newMockUserRepo()
		id := seedUser(t, r, "ops@example.com", "王小明", "secret1")
		svc := NewUserService(r)

		if _, err := svc.UpdateProfile(ctx, id, "王小明", ""); !errors.Is(err, ErrNothingToUpdate) {
			t.Fatalf("err = %v, want ErrNothingToUpdate", err)
		}
	})

	t.Run("Given a short new password When updated Then ErrPasswordTooShort", func(t *testing.T) {
		r := newMockUserRepo()
		id := seedUser(t, r, "ops@example.com", "王小明", "secret1")
		svc := NewUserService(r)

		if _, err := svc.UpdateProfile(ctx, id, "", "abc"); !errors.Is(err, ErrPasswordTooShort) {
			t.Fatalf("err = %v, want ErrPasswordTooShort", err)
		}
	})
}
