package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/repository"
	apperrors "github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

func newTestAuthService(users *fakeUserRepo) *AuthService {
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            bcrypt.MinCost,
	}}
	return NewAuthService(cfg, AuthDependencies{UserRepo: users})
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.IsCode(err, code) {
		t.Fatalf("err = %v, want code %s", err, code)
	}
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	users := &fakeUserRepo{}
	svc := newTestAuthService(users)

	user, token, exp, err := svc.RegisterUser(ctx, "al", "al@x.com", "pw")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.ID == 0 || user.Username != "al" || user.Email != "al@x.com" {
		t.Errorf("user = %+v", user)
	}
	if token == "" {
		t.Error("expected token")
	}
	if exp.Before(time.Now()) {
		t.Errorf("exp = %v should be in the future", exp)
	}
	if user.PasswordHash == "pw" || !strings.HasPrefix(user.PasswordHash, "$2") {
		t.Errorf("password should be stored as a bcrypt hash, got %q", user.PasswordHash)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}

	id, err := svc.TokenManager().ParseUserID(token)
	if err != nil || id != user.ID {
		t.Errorf("token subject = %d (%v), want %d", id, err, user.ID)
	}
}

func TestRegisterUserConflicts(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(&fakeUserRepo{})
	if _, _, _, err := svc.RegisterUser(ctx, "al", "al@x.com", "pw"); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, _, _, err := svc.RegisterUser(ctx, "al", "new@x.com", "pw")
	assertCode(t, err, apperrors.CodeConflict)
	if !strings.Contains(err.Error(), "username") {
		t.Errorf("username conflict message = %q", err.Error())
	}

	_, _, _, err = svc.RegisterUser(ctx, "bo", "al@x.com", "pw")
	assertCode(t, err, apperrors.CodeConflict)
	if !strings.Contains(err.Error(), "email") {
		t.Errorf("email conflict message = %q", err.Error())
	}
}

func TestRegisterUserRaceMapsToConflict(t *testing.T) {
	svc := newTestAuthService(&fakeUserRepo{createErr: repository.ErrDuplicate})
	_, _, _, err := svc.RegisterUser(context.Background(), "al", "al@x.com", "pw")
	assertCode(t, err, apperrors.CodeConflict)
}

func TestRegisterUserValidation(t *testing.T) {
	svc := newTestAuthService(&fakeUserRepo{})
	tests := []struct {
		name                      string
		username, email, password string
	}{
		{"missing username", "", "a@x.com", "pw"},
		{"blank username", "   ", "a@x.com", "pw"},
		{"missing email", "al", "", "pw"},
		{"missing password", "al", "a@x.com", ""},
		{"password too long", "al", "a@x.com", strings.Repeat("p", 73)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := svc.RegisterUser(context.Background(), tt.username, tt.email, tt.password)
			assertCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(&fakeUserRepo{})
	registered, _, _, err := svc.RegisterUser(ctx, "al", "al@x.com", "pw")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	for _, ident := range []string{"al", "al@x.com"} {
		user, token, _, err := svc.Authenticate(ctx, ident, "pw")
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", ident, err)
		}
		if user.ID != registered.ID || token == "" {
			t.Errorf("Authenticate(%q) = %+v, %q", ident, user, token)
		}
	}

	_, _, _, wrongPw := svc.Authenticate(ctx, "al", "wrong")
	_, _, _, unknown := svc.Authenticate(ctx, "nobody", "pw")
	assertCode(t, wrongPw, apperrors.CodeUnauthorized)
	assertCode(t, unknown, apperrors.CodeUnauthorized)
	if wrongPw.Error() != unknown.Error() {
		t.Errorf("wrong password (%q) and unknown user (%q) must be indistinguishable", wrongPw, unknown)
	}

	_, _, _, err = svc.Authenticate(ctx, "", "pw")
	assertCode(t, err, apperrors.CodeValidation)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(&fakeUserRepo{})
	registered, _, _, err := svc.RegisterUser(ctx, "al", "al@x.com", "pw")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	user, err := svc.GetProfile(ctx, registered.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if user.Username != "al" {
		t.Errorf("Username = %q", user.Username)
	}

	_, err = svc.GetProfile(ctx, registered.ID+100)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAuthServiceStorageFailureIsInternal(t *testing.T) {
	boom := errors.New("db down")
	svc := newTestAuthService(&fakeUserRepo{createErr: boom})
	_, _, _, err := svc.RegisterUser(context.Background(), "al", "al@x.com", "pw")
	assertCode(t, err, apperrors.CodeInternal)
	if !errors.Is(err, boom) {
		t.Errorf("internal error should wrap cause, got %v", err)
	}
}

func TestRegisterUserStoresValuesAsSent(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(&fakeUserRepo{})
	user, _, _, err := svc.RegisterUser(ctx, " al ", "al@x.com ", "pw")
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if user.Username != " al " || user.Email != "al@x.com " {
		t.Errorf("user = %q / %q, want values unchanged", user.Username, user.Email)
	}
	if _, _, _, err := svc.Authenticate(ctx, " al ", "pw"); err != nil {
		t.Errorf("Authenticate with the registered username: %v", err)
	}
}
