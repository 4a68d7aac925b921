package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/kanban-service/internal/auth"
	"github.com/spec-kit/kanban-service/internal/config"
	"github.com/spec-kit/kanban-service/internal/domain"
	"github.com/spec-kit/kanban-service/internal/repository"
	apperrors "github.com/spec-kit/kanban-service/pkg/util/errorutil"
)

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

// AuthService coordinates registration, login and profile lookups.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	// TokenManager overrides the manager built from configuration.
	TokenManager *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   tokens,
		bcryptCost: cfg.Auth.BcryptCost,
		now:        time.Now,
	}
}

// RegisterUser creates a new account and issues its first token. Username
// and email are stored as sent; whitespace-only values are rejected.
func (s *AuthService) RegisterUser(ctx context.Context, username, email, password string) (*domain.User, string, time.Time, error) {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("username, email, and password are required", nil)
	}
	if len(password) > maxPasswordBytes {
		return nil, "", time.Time{}, apperrors.NewValidationError("password must be at most 72 bytes", nil)
	}

	if err := s.ensureAvailable(ctx, s.users.GetByUsername, username, "username already exists"); err != nil {
		return nil, "", time.Time{}, err
	}
	if err := s.ensureAvailable(ctx, s.users.GetByEmail, email, "email already exists"); err != nil {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", time.Time{}, apperrors.NewConflict("username or email already exists", nil)
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// Authenticate verifies credentials. identifier may be a username or an email.
// Unknown accounts and wrong passwords produce the same error.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*domain.User, string, time.Time, error) {
	if identifier == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.users.GetByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, errInvalidCredentials()
		}
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, errInvalidCredentials()
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// GetProfile returns the account for userID.
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, apperrors.NewInternalError(err)
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) ensureAvailable(ctx context.Context, lookup func(context.Context, string) (*domain.User, error), value, conflictMsg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return apperrors.NewConflict(conflictMsg, nil)
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return apperrors.NewInternalError(err)
	}
}

func errInvalidCredentials() error {
	return apperrors.NewUnauthorized("invalid credentials")
}
