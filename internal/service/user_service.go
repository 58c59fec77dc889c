package service

import (
	"context"
	"errors"

	dom "github.com/middle0128/Aitravel/internal/domain"
	"github.com/middle0128/Aitravel/internal/repo"
	"github.com/middle0128/Aitravel/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrNothingToUpdate    = errors.New("nothing to update")
)

const minPasswordLen = 6

// UserService handles staff account logic.
type UserService struct {
	repo repo.UserRepo
}

// NewUserService returns a new UserService.
func NewUserService(repo repo.UserRepo) *UserService {
	return &UserService{repo: repo}
}

// ValidateCredentials checks email and password; returns the user if valid.
func (s *UserService) ValidateCredentials(ctx context.Context, email, password string) (dom.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrInvalidCredentials
		}
		return dom.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return dom.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Register creates a new staff account with a hashed password.
func (s *UserService) Register(ctx context.Context, email, displayName, password string) (dom.User, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return dom.User{}, ErrInvalidCredentials
	}
	if len(password) < minPasswordLen {
		return dom.User{}, ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dom.User{}, err
	}
	u, err := s.repo.Create(ctx, email, displayName, string(hash))
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return dom.User{}, ErrEmailTaken
		}
		return dom.User{}, err
	}
	return u, nil
}

// UpdateProfile changes the display name and/or password. Empty arguments
// mean "keep"; when neither changes anything, ErrNothingToUpdate is
// returned so the caller can skip the write.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, displayName, newPassword string) (dom.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.User{}, ErrNotFound
		}
		return dom.User{}, err
	}

	changed := false
	if displayName != "" && displayName != u.DisplayName {
		u.DisplayName = displayName
		changed = true
	}
	if newPassword != "" {
		if len(newPassword) < minPasswordLen {
			return dom.User{}, ErrPasswordTooShort
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return dom.User{}, err
		}
		u.PasswordHash = string(hash)
		changed = true
	}
	if !changed {
		return dom.User{}, ErrNothingToUpdate
	}
	return s.repo.Update(ctx, userID, u.DisplayName, u.PasswordHash)
}
