package user

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// DefaultMinPasswordLength is used when Config.MinPasswordLength is zero.
const DefaultMinPasswordLength = 7

// Config holds the password policy.
type Config struct {
	MinPasswordLength int
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// CreateRequest holds the input for registering a user.
type CreateRequest struct {
	Username        string
	Password        string
	ConfirmPassword string
}

// Service encapsulates user registration and credential checks.
type Service struct {
	users     Repository
	minLength int
	cost      int
}

// NewService creates a user Service.
func NewService(users Repository, cfg Config) *Service {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:     users,
		minLength: cfg.MinPasswordLength,
		cost:      cfg.BcryptCost,
	}
}

// Create validates the request, hashes the password and stores the user with
// an empty cart. Checks run in order: username, length (minimum runes, then
// maximum bytes), confirmation, uniqueness.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if n := utf8.RuneCountInString(req.Password); n < s.minLength {
		return nil, &PasswordTooShortError{Length: n, Min: s.minLength}
	}
	if n := len(req.Password); n > MaxPasswordBytes {
		return nil, &PasswordTooLongError{Length: n, Max: MaxPasswordBytes}
	}
	if req.Password != req.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	switch _, err := s.users.GetByUsername(ctx, username); {
	case err == nil:
		return nil, ErrUsernameTaken
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Authenticate returns the user when password matches the stored hash.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetByID returns the user with the given id.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByUsername returns the user with the given username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.users.GetByUsername(ctx, username)
}
