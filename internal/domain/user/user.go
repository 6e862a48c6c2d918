package user

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for user lookup, registration and login.
var (
	ErrNotFound           = errors.New("user not found")
	ErrUsernameRequired   = errors.New("username required")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrPasswordMismatch   = errors.New("password not confirmed")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// PasswordTooShortError indicates a password below the configured minimum length.
type PasswordTooShortError struct {
	Length int
	Min    int
}

func (e *PasswordTooShortError) Error() string {
	return fmt.Sprintf("password less than minimum length: %d < %d", e.Length, e.Min)
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordTooLongError indicates a password bcrypt cannot hash.
type PasswordTooLongError struct {
	Length int
	Max    int
}

func (e *PasswordTooLongError) Error() string {
	return fmt.Sprintf("password exceeds maximum length: %d > %d bytes", e.Length, e.Max)
}

// User is a registered shop customer. PasswordHash holds the bcrypt hash and
// must never leave the service boundary.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CartID       int64
}

// Ref returns the public identity of the user.
func (u *User) Ref() Ref {
	return Ref{ID: u.ID, Username: u.Username}
}

// Ref is the public identity of a user as embedded in carts and orders.
type Ref struct {
	ID       int64
	Username string
}

// Repository defines persistence operations for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	// Create persists u together with a new empty cart and fills in the
	// generated IDs. Returns ErrUsernameTaken on a unique violation.
	Create(ctx context.Context, u *User) error
}
