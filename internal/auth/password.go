// Package auth handles password hashing for database users
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 8

// DefaultCost is the bcrypt cost used when none is configured
const DefaultCost = 12

var (
	ErrInvalidPassword  = errors.New("invalid username or password")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = errors.New("password exceeds maximum length of 72 bytes")
)

// HashPassword creates a bcrypt hash of the password.
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	// bcrypt has a 72-byte limit
	if len(password) > 72 {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return err
	}
	return nil
}

// UserStore is the part of the user repository auth needs
type UserStore interface {
	CreateUser(ctx context.Context, u entities.User) (int64, error)
	GetUserByUsername(ctx context.Context, username string) (*entities.User, error)
}

// Register hashes password and stores a new user
func Register(ctx context.Context, store UserStore, u entities.User, password string, cost int) (int64, error) {
	hash, err := HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	u.PasswordHash = hash
	return store.CreateUser(ctx, u)
}

// Authenticate returns the user when username and password match.
// Unknown users and wrong passwords both yield ErrInvalidPassword.
func Authenticate(ctx context.Context, store UserStore, username, password string) (*entities.User, error) {
	u, err := store.GetUserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidPassword
	}
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(password, u.PasswordHash); err != nil {
		return nil, err
	}
	return u, nil
}
