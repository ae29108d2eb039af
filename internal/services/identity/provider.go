// Package identity provides the identity provider that verifies credentials
// and manages accounts on behalf of the session manager
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/findosh/audioguide/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already registered")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidToken       = errors.New("invalid token")
)

// Grant is the result of a successful sign-in or sign-up
type Grant struct {
	User        *models.User
	AccessToken string
	ExpiresAt   time.Time
}

// Provider is the external identity provider contract
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Grant, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Grant, error)
	SignOut(ctx context.Context, accessToken string) error
}
