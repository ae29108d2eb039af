package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/findosh/audioguide/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserStore is the account storage used by LocalProvider
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// LocalProvider verifies credentials against the users table and issues
// signed access tokens
type LocalProvider struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewLocalProvider creates a provider backed by users
func NewLocalProvider(users UserStore, secret string, ttl time.Duration) *LocalProvider {
	return &LocalProvider{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignUp creates an account and signs it in
func (p *LocalProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Grant, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	exists, err := p.users.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Self-service sign-up never grants a role claim
	clean := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if k == "role" {
			continue
		}
		clean[k] = v
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		Metadata:     clean,
		CreatedAt:    p.now().UTC(),
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return p.grant(user)
}

// SignInWithPassword authenticates an existing account
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Grant, error) {
	user, err := p.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p.grant(user)
}

// SignOut verifies the access token. Tokens are stateless, so there is
// nothing to revoke server-side.
func (p *LocalProvider) SignOut(_ context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	_, err := p.Verify(accessToken)
	return err
}

// Verify checks an access token and returns the user ID it was issued to
func (p *LocalProvider) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return "", ErrInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrInvalidToken
	}
	return sub, nil
}

func (p *LocalProvider) grant(user *models.User) (*Grant, error) {
	now := p.now()
	expires := now.Add(p.ttl)

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   expires.Unix(),
		"iat":   now.Unix(),
		"jti":   generateJTI(),
	}
	if role := user.Role(); role != "" {
		claims["role"] = role
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	public := *user
	public.PasswordHash = ""

	return &Grant{User: &public, AccessToken: token, ExpiresAt: expires}, nil
}

func generateJTI() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
