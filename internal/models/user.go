// Package models defines core domain types
package models

import (
	"time"
)

// RoleAdmin is the role claim carried in user metadata for administrators
const RoleAdmin = "admin"

// User is the identity record returned by the identity provider
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"-"` // Never serialize to JSON
	Metadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
}

// Role returns the role claim from the user metadata, or "" when absent
func (u *User) Role() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	role, _ := u.Metadata["role"].(string)
	return role
}

// Session is the authenticated identity of one device plus its validity window
type Session struct {
	User        *User     `json:"user"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessToken string    `json:"access_token,omitempty"`
}

// IsExpired reports whether the session is no longer valid at now
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
