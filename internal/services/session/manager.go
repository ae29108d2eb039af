// Package session manages the authenticated identity of one device: sign-in,
// sign-up, sign-out, expiry and persistence across restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/models"
	"github.com/findosh/audioguide/internal/services/identity"
	"go.uber.org/zap"
)

const (
	storageKey = "auth"

	// DemoAdminID is the user ID of the fabricated demo administrator
	DemoAdminID = "demo-admin"

	DefaultDuration = 24 * time.Hour
)

// Clearer is device state wiped on sign-out
type Clearer interface {
	Clear(ctx context.Context) error
}

// DemoAdmin configures the credential pair that signs in as an administrator
// without calling the identity provider
type DemoAdmin struct {
	Enabled  bool
	Email    string
	Password string
}

func (d DemoAdmin) matches(email, password string) bool {
	return d.Enabled && d.Email != "" &&
		strings.TrimSpace(email) == d.Email && password == d.Password
}

// Options configures a Manager
type Options struct {
	Provider   identity.Provider
	Store      kv.Store
	Duration   time.Duration
	AdminEmail string
	DemoAdmin  DemoAdmin
	Logger     *zap.Logger
}

// Manager owns the session of one device
type Manager struct {
	provider   identity.Provider
	store      kv.Store
	duration   time.Duration
	adminEmail string
	demo       DemoAdmin
	log        *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	current  *models.Session
	resolved bool
	seq      uint64
	cascade  []Clearer
}

// NewManager creates a manager. Call Initialize before serving guarded routes.
func NewManager(opts Options) *Manager {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		provider:   opts.Provider,
		store:      opts.Store,
		duration:   opts.Duration,
		adminEmail: opts.AdminEmail,
		demo:       opts.DemoAdmin,
		log:        opts.Logger,
		now:        time.Now,
	}
}

// OnSignOut registers state to clear when the device signs out
func (m *Manager) OnSignOut(c ...Clearer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cascade = append(m.cascade, c...)
}

// Initialize hydrates the session from storage once. A failed read leaves
// the manager unresolved.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resolved {
		return nil
	}
	current, err := m.load(ctx)
	if err != nil {
		return err
	}
	m.current = current
	m.resolved = true
	return nil
}

// Resolved reports whether the initial hydration has completed
func (m *Manager) Resolved() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved
}

// SignIn authenticates with email and password and establishes a session
func (m *Manager) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	seq := m.begin()

	if m.demo.matches(email, password) {
		user := &models.User{
			ID:       DemoAdminID,
			Email:    strings.TrimSpace(email),
			Metadata: map[string]any{"role": models.RoleAdmin},
		}
		return m.commit(ctx, seq, user, "")
	}

	grant, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.log.Info("sign-in failed", zap.String("email", email), zap.Error(err))
		return nil, classify(err)
	}
	return m.commit(ctx, seq, grant.User, grant.AccessToken)
}

// SignUp creates an account with profile metadata and establishes a session
func (m *Manager) SignUp(ctx context.Context, email, password string, profile map[string]any) (*models.User, error) {
	seq := m.begin()

	grant, err := m.provider.SignUp(ctx, email, password, profile)
	if err != nil {
		m.log.Info("sign-up failed", zap.String("email", email), zap.Error(err))
		return nil, classify(err)
	}
	return m.commit(ctx, seq, grant.User, grant.AccessToken)
}

// SignOut destroys the session and clears the registered device state. Local
// state is always cleared; a provider error is returned afterwards.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.seq++
	prev := m.current
	if prev == nil {
		prev, _ = m.load(ctx)
	}
	m.current = nil
	m.resolved = true
	if err := m.store.Delete(ctx, storageKey); err != nil {
		m.log.Warn("failed to delete persisted session", zap.Error(err))
	}
	cascade := append([]Clearer(nil), m.cascade...)
	m.mu.Unlock()

	for _, c := range cascade {
		if err := c.Clear(ctx); err != nil {
			m.log.Warn("failed to clear device state on sign-out", zap.Error(err))
		}
	}

	if prev == nil || prev.AccessToken == "" {
		return nil
	}
	if err := m.provider.SignOut(ctx, prev.AccessToken); err != nil {
		m.log.Warn("provider sign-out failed", zap.Error(err))
		return &Error{Kind: KindProvider, Err: err}
	}
	return nil
}

// Session returns a copy of the active session, or nil
func (m *Manager) Session(ctx context.Context) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		current, err := m.load(ctx)
		if err != nil {
			m.log.Warn("failed to read persisted session", zap.Error(err))
		}
		m.current = current
	}
	if m.current == nil {
		return nil
	}
	if m.current.IsExpired(m.now()) {
		m.current = nil
		if err := m.store.Delete(ctx, storageKey); err != nil {
			m.log.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil
	}

	s := *m.current
	return &s
}

// CurrentUser returns the signed-in user, or nil when there is no valid session
func (m *Manager) CurrentUser(ctx context.Context) *models.User {
	s := m.Session(ctx)
	if s == nil {
		return nil
	}
	return s.User
}

// IsAdmin reports whether the current user carries the admin role or is the
// configured administrator address
func (m *Manager) IsAdmin(ctx context.Context) bool {
	user := m.CurrentUser(ctx)
	if user == nil {
		return false
	}
	if user.Role() == models.RoleAdmin {
		return true
	}
	return m.adminEmail != "" && strings.EqualFold(user.Email, m.adminEmail)
}

func (m *Manager) begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq
}

func (m *Manager) commit(ctx context.Context, seq uint64, user *models.User, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.seq {
		return nil, &Error{Kind: KindSuperseded, Err: ErrSuperseded}
	}

	s := &models.Session{
		User:        user,
		ExpiresAt:   m.now().Add(m.duration),
		AccessToken: token,
	}
	m.current = s
	m.resolved = true

	if err := m.save(ctx, s); err != nil {
		m.log.Warn("failed to persist session", zap.Error(err))
	}
	m.log.Info("session established", zap.String("user_id", user.ID), zap.Time("expires_at", s.ExpiresAt))
	return user, nil
}

type persisted struct {
	User        *models.User `json:"user"`
	ExpiresAt   int64        `json:"expiresAt"`
	AccessToken string       `json:"accessToken,omitempty"`
}

func (m *Manager) save(ctx context.Context, s *models.Session) error {
	b, err := json.Marshal(persisted{
		User:        s.User,
		ExpiresAt:   s.ExpiresAt.UnixMilli(),
		AccessToken: s.AccessToken,
	})
	if err != nil {
		return err
	}
	return m.store.Set(ctx, storageKey, b)
}

// load reads the persisted session. Missing, malformed and expired records all
// yield nil; the latter two are removed.
func (m *Manager) load(ctx context.Context) (*models.Session, error) {
	b, err := m.store.Get(ctx, storageKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var p persisted
	if err := json.Unmarshal(b, &p); err != nil || p.User == nil {
		m.log.Warn("discarding malformed persisted session", zap.Error(err))
		m.discard(ctx)
		return nil, nil
	}

	s := &models.Session{
		User:        p.User,
		ExpiresAt:   time.UnixMilli(p.ExpiresAt),
		AccessToken: p.AccessToken,
	}
	if s.IsExpired(m.now()) {
		m.discard(ctx)
		return nil, nil
	}
	return s, nil
}

func (m *Manager) discard(ctx context.Context) {
	if err := m.store.Delete(ctx, storageKey); err != nil {
		m.log.Warn("failed to delete persisted session", zap.Error(err))
	}
}
