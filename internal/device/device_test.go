package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/models"
	"github.com/findosh/audioguide/internal/services/identity"
	"github.com/findosh/audioguide/internal/services/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noProvider struct{}

func (noProvider) SignInWithPassword(context.Context, string, string) (*identity.Grant, error) {
	return nil, identity.ErrInvalidCredentials
}

func (noProvider) SignUp(context.Context, string, string, map[string]any) (*identity.Grant, error) {
	return nil, identity.ErrEmailExists
}

func (noProvider) SignOut(context.Context, string) error { return nil }

func newTestRegistry(store kv.Store) *Registry {
	return NewRegistry(Options{
		Store:     store,
		Provider:  noProvider{},
		DemoAdmin: session.DemoAdmin{Enabled: true, Email: "admin@audioguide.com", Password: "admin123"},
	})
}

func load(t *testing.T, reg *Registry, id string) *Device {
	t.Helper()
	d, err := reg.Get(context.Background(), id)
	require.NoError(t, err)
	return d
}

// contextStore fails reads once the caller's context is done, like the sqlite
// and redis drivers.
type contextStore struct {
	kv.Store
	failures int
}

func (s *contextStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("database is locked")
	}
	return s.Store.Get(ctx, key)
}

func TestRegistry_DevicesAreIsolated(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(kv.NewMemory())

	a := load(t, reg, "device-a")
	b := load(t, reg, "device-b")
	assert.Same(t, a, load(t, reg, "device-a"))
	assert.Equal(t, 2, reg.Len())

	_, err := a.Session.SignIn(ctx, "admin@audioguide.com", "admin123")
	require.NoError(t, err)
	require.NoError(t, a.Library.Add(ctx, models.PurchasedGuide{ID: "42"}))

	assert.NotNil(t, a.Session.CurrentUser(ctx))
	assert.Nil(t, b.Session.CurrentUser(ctx))
	assert.True(t, a.Gate.Allowed(42))
	assert.False(t, b.Gate.Allowed(42))
}

func TestRegistry_RehydratesAfterPrune(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(kv.NewMemory())
	now := time.Now()
	reg.now = func() time.Time { return now }

	d := load(t, reg, "device-a")
	assert.True(t, d.Session.Resolved())
	_, err := d.Session.SignIn(ctx, "admin@audioguide.com", "admin123")
	require.NoError(t, err)
	require.NoError(t, d.Library.Add(ctx, models.PurchasedGuide{ID: "7"}))

	assert.Equal(t, 0, reg.Prune(time.Minute))

	reg.now = func() time.Time { return now.Add(2 * time.Minute) }
	assert.Equal(t, 1, reg.Prune(time.Minute))
	assert.Equal(t, 0, reg.Len())

	again := load(t, reg, "device-a")
	assert.NotSame(t, d, again)
	assert.True(t, again.Session.IsAdmin(ctx))
	assert.True(t, again.Library.IsPurchased(7))
}

func TestRegistry_SignOutCascade(t *testing.T) {
	ctx := context.Background()
	reg := newTestRegistry(kv.NewMemory())
	d := load(t, reg, "device-a")

	_, err := d.Session.SignIn(ctx, "admin@audioguide.com", "admin123")
	require.NoError(t, err)
	require.NoError(t, d.Library.Add(ctx, models.PurchasedGuide{ID: "7"}))

	require.NoError(t, d.Session.SignOut(ctx))
	assert.Equal(t, 0, d.Library.Len())
	assert.False(t, d.Gate.Allowed(7))
}

func TestRegistry_LoadIgnoresRequestCancellation(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	first := newTestRegistry(mem)
	d := load(t, first, "device-a")
	require.NoError(t, d.Library.Add(ctx, models.PurchasedGuide{ID: "7"}))

	reg := newTestRegistry(&contextStore{Store: mem})
	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	again, err := reg.Get(cancelled, "device-a")
	require.NoError(t, err)
	assert.True(t, again.Session.Resolved())
	assert.True(t, again.Library.IsPurchased(7))
}

func TestRegistry_FailedLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	d := load(t, newTestRegistry(mem), "device-a")
	require.NoError(t, d.Library.Add(ctx, models.PurchasedGuide{ID: "1"}))
	require.NoError(t, d.Library.Add(ctx, models.PurchasedGuide{ID: "2"}))

	reg := newTestRegistry(&contextStore{Store: mem, failures: 1})
	_, err := reg.Get(ctx, "device-a")
	require.Error(t, err)
	assert.Equal(t, 0, reg.Len())

	again := load(t, reg, "device-a")
	require.NoError(t, again.Library.Add(ctx, models.PurchasedGuide{ID: "3"}))
	assert.Equal(t, 3, again.Library.Len())
	assert.True(t, again.Library.IsPurchased(1))
}

func TestRegistry_ConcurrentGetsShareOneDevice(t *testing.T) {
	reg := newTestRegistry(kv.NewMemory())

	var wg sync.WaitGroup
	devices := make([]*Device, 8)
	for i := range devices {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := reg.Get(context.Background(), "device-a")
			if err == nil {
				devices[i] = d
			}
		}(i)
	}
	wg.Wait()

	require.NotNil(t, devices[0])
	for _, d := range devices {
		assert.Same(t, devices[0], d)
	}
	assert.Equal(t, 1, reg.Len())
}
