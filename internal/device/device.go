// Package device keeps the per-device state: session, purchase ledger,
// entitlement gate and local media, all persisted under the device's
// key-value namespace.
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/services/entitlement"
	"github.com/findosh/audioguide/internal/services/identity"
	"github.com/findosh/audioguide/internal/services/library"
	"github.com/findosh/audioguide/internal/services/media"
	"github.com/findosh/audioguide/internal/services/session"
	"go.uber.org/zap"
)

// Device is the state owned by one browser profile
type Device struct {
	ID      string
	Store   kv.Store
	Session *session.Manager
	Library *library.Ledger
	Gate    *entitlement.Gate
	Media   *media.Service

	lastSeen time.Time
}

// Options configures how devices are created
type Options struct {
	Store            kv.Store
	Provider         identity.Provider
	SessionDuration  time.Duration
	AdminEmail       string
	DemoAdmin        session.DemoAdmin
	PublicStorageURL string
	// MediaStorage returns the object storage for a new device. Drivers that
	// keep objects in memory return a fresh store per call.
	MediaStorage func() media.ObjectStorage
	Logger       *zap.Logger
}

// Registry creates devices on first use and keeps them in memory
type Registry struct {
	opts Options
	now  func() time.Time

	mu      sync.Mutex
	devices map[string]*Device
	loading map[string]*pendingLoad
}

type pendingLoad struct {
	done   chan struct{}
	device *Device
	err    error
}

func NewRegistry(opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MediaStorage == nil {
		opts.MediaStorage = func() media.ObjectStorage { return media.NewDataURIStore() }
	}
	return &Registry{
		opts:    opts,
		now:     time.Now,
		devices: make(map[string]*Device),
		loading: make(map[string]*pendingLoad),
	}
}

// Get returns the device with id, hydrating it from storage when it is not
// already loaded. Concurrent requests for the same device share one load. A
// device whose load failed is not kept, so the next request retries.
func (r *Registry) Get(ctx context.Context, id string) (*Device, error) {
	r.mu.Lock()
	if d, ok := r.devices[id]; ok {
		d.lastSeen = r.now()
		r.mu.Unlock()
		return d, nil
	}
	if p, ok := r.loading[id]; ok {
		r.mu.Unlock()
		select {
		case <-p.done:
			return p.device, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p := &pendingLoad{done: make(chan struct{})}
	r.loading[id] = p
	r.mu.Unlock()

	// The load outlives the request that triggered it.
	p.device, p.err = r.create(context.WithoutCancel(ctx), id)

	r.mu.Lock()
	delete(r.loading, id)
	if p.err == nil {
		p.device.lastSeen = r.now()
		r.devices[id] = p.device
	}
	r.mu.Unlock()
	close(p.done)

	return p.device, p.err
}

func (r *Registry) create(ctx context.Context, id string) (*Device, error) {
	log := r.opts.Logger.With(zap.String("device_id", id))
	store := kv.WithPrefix(r.opts.Store, "device:"+id+":")

	ledger, err := library.NewLedger(ctx, store, log)
	if err != nil {
		log.Warn("failed to load device", zap.Error(err))
		return nil, fmt.Errorf("load device %s: %w", id, err)
	}
	mediaSvc := media.NewService(r.opts.MediaStorage(), r.opts.PublicStorageURL, log)

	sess := session.NewManager(session.Options{
		Provider:   r.opts.Provider,
		Store:      store,
		Duration:   r.opts.SessionDuration,
		AdminEmail: r.opts.AdminEmail,
		DemoAdmin:  r.opts.DemoAdmin,
		Logger:     log,
	})
	sess.OnSignOut(ledger, mediaSvc)
	if err := sess.Initialize(ctx); err != nil {
		log.Warn("failed to load device", zap.Error(err))
		return nil, fmt.Errorf("load device %s: %w", id, err)
	}

	log.Debug("device loaded", zap.Int("purchased_guides", ledger.Len()))

	return &Device{
		ID:      id,
		Store:   store,
		Session: sess,
		Library: ledger,
		Gate:    entitlement.NewGate(ledger),
		Media:   mediaSvc,
	}, nil
}

// Len returns the number of loaded devices
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Prune unloads devices idle for longer than idle. Persisted state survives
// and is rehydrated on the next request.
func (r *Registry) Prune(idle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	n := 0
	for id, d := range r.devices {
		if d.lastSeen.Before(cutoff) {
			delete(r.devices, id)
			n++
		}
	}
	return n
}

// PruneLoop calls Prune every interval until ctx is done
func (r *Registry) PruneLoop(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Prune(idle); n > 0 {
				r.opts.Logger.Debug("unloaded idle devices", zap.Int("count", n))
			}
		}
	}
}
