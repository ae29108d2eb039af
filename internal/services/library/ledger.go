// Package library holds the purchase ledger: the device-local record of which
// guides have been unlocked.
package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/models"
	"go.uber.org/zap"
)

const storageKey = "library"

// ErrInvalidID is returned when a guide has no identifier
var ErrInvalidID = errors.New("guide id is required")

// Ledger is a set of purchased guides keyed by guide ID. Every mutation is
// written through to the store.
type Ledger struct {
	store kv.Store
	log   *zap.Logger

	mu     sync.RWMutex
	guides []models.PurchasedGuide
}

type snapshot struct {
	State struct {
		PurchasedGuides []models.PurchasedGuide `json:"purchasedGuides"`
	} `json:"state"`
	Version int `json:"version"`
}

// NewLedger creates a ledger rehydrated from store. A missing or malformed
// record yields an empty ledger; a failed read is returned so that a later
// write cannot replace purchases that were never loaded.
func NewLedger(ctx context.Context, store kv.Store, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Ledger{store: store, log: log, guides: []models.PurchasedGuide{}}

	b, err := store.Get(ctx, storageKey)
	switch {
	case errors.Is(err, kv.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to read library: %w", err)
	default:
		var s snapshot
		if err := json.Unmarshal(b, &s); err != nil {
			log.Warn("discarding malformed library", zap.Error(err))
			break
		}
		for _, g := range s.State.PurchasedGuides {
			if g.ID != "" && indexOf(l.guides, g.ID) < 0 {
				l.guides = append(l.guides, g)
			}
		}
	}
	return l, nil
}

// Add records a purchase. Adding a guide that is already present is a no-op.
func (l *Ledger) Add(ctx context.Context, guide models.PurchasedGuide) error {
	if guide.ID == "" {
		return ErrInvalidID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if indexOf(l.guides, guide.ID) >= 0 {
		return nil
	}

	next := make([]models.PurchasedGuide, len(l.guides), len(l.guides)+1)
	copy(next, l.guides)
	next = append(next, guide)
	return l.commit(ctx, next)
}

// Remove deletes a purchase. Removing an absent guide is a no-op.
func (l *Ledger) Remove(ctx context.Context, id any) error {
	gid := models.GuideIDOf(id)

	l.mu.Lock()
	defer l.mu.Unlock()

	i := indexOf(l.guides, gid)
	if i < 0 {
		return nil
	}

	next := make([]models.PurchasedGuide, 0, len(l.guides)-1)
	next = append(next, l.guides[:i]...)
	next = append(next, l.guides[i+1:]...)
	return l.commit(ctx, next)
}

// IsPurchased reports whether id is in the ledger. Numeric and string forms
// of the same identifier match.
func (l *Ledger) IsPurchased(id any) bool {
	gid := models.GuideIDOf(id)
	if gid == "" {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return indexOf(l.guides, gid) >= 0
}

// Clear empties the ledger. The in-memory ledger is emptied even when
// persisting fails. When the record cannot be deleted it is overwritten with
// an empty one instead.
func (l *Ledger) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.guides = []models.PurchasedGuide{}
	err := l.store.Delete(ctx, storageKey)
	if err == nil {
		return nil
	}
	l.log.Warn("failed to delete library, writing empty record", zap.Error(err))
	if err := l.persist(ctx, l.guides); err != nil {
		return fmt.Errorf("failed to clear library: %w", err)
	}
	return nil
}

// Guides returns the purchased guides in purchase order
func (l *Ledger) Guides() []models.PurchasedGuide {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.PurchasedGuide, len(l.guides))
	copy(out, l.guides)
	return out
}

// Len returns the number of purchased guides
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.guides)
}

func (l *Ledger) commit(ctx context.Context, next []models.PurchasedGuide) error {
	if err := l.persist(ctx, next); err != nil {
		return err
	}
	l.guides = next
	return nil
}

func (l *Ledger) persist(ctx context.Context, guides []models.PurchasedGuide) error {
	var s snapshot
	s.State.PurchasedGuides = guides

	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}
	if err := l.store.Set(ctx, storageKey, b); err != nil {
		return fmt.Errorf("failed to persist library: %w", err)
	}
	return nil
}

func indexOf(guides []models.PurchasedGuide, id models.GuideID) int {
	for i, g := range guides {
		if g.ID == id {
			return i
		}
	}
	return -1
}
