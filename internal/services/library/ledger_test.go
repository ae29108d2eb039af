package library

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	kv.Store
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

type flakyStore struct {
	kv.Store
	getFailures int
	deleteErr   error
}

func (s *flakyStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.getFailures > 0 {
		s.getFailures--
		return nil, errors.New("connection reset")
	}
	return s.Store.Get(ctx, key)
}

func (s *flakyStore) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.Store.Delete(ctx, key)
}

func newLedger(t *testing.T, store kv.Store) *Ledger {
	t.Helper()
	l, err := NewLedger(context.Background(), store, nil)
	require.NoError(t, err)
	return l
}

func TestLedger_AddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, kv.NewMemory())

	guide := models.PurchasedGuide{ID: "7", Title: "Florence Duomo"}
	require.NoError(t, l.Add(ctx, guide))
	require.NoError(t, l.Add(ctx, guide))

	assert.Equal(t, 1, l.Len())
}

func TestLedger_RemoveTwice(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, kv.NewMemory())

	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "7"}))
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "7"}))
	assert.Equal(t, 1, l.Len())

	require.NoError(t, l.Remove(ctx, "7"))
	assert.Equal(t, 0, l.Len())

	require.NoError(t, l.Remove(ctx, "7"))
	assert.Equal(t, 0, l.Len())
}

func TestLedger_CrossTypeMembership(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, kv.NewMemory())

	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: models.GuideIDOf("42"), Title: "Rome Walk"}))
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: models.GuideIDOf(9)}))

	assert.True(t, l.IsPurchased(42))
	assert.True(t, l.IsPurchased(int64(42)))
	assert.True(t, l.IsPurchased(42.0))
	assert.True(t, l.IsPurchased("42"))
	assert.True(t, l.IsPurchased("9"))
	assert.False(t, l.IsPurchased(43))
	assert.False(t, l.IsPurchased(""))
	assert.False(t, l.IsPurchased(nil))

	require.NoError(t, l.Remove(ctx, 42))
	assert.False(t, l.IsPurchased("42"))
}

func TestLedger_AddRequiresID(t *testing.T) {
	l := newLedger(t, kv.NewMemory())
	assert.ErrorIs(t, l.Add(context.Background(), models.PurchasedGuide{Title: "x"}), ErrInvalidID)
}

func TestLedger_PersistsAndRehydrates(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	l := newLedger(t, store)
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "1", Title: "Venice by Night", City: "Venice"}))
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "2", Title: "Rome Walk", City: "Rome"}))

	raw, err := store.Get(ctx, "library")
	require.NoError(t, err)

	var doc struct {
		State struct {
			PurchasedGuides []map[string]any `json:"purchasedGuides"`
		} `json:"state"`
		Version int `json:"version"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 0, doc.Version)
	require.Len(t, doc.State.PurchasedGuides, 2)
	assert.Equal(t, "1", doc.State.PurchasedGuides[0]["id"])

	again := newLedger(t, store)
	assert.Equal(t, 2, again.Len())
	assert.True(t, again.IsPurchased(2))
	assert.Equal(t, "Venice by Night", again.Guides()[0].Title)
}

func TestLedger_RehydratesNumericIDs(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, "library",
		[]byte(`{"state":{"purchasedGuides":[{"id":42,"title":"Rome Walk"},{"id":"42"}]},"version":0}`)))

	l := newLedger(t, store)
	assert.Equal(t, 1, l.Len())
	assert.True(t, l.IsPurchased("42"))
}

func TestLedger_MalformedRecordIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, "library", []byte(`{not json`)))

	l := newLedger(t, store)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_Clear(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	l := newLedger(t, store)

	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "1"}))
	require.NoError(t, l.Clear(ctx))

	assert.Equal(t, 0, l.Len())
	_, err := store.Get(ctx, "library")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	assert.Equal(t, 0, newLedger(t, store).Len())
}

func TestLedger_FailedPersistLeavesLedgerUnchanged(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, failingStore{Store: kv.NewMemory()})

	err := l.Add(ctx, models.PurchasedGuide{ID: "1"})
	assert.Error(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestLedger_GuidesReturnsCopy(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, kv.NewMemory())
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "1", Title: "a"}))

	guides := l.Guides()
	guides[0].Title = "changed"
	assert.Equal(t, "a", l.Guides()[0].Title)
}

func TestLedger_FailedReadKeepsStoredPurchases(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	l := newLedger(t, mem)
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "1"}))
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "2"}))

	store := &flakyStore{Store: mem, getFailures: 1}
	_, err := NewLedger(ctx, store, nil)
	require.Error(t, err)

	retry := newLedger(t, store)
	require.NoError(t, retry.Add(ctx, models.PurchasedGuide{ID: "3"}))

	reloaded := newLedger(t, mem)
	assert.Equal(t, 3, reloaded.Len())
	assert.True(t, reloaded.IsPurchased(1))
	assert.True(t, reloaded.IsPurchased(2))
	assert.True(t, reloaded.IsPurchased(3))
}

func TestLedger_ClearOverwritesWhenDeleteFails(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	store := &flakyStore{Store: mem, deleteErr: errors.New("read-only replica")}

	l := newLedger(t, store)
	require.NoError(t, l.Add(ctx, models.PurchasedGuide{ID: "1"}))
	require.NoError(t, l.Clear(ctx))
	assert.Equal(t, 0, l.Len())

	assert.Equal(t, 0, newLedger(t, mem).Len())
}
