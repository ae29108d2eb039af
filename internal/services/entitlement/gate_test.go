package entitlement

import (
	"context"
	"testing"

	"github.com/findosh/audioguide/internal/kv"
	"github.com/findosh/audioguide/internal/models"
	"github.com/findosh/audioguide/internal/services/library"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLedger(t *testing.T, store kv.Store) *library.Ledger {
	t.Helper()
	l, err := library.NewLedger(context.Background(), store, nil)
	require.NoError(t, err)
	return l
}

func TestGate_Check(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t, kv.NewMemory())
	gate := NewGate(ledger)

	assert.Equal(t, Deny, gate.Check(42))

	require.NoError(t, ledger.Add(ctx, models.PurchasedGuide{ID: "42"}))
	assert.Equal(t, Permit, gate.Check(42))
	assert.Equal(t, Permit, gate.Check("42"))
	assert.True(t, gate.Allowed(42))

	require.NoError(t, ledger.Clear(ctx))
	assert.Equal(t, Deny, gate.Check(42))
	assert.False(t, gate.Allowed("42"))
}

func TestGate_NilLedgerDenies(t *testing.T) {
	assert.Equal(t, Deny, NewGate(nil).Check(1))
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "permit", Permit.String())
	assert.Equal(t, "deny", Deny.String())
}
