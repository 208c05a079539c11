package services

import (
	"context"
	"testing"

	"github.com/File-Sharing-BondBridg/Drive-Service/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotaLedgerUsage(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.seed(owner, 100, 1000)
	ledger := NewQuotaLedger(accounts)

	u, err := ledger.Usage(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.StorageUsed)
	assert.Equal(t, int64(1000), u.StorageLimit)

	_, err = ledger.Usage(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestQuotaLedgerCheckAdmission(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.seed(owner, 900, 1000)
	ledger := NewQuotaLedger(accounts)
	ctx := context.Background()

	assert.NoError(t, ledger.CheckAdmission(ctx, owner, 100))

	err := ledger.CheckAdmission(ctx, owner, 101)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindQuotaExceeded))
}

func TestQuotaLedgerGuardedDecrement(t *testing.T) {
	accounts := newFakeAccountStore()
	accounts.seed(owner, 100, 1000)
	ledger := NewQuotaLedger(accounts)
	ctx := context.Background()

	require.NoError(t, ledger.GuardedDecrement(ctx, owner, 60))
	u, err := ledger.Usage(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(40), u.StorageUsed)

	// The guard refuses to take the counter negative.
	err = ledger.GuardedDecrement(ctx, owner, 41)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindInconsistentState))
	u, err = ledger.Usage(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(40), u.StorageUsed)

	// Zero is a no-op, not a guard trip.
	assert.NoError(t, ledger.GuardedDecrement(ctx, owner, 0))
}
