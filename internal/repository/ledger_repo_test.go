package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/testutil"
)

func newEntry(uid, orderID string, amount int64) *model.LedgerEntry {
	return &model.LedgerEntry{
		UID:      uid,
		TxnType:  model.TxnRecharge,
		Amount:   decimal.NewFromInt(amount),
		Currency: "CNY",
		Status:   model.LedgerStatusSuccess,
		OrderID:  orderID,
		Provider: model.ProviderManual,
		OpenID:   uid,
	}
}

func TestLedgerRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newEntry("u1", "RC-1", 10)))

	got, err := repo.GetByOrderID(ctx, "RC-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UID)
	assert.True(t, decimal.NewFromInt(10).Equal(got.Amount))
	assert.Nil(t, got.SubscriptionID)
}

func TestLedgerRepository_OrderIDUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newEntry("u1", "RC-dup", 10)))
	assert.Error(t, repo.Create(ctx, newEntry("u1", "RC-dup", 10)))
}

func TestLedgerRepository_ListByUID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewLedgerRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newEntry("u1", fmt.Sprintf("RC-%d", i), 10)))
	}
	require.NoError(t, repo.Create(ctx, newEntry("u2", "RC-other", 10)))

	entries, total, err := repo.ListByUID(ctx, "u1", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, entries, 3)
	assert.Equal(t, "RC-4", entries[0].OrderID)
}
