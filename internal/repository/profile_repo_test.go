package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/aipara_account_server/internal/model"
	"github.com/qs3c/aipara_account_server/internal/testutil"
)

func TestProfileRepository_GetByUID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewProfileRepository(db)
	ctx := context.Background()

	created := testutil.TestProfile(t, db, testutil.WithBalance(25))

	found, err := repo.GetByUID(ctx, created.UID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, decimal.NewFromInt(25).Equal(found.BalanceAmount))

	_, err = repo.GetByUID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	missing, err := repo.FindByUID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProfileRepository_GetByUID_OwnerScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewProfileRepository(db)
	profile := testutil.TestProfile(t, db, func(p *model.Profile) {
		p.UID = "u1"
		p.Owner = "someone-else"
	})

	_, err := repo.GetByUID(context.Background(), profile.UID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProfileRepository_Upsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewProfileRepository(db)
	ctx := context.Background()

	first := &model.Profile{UID: "u_sync", Owner: "u_sync", DisplayName: "first", Status: 1, Role: "user"}
	require.NoError(t, repo.Upsert(ctx, first, "display_name", "updated_at"))

	_, err := repo.UpdateFields(ctx, "u_sync", map[string]interface{}{"balance_amount": decimal.NewFromInt(30)})
	require.NoError(t, err)

	second := &model.Profile{UID: "u_sync", Owner: "u_sync", DisplayName: "second", Status: 1, Role: "user"}
	require.NoError(t, repo.Upsert(ctx, second, "display_name", "updated_at"))

	got, err := repo.GetByUID(ctx, "u_sync")
	require.NoError(t, err)
	assert.Equal(t, "second", got.DisplayName)
	assert.Equal(t, model.PlanFree, got.PlanTier)
	assert.True(t, decimal.NewFromInt(30).Equal(got.BalanceAmount), "columns not listed are preserved")
	assert.Equal(t, int64(1), testutil.CountRows(t, db, &model.Profile{}))
}

func TestProfileRepository_DeductBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewProfileRepository(db)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db, testutil.WithBalance(15))
	price := decimal.NewFromInt(10)

	rows, err := repo.DeductBalance(ctx, profile.UID, price, map[string]interface{}{"plan_tier": model.PlanPro})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.DeductBalance(ctx, profile.UID, price, map[string]interface{}{"plan_tier": model.PlanTrial})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows, "insufficient balance is not deducted")

	got, err := repo.GetByUID(ctx, profile.UID)
	require.NoError(t, err)
	assert.Equal(t, "5", got.BalanceAmount.String())
	assert.Equal(t, model.PlanPro, got.PlanTier)
}

func TestProfileRepository_AddBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewProfileRepository(db)
	ctx := context.Background()
	profile := testutil.TestProfile(t, db)

	rows, err := repo.AddBalance(ctx, profile.UID, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.AddBalance(ctx, "missing", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	got, err := repo.GetByUID(ctx, profile.UID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.BalanceAmount.String())
}

func TestProfileRepository_PointsReset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewProfileRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := testutil.TestProfile(t, db, testutil.WithUID("due"), testutil.WithPoints(3, &past))
	testutil.TestProfile(t, db, testutil.WithUID("later"), testutil.WithPoints(3, &future))
	testutil.TestProfile(t, db, testutil.WithUID("never"))

	profiles, err := repo.ListDueForPointsReset(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, due.UID, profiles[0].UID)

	next := now.AddDate(0, 1, 0)
	rows, err := repo.ResetPoints(ctx, due.UID, 2000, now, next)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.ResetPoints(ctx, due.UID, 2000, now, next)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows, "already reset")

	got, err := repo.GetByUID(ctx, due.UID)
	require.NoError(t, err)
	assert.Equal(t, 2000, got.PointsBalance)
}

func TestProfileRepository_StorageError(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection reset"))

	_, err := repo.GetByUID(context.Background(), "u1")
	assert.EqualError(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileRepository_DeductBalance_SQL(t *testing.T) {
	db, mock := testutil.SetupMockDB(t)
	repo := NewProfileRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `user_profile` SET .*balance_amount - \\?.*WHERE .*balance_amount >= \\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	rows, err := repo.DeductBalance(context.Background(), "u1", decimal.NewFromInt(10), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
