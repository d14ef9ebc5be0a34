package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeongwonlab/possync/internal/model"
)

func TestTransactionRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	txn := &model.Transaction{
		ID:         "txn-1",
		MemberID:   "m-1",
		MemberName: "Kim Jiwoo",
		Items: []model.CartItem{
			{ID: "i-1", Name: "Americano", UnitPrice: 4000, Quantity: 2, Discount: 500},
			{ID: "i-2", Name: "Croissant", UnitPrice: 3500, Quantity: 1},
		},
		Subtotal:    11000,
		VAT:         2200,
		FinalAmount: 13200,
		Type:        model.TransactionEarn,
		StoreName:   "Jeongwonlab",
		Timestamp:   time.Now().UTC().Truncate(time.Second),
	}

	created, err := repo.Create(ctx, txn)
	require.NoError(t, err)
	assert.Equal(t, "txn-1", created.ID)

	got, err := repo.GetByID(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, model.TransactionEarn, got.Type)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Americano", got.Items[0].Name)
	assert.EqualValues(t, 13200, got.FinalAmount)
	assert.Nil(t, got.RelatedTransactionID)
}

func TestTransactionRepository_GetMissing(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestTransactionRepository_List(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	memberA := "m-a"
	for i, id := range []string{"t-1", "t-2", "t-3"} {
		_, err := repo.Create(ctx, &model.Transaction{
			ID:          id,
			MemberID:    memberA,
			FinalAmount: int64(1000 * (i + 1)),
			Type:        model.TransactionEarn,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	related := "t-2"
	_, err := repo.Create(ctx, &model.Transaction{
		ID:                   "t-4",
		MemberID:             "m-b",
		FinalAmount:          2000,
		Type:                 model.TransactionRefund,
		RelatedTransactionID: &related,
		Timestamp:            base.Add(3 * time.Minute),
	})
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		all, err := repo.List(ctx, TransactionFilter{})
		require.NoError(t, err)
		require.Len(t, all, 4)
		assert.Equal(t, "t-4", all[0].ID)
		assert.Equal(t, "t-1", all[3].ID)
	})

	t.Run("filter by member", func(t *testing.T) {
		got, err := repo.List(ctx, TransactionFilter{MemberID: &memberA})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("filter by type", func(t *testing.T) {
		refund := model.TransactionRefund
		got, err := repo.List(ctx, TransactionFilter{Type: &refund})
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].RelatedTransactionID)
		assert.Equal(t, "t-2", *got[0].RelatedTransactionID)
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := repo.List(ctx, TransactionFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "t-3", got[0].ID)
	})
}

func TestTransactionRepository_HasRefundFor(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.Transaction{
		ID:          "earn-1",
		MemberID:    "m-1",
		FinalAmount: 5000,
		Type:        model.TransactionEarn,
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)

	ok, err := repo.HasRefundFor(ctx, "earn-1")
	require.NoError(t, err)
	assert.False(t, ok)

	related := "earn-1"
	_, err = repo.Create(ctx, &model.Transaction{
		ID:                   "refund-1",
		MemberID:             "m-1",
		FinalAmount:          5000,
		Type:                 model.TransactionRefund,
		RelatedTransactionID: &related,
		Timestamp:            time.Now(),
	})
	require.NoError(t, err)

	ok, err = repo.HasRefundFor(ctx, "earn-1")
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("second refund hits the unique index", func(t *testing.T) {
		_, err := repo.Create(ctx, &model.Transaction{
			ID:                   "refund-2",
			MemberID:             "m-1",
			FinalAmount:          5000,
			Type:                 model.TransactionRefund,
			RelatedTransactionID: &related,
			Timestamp:            time.Now(),
		})
		require.Error(t, err)
		assert.True(t, isUniqueViolation(err))
	})
}
