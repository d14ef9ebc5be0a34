package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeongwonlab/possync/internal/model"
)

func TestGiftCardRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGiftCardRepository(db)
	ctx := context.Background()

	card := &model.GiftCard{
		Code:         "1234-xKwQzR-#",
		DiscountRate: 15,
		Status:       model.GiftCardActive,
		IssuerID:     "T-001",
		IssuedAt:     time.Now(),
	}
	_, err := repo.Create(ctx, card)
	require.NoError(t, err)

	got, err := repo.GetByCode(ctx, "1234-xKwQzR-#")
	require.NoError(t, err)
	assert.Equal(t, 15, got.DiscountRate)
	assert.Equal(t, model.GiftCardActive, got.Status)

	t.Run("duplicate code rejected", func(t *testing.T) {
		_, err := repo.Create(ctx, card)
		assert.ErrorIs(t, err, ErrDuplicateCode)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := repo.GetByCode(ctx, "0000-aaaaaa-#")
		assert.ErrorIs(t, err, ErrGiftCardNotFound)
	})
}

func TestGiftCardRepository_MarkUsed(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewGiftCardRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, &model.GiftCard{
		Code:         "7777-bXnMpQ-*",
		DiscountRate: 20,
		Status:       model.GiftCardActive,
		IssuedAt:     time.Now(),
	})
	require.NoError(t, err)

	require.NoError(t, repo.MarkUsed(ctx, "7777-bXnMpQ-*"))

	got, err := repo.GetByCode(ctx, "7777-bXnMpQ-*")
	require.NoError(t, err)
	assert.Equal(t, model.GiftCardUsed, got.Status)

	t.Run("second use rejected", func(t *testing.T) {
		err := repo.MarkUsed(ctx, "7777-bXnMpQ-*")
		assert.ErrorIs(t, err, ErrGiftCardUsed)
	})

	t.Run("unknown code", func(t *testing.T) {
		err := repo.MarkUsed(ctx, "missing-code")
		assert.ErrorIs(t, err, ErrGiftCardNotFound)
	})
}
