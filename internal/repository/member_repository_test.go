package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberRepository_DebitPoints(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMemberRepository(db)
	ctx := context.Background()

	t.Run("successful debit returns new balance", func(t *testing.T) {
		member := &MemberEntity{
			ID:     "m-1",
			Name:   "Kim Jiwoo",
			Phone:  "01012345678",
			Points: 10000,
		}
		err := db.Write(ctx).Create(member).Error
		require.NoError(t, err)

		balance, err := repo.DebitPoints(ctx, "m-1", 3600)
		assert.NoError(t, err)
		assert.EqualValues(t, 6400, balance)

		points, err := repo.GetPoints(ctx, "m-1")
		require.NoError(t, err)
		assert.EqualValues(t, 6400, points)
	})

	t.Run("insufficient points leaves balance untouched", func(t *testing.T) {
		member := &MemberEntity{
			ID:     "m-2",
			Name:   "Lee Haru",
			Phone:  "01022223333",
			Points: 100,
		}
		err := db.Write(ctx).Create(member).Error
		require.NoError(t, err)

		_, err = repo.DebitPoints(ctx, "m-2", 200)
		assert.ErrorIs(t, err, ErrInsufficientPoints)

		points, err := repo.GetPoints(ctx, "m-2")
		require.NoError(t, err)
		assert.EqualValues(t, 100, points)
	})

	t.Run("member not found", func(t *testing.T) {
		_, err := repo.DebitPoints(ctx, "no-such-member", 100)
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})

	t.Run("exact balance debit allowed", func(t *testing.T) {
		member := &MemberEntity{
			ID:     "m-3",
			Name:   "Park Sora",
			Phone:  "01044445555",
			Points: 250,
		}
		err := db.Write(ctx).Create(member).Error
		require.NoError(t, err)

		balance, err := repo.DebitPoints(ctx, "m-3", 250)
		assert.NoError(t, err)
		assert.Zero(t, balance)
	})
}

func TestMemberRepository_CreditPoints(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMemberRepository(db)
	ctx := context.Background()

	t.Run("credit adds and returns new balance", func(t *testing.T) {
		member := &MemberEntity{
			ID:     "m-10",
			Name:   "Choi Dain",
			Phone:  "01066667777",
			Points: 500,
		}
		err := db.Write(ctx).Create(member).Error
		require.NoError(t, err)

		balance, err := repo.CreditPoints(ctx, "m-10", 1200)
		assert.NoError(t, err)
		assert.EqualValues(t, 1700, balance)
	})

	t.Run("member not found", func(t *testing.T) {
		_, err := repo.CreditPoints(ctx, "missing", 100)
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}

func TestMemberRepository_FindByPhoneQuery(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewMemberRepository(db)
	ctx := context.Background()

	seed := []*MemberEntity{
		{ID: "m-20", Name: "Suffix Short", Phone: "1015678", Points: 0},
		{ID: "m-21", Name: "Suffix Long", Phone: "01015678", Points: 0},
		{ID: "m-22", Name: "Exact", Phone: "5678", Points: 0},
		{ID: "m-23", Name: "Other", Phone: "01099990000", Points: 0},
	}
	for _, m := range seed {
		require.NoError(t, db.Write(ctx).Create(m).Error)
	}

	t.Run("exact match wins over suffix matches", func(t *testing.T) {
		got, err := repo.FindByPhoneQuery(ctx, "5678")
		require.NoError(t, err)
		assert.Equal(t, "m-22", got.ID)
	})

	t.Run("shortest suffix match taken when no exact match", func(t *testing.T) {
		got, err := repo.FindByPhoneQuery(ctx, "15678")
		require.NoError(t, err)
		assert.Equal(t, "m-20", got.ID)
	})

	t.Run("resolution is stable across repeated queries", func(t *testing.T) {
		first, err := repo.FindByPhoneQuery(ctx, "15678")
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := repo.FindByPhoneQuery(ctx, "15678")
			require.NoError(t, err)
			assert.Equal(t, first.ID, again.ID)
		}
	})

	t.Run("short query only matches exactly", func(t *testing.T) {
		// "678" is a suffix of several stored phones but has fewer than
		// four digits, so it must not suffix-match anything.
		_, err := repo.FindByPhoneQuery(ctx, "678")
		assert.ErrorIs(t, err, ErrMemberNotFound)

		got, err := repo.FindByPhoneQuery(ctx, "5678")
		require.NoError(t, err)
		assert.Equal(t, "m-22", got.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := repo.FindByPhoneQuery(ctx, "31415")
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := repo.FindByPhoneQuery(ctx, "")
		assert.ErrorIs(t, err, ErrMemberNotFound)
	})
}
