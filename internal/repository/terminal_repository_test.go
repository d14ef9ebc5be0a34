package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalRepository_EnsureTerminal(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTerminalRepository(db)
	ctx := context.Background()

	first, err := repo.EnsureTerminal(ctx, "T-001")
	require.NoError(t, err)
	assert.Equal(t, "T-001", first.ID)
	assert.Nil(t, first.PairingCode)

	// Re-registering is a no-op.
	again, err := repo.EnsureTerminal(ctx, "T-001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestTerminalRepository_PairingCodes(t *testing.T) {
	db := setupTestDB(t).DB
	repo := NewTerminalRepository(db)
	ctx := context.Background()

	_, err := repo.EnsureTerminal(ctx, "T-001")
	require.NoError(t, err)
	_, err = repo.EnsureTerminal(ctx, "T-002")
	require.NoError(t, err)

	require.NoError(t, repo.AssignPairingCode(ctx, "T-001", "48213"))

	t.Run("resolve code to terminal", func(t *testing.T) {
		term, err := repo.GetByPairingCode(ctx, "48213")
		require.NoError(t, err)
		assert.Equal(t, "T-001", term.ID)
	})

	t.Run("code is exclusive to one terminal", func(t *testing.T) {
		err := repo.AssignPairingCode(ctx, "T-002", "48213")
		assert.ErrorIs(t, err, ErrPairingCodeTaken)
	})

	t.Run("reassigning frees old code", func(t *testing.T) {
		require.NoError(t, repo.AssignPairingCode(ctx, "T-001", "91007"))

		_, err := repo.GetByPairingCode(ctx, "48213")
		assert.ErrorIs(t, err, ErrUnknownPairingCode)

		term, err := repo.GetByPairingCode(ctx, "91007")
		require.NoError(t, err)
		assert.Equal(t, "T-001", term.ID)
	})

	t.Run("unknown terminal", func(t *testing.T) {
		err := repo.AssignPairingCode(ctx, "T-404", "12345")
		assert.ErrorIs(t, err, ErrTerminalNotFound)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := repo.GetByPairingCode(ctx, "00000")
		assert.ErrorIs(t, err, ErrUnknownPairingCode)
	})
}
