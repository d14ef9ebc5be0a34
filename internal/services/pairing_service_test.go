package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/repository"
)

func isFiveDigits(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func TestPairingService_IssueCode(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a five digit code", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("EnsureTerminal", ctx, "T-001").
			Return(&model.Terminal{ID: "T-001"}, nil)
		repo.On("AssignPairingCode", ctx, "T-001", mock.MatchedBy(isFiveDigits)).
			Return(nil)

		code, err := svc.IssueCode(ctx, "T-001")
		require.NoError(t, err)
		assert.True(t, isFiveDigits(code), "got %q", code)
	})

	t.Run("re-issue returns the existing code unchanged", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		existing := "48213"
		repo.On("EnsureTerminal", ctx, "T-001").
			Return(&model.Terminal{ID: "T-001", PairingCode: &existing}, nil)

		code, err := svc.IssueCode(ctx, "T-001")
		require.NoError(t, err)
		assert.Equal(t, existing, code)
		repo.AssertNotCalled(t, "AssignPairingCode", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("collision draws again", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("EnsureTerminal", ctx, "T-001").
			Return(&model.Terminal{ID: "T-001"}, nil)
		repo.On("AssignPairingCode", ctx, "T-001", mock.Anything).
			Return(repository.ErrPairingCodeTaken).Once()
		repo.On("AssignPairingCode", ctx, "T-001", mock.Anything).
			Return(nil).Once()

		code, err := svc.IssueCode(ctx, "T-001")
		require.NoError(t, err)
		assert.True(t, isFiveDigits(code))
		repo.AssertNumberOfCalls(t, "AssignPairingCode", 2)
	})

	t.Run("gives up when every draw collides", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("EnsureTerminal", ctx, "T-001").
			Return(&model.Terminal{ID: "T-001"}, nil)
		repo.On("AssignPairingCode", ctx, "T-001", mock.Anything).
			Return(repository.ErrPairingCodeTaken)

		_, err := svc.IssueCode(ctx, "T-001")
		assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
	})
}

func TestPairingService_ResolveCode(t *testing.T) {
	ctx := context.Background()

	t.Run("known code", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("GetByPairingCode", ctx, "48213").
			Return(&model.Terminal{ID: "T-001"}, nil)

		id, err := svc.ResolveCode(ctx, "48213")
		require.NoError(t, err)
		assert.Equal(t, "T-001", id)
	})

	t.Run("unknown code", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("GetByPairingCode", ctx, "00000").
			Return(nil, repository.ErrUnknownPairingCode)

		_, err := svc.ResolveCode(ctx, "00000")
		assert.ErrorIs(t, err, ErrUnknownPairingCode)
	})
}

func TestPairingService_ResolveDisplayKey(t *testing.T) {
	ctx := context.Background()

	t.Run("pairing code wins", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("GetByPairingCode", ctx, "48213").
			Return(&model.Terminal{ID: "T-001"}, nil)

		id, err := svc.ResolveDisplayKey(ctx, "48213")
		require.NoError(t, err)
		assert.Equal(t, "T-001", id)
	})

	t.Run("falls back to terminal id", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("GetByPairingCode", ctx, "T-001").
			Return(nil, repository.ErrUnknownPairingCode)
		repo.On("GetByID", ctx, "T-001").
			Return(&model.Terminal{ID: "T-001"}, nil)

		id, err := svc.ResolveDisplayKey(ctx, "T-001")
		require.NoError(t, err)
		assert.Equal(t, "T-001", id)
	})

	t.Run("neither code nor id", func(t *testing.T) {
		repo := new(MockTerminalRepository)
		svc := NewPairingService(repo)

		repo.On("GetByPairingCode", ctx, "junk").
			Return(nil, repository.ErrUnknownPairingCode)
		repo.On("GetByID", ctx, "junk").
			Return(nil, repository.ErrTerminalNotFound)

		_, err := svc.ResolveDisplayKey(ctx, "junk")
		assert.ErrorIs(t, err, ErrUnknownPairingCode)
	})
}
