package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/repository"
)

var (
	ErrTerminalNotFound   = errors.New("terminal not found")
	ErrUnknownPairingCode = errors.New("unknown pairing code")
	ErrCodeSpaceExhausted = errors.New("could not draw an unused pairing code")
)

const pairingCodeDigits = 5

type TerminalRepository interface {
	EnsureTerminal(ctx context.Context, id string) (*model.Terminal, error)
	GetByID(ctx context.Context, id string) (*model.Terminal, error)
	GetByPairingCode(ctx context.Context, code string) (*model.Terminal, error)
	AssignPairingCode(ctx context.Context, terminalID, code string) error
}

// PairingService issues short numeric codes that displays type instead of
// a full terminal id, and resolves them back. Codes are drawn uniformly
// from the 5-digit space; the repository's unique index keeps the mapping
// a bijection.
type PairingService struct {
	terminalRepo TerminalRepository
}

func NewPairingService(terminalRepo TerminalRepository) *PairingService {
	return &PairingService{terminalRepo: terminalRepo}
}

// IssueCode returns the terminal's pairing code, generating one on first
// call. Calling it again for the same terminal returns the existing code
// unchanged, so a terminal can render its code on every boot.
func (s *PairingService) IssueCode(ctx context.Context, terminalID string) (string, error) {
	term, err := s.terminalRepo.EnsureTerminal(ctx, terminalID)
	if err != nil {
		return "", fmt.Errorf("ensure terminal: %w", err)
	}
	if term.PairingCode != nil && *term.PairingCode != "" {
		return *term.PairingCode, nil
	}

	const maxDraws = 10
	for i := 0; i < maxDraws; i++ {
		code, err := randomDigits(pairingCodeDigits)
		if err != nil {
			return "", fmt.Errorf("draw pairing code: %w", err)
		}

		err = s.terminalRepo.AssignPairingCode(ctx, terminalID, code)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, repository.ErrPairingCodeTaken) {
			continue
		}
		if errors.Is(err, repository.ErrTerminalNotFound) {
			return "", ErrTerminalNotFound
		}
		return "", fmt.Errorf("assign pairing code: %w", err)
	}
	return "", ErrCodeSpaceExhausted
}

// ResolveCode maps a pairing code back to its terminal id.
func (s *PairingService) ResolveCode(ctx context.Context, code string) (string, error) {
	term, err := s.terminalRepo.GetByPairingCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownPairingCode) {
			return "", ErrUnknownPairingCode
		}
		return "", fmt.Errorf("resolve pairing code: %w", err)
	}
	return term.ID, nil
}

// ResolveDisplayKey accepts either a pairing code or a raw terminal id,
// trying the code first since that is what displays normally hold.
func (s *PairingService) ResolveDisplayKey(ctx context.Context, key string) (string, error) {
	id, err := s.ResolveCode(ctx, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrUnknownPairingCode) {
		return "", err
	}

	term, err := s.terminalRepo.GetByID(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrTerminalNotFound) {
			return "", ErrUnknownPairingCode
		}
		return "", err
	}
	return term.ID, nil
}

func randomDigits(n int) (string, error) {
	max := big.NewInt(10)
	buf := make([]byte, n)
	for i := range buf {
		d, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = '0' + byte(d.Int64())
	}
	return string(buf), nil
}
