package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/pkg/pg"
)

var (
	ErrTerminalNotFound   = errors.New("terminal not found")
	ErrPairingCodeTaken   = errors.New("pairing code already assigned")
	ErrUnknownPairingCode = errors.New("unknown pairing code")
)

type TerminalRepository struct {
	*pg.DB
}

func NewTerminalRepository(db *pg.DB) *TerminalRepository {
	return &TerminalRepository{
		db,
	}
}

// EnsureTerminal registers a terminal id on first sight. Re-registering an
// existing id is a no-op and returns the stored record.
func (r *TerminalRepository) EnsureTerminal(ctx context.Context, id string) (*model.Terminal, error) {
	existing, err := r.GetByID(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrTerminalNotFound) {
		return nil, err
	}

	entity := &TerminalEntity{ID: id, CreatedAt: time.Now()}
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			// Lost a create race; the record exists now.
			return r.GetByID(ctx, id)
		}
		return nil, err
	}
	return toTerminalModel(entity), nil
}

func (r *TerminalRepository) GetByID(ctx context.Context, id string) (*model.Terminal, error) {
	var entity TerminalEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTerminalNotFound
		}
		return nil, err
	}
	return toTerminalModel(&entity), nil
}

func (r *TerminalRepository) GetByPairingCode(ctx context.Context, code string) (*model.Terminal, error) {
	var entity TerminalEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("pairing_code = ?", code).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownPairingCode
		}
		return nil, err
	}
	return toTerminalModel(&entity), nil
}

// AssignPairingCode binds a code to a terminal. The unique index on
// pairing_code keeps the mapping a bijection; a collision with another
// terminal's code surfaces as ErrPairingCodeTaken so the caller can draw a
// fresh code and retry.
func (r *TerminalRepository) AssignPairingCode(ctx context.Context, terminalID, code string) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TerminalEntity{}).
		Where("id = ?", terminalID).
		Update("pairing_code", code)

	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return ErrPairingCodeTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTerminalNotFound
	}
	return nil
}
