package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/pkg/pg"
)

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrConcurrentUpdate   = errors.New("concurrent update detected")
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

type MemberRepository struct {
	*pg.DB
}

func NewMemberRepository(db *pg.DB) *MemberRepository {
	return &MemberRepository{
		db,
	}
}

func (r *MemberRepository) Create(ctx context.Context, m *model.Member) (*model.Member, error) {
	entity := toMemberEntity(m)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toMemberModel(entity), nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (*model.Member, error) {
	var entity MemberEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return toMemberModel(&entity), nil
}

// Suffix matching needs enough digits to be meaningful; shorter input
// must match a stored phone exactly.
const minSuffixQueryLen = 4

// FindByPhoneQuery resolves a full phone number or a suffix of one to a
// single member. Resolution is deterministic: an exact phone match wins
// outright; otherwise, for queries of at least minSuffixQueryLen digits,
// the suffix match with the shortest stored phone is taken, ties broken
// by id, so repeated queries always pick the same account. No match is
// ErrMemberNotFound.
func (r *MemberRepository) FindByPhoneQuery(ctx context.Context, query string) (*model.Member, error) {
	if query == "" {
		return nil, ErrMemberNotFound
	}

	var exact MemberEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("phone = ?", query).
		Order("id asc").
		First(&exact).
		Error
	if err == nil {
		return toMemberModel(&exact), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if len(query) < minSuffixQueryLen {
		return nil, ErrMemberNotFound
	}

	var entity MemberEntity
	err = r.Read(ctx).WithContext(ctx).
		Where("phone LIKE ?", "%"+query).
		Order("length(phone) asc, id asc").
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}
	return toMemberModel(&entity), nil
}

// DebitPoints performs an atomic points deduction with automatic retry and
// returns the balance after the debit. Used when a sale completes.
func (r *MemberRepository) DebitPoints(ctx context.Context, memberID string, amount int64) (int64, error) {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		balance, err := r.debitPointsAttempt(ctx, memberID, amount)

		if err == nil {
			return balance, nil
		}

		// Don't retry on permanent errors
		if errors.Is(err, ErrMemberNotFound) ||
			errors.Is(err, ErrInsufficientPoints) {
			return 0, err
		}

		// Retry on transient errors
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt) // Exponential backoff: 2ms, 4ms, 8ms
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return 0, fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *MemberRepository) debitPointsAttempt(ctx context.Context, memberID string, amount int64) (int64, error) {
	var entity MemberEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", memberID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMemberNotFound
		}
		return 0, err
	}

	if entity.Points < amount {
		return 0, ErrInsufficientPoints
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Where("id = ?", memberID).
		Update("points", gorm.Expr("points - ?", amount))

	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		return 0, ErrConcurrentUpdate
	}

	return entity.Points - amount, nil
}

// CreditPoints performs an atomic points addition with automatic retry
// using SELECT FOR UPDATE. Used when a sale is refunded.
func (r *MemberRepository) CreditPoints(ctx context.Context, memberID string, amount int64) (int64, error) {
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		balance, err := r.creditPointsAttempt(ctx, memberID, amount)

		if err == nil {
			return balance, nil
		}

		if errors.Is(err, ErrMemberNotFound) {
			return 0, err
		}

		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(delay):
				continue
			}
		}
	}

	return 0, fmt.Errorf("%w: failed after %d attempts", ErrMaxRetriesExceeded, maxRetries+1)
}

func (r *MemberRepository) creditPointsAttempt(ctx context.Context, memberID string, amount int64) (int64, error) {
	var entity MemberEntity

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", memberID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMemberNotFound
		}
		return 0, err
	}

	result := r.Write(ctx).WithContext(ctx).
		Model(&MemberEntity{}).
		Where("id = ?", memberID).
		Update("points", gorm.Expr("points + ?", amount))

	if result.Error != nil {
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		return 0, ErrMemberNotFound
	}

	return entity.Points + amount, nil
}

func (r *MemberRepository) GetPoints(ctx context.Context, memberID string) (int64, error) {
	var entity MemberEntity
	err := r.Read(ctx).WithContext(ctx).
		Select("points").
		Where("id = ?", memberID).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrMemberNotFound
		}
		return 0, err
	}
	return entity.Points, nil
}
