package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/pkg/pg"
)

var (
	ErrGiftCardNotFound = errors.New("gift card not found")
	ErrGiftCardUsed     = errors.New("gift card already used")
	ErrDuplicateCode    = errors.New("gift card code already exists")
)

type GiftCardRepository struct {
	*pg.DB
}

func NewGiftCardRepository(db *pg.DB) *GiftCardRepository {
	return &GiftCardRepository{
		db,
	}
}

func (r *GiftCardRepository) Create(ctx context.Context, card *model.GiftCard) (*model.GiftCard, error) {
	entity := toGiftCardEntity(card)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return toGiftCardModel(entity), nil
}

func (r *GiftCardRepository) GetByCode(ctx context.Context, code string) (*model.GiftCard, error) {
	var entity GiftCardEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("code = ?", code).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGiftCardNotFound
		}
		return nil, err
	}
	return toGiftCardModel(&entity), nil
}

// MarkUsed flips an active card to used. The single-use guarantee lives in
// the WHERE clause: a second caller matches zero rows and gets
// ErrGiftCardUsed.
func (r *GiftCardRepository) MarkUsed(ctx context.Context, code string) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&GiftCardEntity{}).
		Where("code = ? AND status = ?", code, string(model.GiftCardActive)).
		Update("status", string(model.GiftCardUsed))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.Read(ctx).WithContext(ctx).
			Model(&GiftCardEntity{}).
			Where("code = ?", code).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrGiftCardNotFound
		}
		return ErrGiftCardUsed
	}
	return nil
}

func (r *GiftCardRepository) List(ctx context.Context, limit, offset int) ([]*model.GiftCard, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&GiftCardEntity{})
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var entities []*GiftCardEntity
	if err := q.Order("issued_at desc, code asc").Find(&entities).Error; err != nil {
		return nil, err
	}
	models := make([]*model.GiftCard, len(entities))
	for i, e := range entities {
		models[i] = toGiftCardModel(e)
	}
	return models, nil
}
