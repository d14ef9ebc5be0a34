package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/pkg/pg"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity, err := toTransactionEntity(txn)
	if err != nil {
		return nil, err
	}

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toTransactionModel(entity)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity)
}

type TransactionFilter struct {
	MemberID *string
	Type     *model.TransactionType
	Limit    int
	Offset   int
}

// List returns ledger entries newest first.
func (r *TransactionRepository) List(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{})

	if filter.MemberID != nil {
		q = q.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", string(*filter.Type))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var entities []*TransactionEntity
	if err := q.Order("timestamp desc, id desc").Find(&entities).Error; err != nil {
		return nil, err
	}
	return toTransactionModels(entities)
}

// HasRefundFor reports whether a REFUND entry already references the given
// transaction. The unique index on related_transaction_id backs this up
// under concurrency; the check exists to fail early with a clean error.
func (r *TransactionRepository) HasRefundFor(ctx context.Context, transactionID string) (bool, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("type = ? AND related_transaction_id = ?", string(model.TransactionRefund), transactionID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
