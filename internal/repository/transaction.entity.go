package repository

import (
	"encoding/json"
	"time"

	"github.com/jeongwonlab/possync/internal/model"
)

type TransactionEntity struct {
	ID                   string    `db:"id"                     gorm:"primaryKey;column:id"`
	MemberID             string    `db:"member_id"              gorm:"column:member_id;not null;index"`
	MemberName           string    `db:"member_name"            gorm:"column:member_name"`
	Items                []byte    `db:"items"                  gorm:"column:items;not null"`
	Subtotal             int64     `db:"subtotal"               gorm:"column:subtotal;not null"`
	VAT                  int64     `db:"vat"                    gorm:"column:vat;not null"`
	FinalAmount          int64     `db:"final_amount"           gorm:"column:final_amount;not null"`
	Type                 string    `db:"type"                   gorm:"column:type;not null"`
	RelatedTransactionID *string   `db:"related_transaction_id" gorm:"column:related_transaction_id;uniqueIndex"`
	Memo                 string    `db:"memo"                   gorm:"column:memo"`
	StoreName            string    `db:"store_name"             gorm:"column:store_name"`
	Timestamp            time.Time `db:"timestamp"              gorm:"column:timestamp;not null;index"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) (*TransactionEntity, error) {
	if m == nil {
		return nil, nil
	}
	items := m.Items
	if items == nil {
		items = []model.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return &TransactionEntity{
		ID:                   m.ID,
		MemberID:             m.MemberID,
		MemberName:           m.MemberName,
		Items:                raw,
		Subtotal:             m.Subtotal,
		VAT:                  m.VAT,
		FinalAmount:          m.FinalAmount,
		Type:                 string(m.Type),
		RelatedTransactionID: m.RelatedTransactionID,
		Memo:                 m.Memo,
		StoreName:            m.StoreName,
		Timestamp:            m.Timestamp,
	}, nil
}

func toTransactionModel(e *TransactionEntity) (*model.Transaction, error) {
	if e == nil {
		return nil, nil
	}
	var items []model.CartItem
	if len(e.Items) > 0 {
		if err := json.Unmarshal(e.Items, &items); err != nil {
			return nil, err
		}
	}
	return &model.Transaction{
		ID:                   e.ID,
		MemberID:             e.MemberID,
		MemberName:           e.MemberName,
		Items:                items,
		Subtotal:             e.Subtotal,
		VAT:                  e.VAT,
		FinalAmount:          e.FinalAmount,
		Type:                 model.TransactionType(e.Type),
		RelatedTransactionID: e.RelatedTransactionID,
		Memo:                 e.Memo,
		StoreName:            e.StoreName,
		Timestamp:            e.Timestamp,
	}, nil
}

func toTransactionModels(entities []*TransactionEntity) ([]*model.Transaction, error) {
	if entities == nil {
		return nil, nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		m, err := toTransactionModel(e)
		if err != nil {
			return nil, err
		}
		models[i] = m
	}
	return models, nil
}
