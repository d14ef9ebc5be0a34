package model

import "time"

type TransactionType string

const (
	TransactionEarn   TransactionType = "EARN"
	TransactionRefund TransactionType = "REFUND"
)

// Transaction is an immutable ledger entry. A REFUND always carries the id
// of the EARN it reverses in RelatedTransactionID.
type Transaction struct {
	ID                   string          `json:"id"`
	MemberID             string          `json:"member_id"`
	MemberName           string          `json:"member_name,omitempty"`
	Items                []CartItem      `json:"items"`
	Subtotal             int64           `json:"subtotal"`
	VAT                  int64           `json:"vat"`
	FinalAmount          int64           `json:"final_amount"`
	Type                 TransactionType `json:"type"`
	RelatedTransactionID *string         `json:"related_transaction_id,omitempty"`
	Memo                 string          `json:"memo,omitempty"`
	StoreName            string          `json:"store_name,omitempty"`
	Timestamp            time.Time       `json:"timestamp"`
}
