package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/repository"
	"github.com/jeongwonlab/possync/pkg/prom"
)

var (
	ErrMemberNotFound     = errors.New("member not found")
	ErrInsufficientPoints = errors.New("insufficient points for this sale")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotRefundable      = errors.New("only completed sales can be refunded")
	ErrAlreadyRefunded    = errors.New("sale has already been refunded")
	ErrTransactionMissing = errors.New("transaction not found")
)

type MemberRepository interface {
	GetByID(ctx context.Context, id string) (*model.Member, error)
	FindByPhoneQuery(ctx context.Context, query string) (*model.Member, error)
	DebitPoints(ctx context.Context, memberID string, amount int64) (int64, error)
	CreditPoints(ctx context.Context, memberID string, amount int64) (int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetByID(ctx context.Context, id string) (*model.Transaction, error)
	List(ctx context.Context, filter repository.TransactionFilter) ([]*model.Transaction, error)
	HasRefundFor(ctx context.Context, transactionID string) (bool, error)
}

type GiftCardMarker interface {
	MarkUsed(ctx context.Context, code string) error
}

// PaymentService owns the point-ledger side of a sale: the atomic
// debit-and-record at completion and the inverse credit at refund. Each
// completed sale appends exactly one EARN entry and each refund exactly
// one REFUND entry; ledger entries are never updated or deleted.
type PaymentService struct {
	memberRepo      MemberRepository
	transactionRepo TransactionRepository
	giftCards       GiftCardMarker
	storeName       string
}

func NewPaymentService(memberRepo MemberRepository, transactionRepo TransactionRepository, giftCards GiftCardMarker, storeName string) *PaymentService {
	return &PaymentService{
		memberRepo:      memberRepo,
		transactionRepo: transactionRepo,
		giftCards:       giftCards,
		storeName:       storeName,
	}
}

// SaleTotals carries the cart engine's computed amounts into the ledger.
type SaleTotals struct {
	Subtotal int64
	VAT      int64
	Final    int64
}

// AttemptPayment is the pre-flight check: can this member cover the sale.
// It does not move points.
func (s *PaymentService) AttemptPayment(ctx context.Context, memberID string, totals SaleTotals) error {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("load member: %w", err)
	}
	if member.Points < totals.Final {
		return ErrInsufficientPoints
	}
	return nil
}

// CompleteSale debits the member and appends the EARN entry in one
// database transaction; gift cards applied to the cart flip to used inside
// the same transaction, so a rollback leaves them redeemable.
func (s *PaymentService) CompleteSale(ctx context.Context, memberID string, items []model.CartItem, totals SaleTotals) (*model.Transaction, int64, error) {
	if len(items) == 0 {
		return nil, 0, ErrEmptyCart
	}

	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return nil, 0, ErrMemberNotFound
		}
		return nil, 0, fmt.Errorf("load member: %w", err)
	}

	var (
		created    *model.Transaction
		newBalance int64
	)
	err = s.memberRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		balance, err := s.memberRepo.DebitPoints(ctx, memberID, totals.Final)
		if err != nil {
			if errors.Is(err, repository.ErrInsufficientPoints) {
				return ErrInsufficientPoints
			}
			if errors.Is(err, repository.ErrMemberNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("debit points: %w", err)
		}
		newBalance = balance

		txn := &model.Transaction{
			ID:          uuid.NewString(),
			MemberID:    memberID,
			MemberName:  member.Name,
			Items:       items,
			Subtotal:    totals.Subtotal,
			VAT:         totals.VAT,
			FinalAmount: totals.Final,
			Type:        model.TransactionEarn,
			StoreName:   s.storeName,
			Timestamp:   time.Now(),
		}
		created, err = s.transactionRepo.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}

		for _, item := range items {
			if item.GiftCardCode == "" {
				continue
			}
			if err := s.giftCards.MarkUsed(ctx, item.GiftCardCode); err != nil {
				return fmt.Errorf("consume gift card %q: %w", item.GiftCardCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	prom.IncPaymentCompleted()
	return created, newBalance, nil
}

// Refund reverses a completed sale: it credits the full final amount back
// and appends a REFUND entry pointing at the original. A sale can be
// refunded once; the check here fails early and the unique index on the
// related id catches the race.
func (s *PaymentService) Refund(ctx context.Context, transactionID string) (*model.Transaction, int64, error) {
	original, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, 0, ErrTransactionMissing
		}
		return nil, 0, fmt.Errorf("load transaction: %w", err)
	}
	if original.Type != model.TransactionEarn {
		return nil, 0, ErrNotRefundable
	}

	refunded, err := s.transactionRepo.HasRefundFor(ctx, transactionID)
	if err != nil {
		return nil, 0, fmt.Errorf("check refund state: %w", err)
	}
	if refunded {
		return nil, 0, ErrAlreadyRefunded
	}

	var (
		created    *model.Transaction
		newBalance int64
	)
	err = s.memberRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		balance, err := s.memberRepo.CreditPoints(ctx, original.MemberID, original.FinalAmount)
		if err != nil {
			if errors.Is(err, repository.ErrMemberNotFound) {
				return ErrMemberNotFound
			}
			return fmt.Errorf("credit points: %w", err)
		}
		newBalance = balance

		related := original.ID
		txn := &model.Transaction{
			ID:                   uuid.NewString(),
			MemberID:             original.MemberID,
			MemberName:           original.MemberName,
			Items:                original.Items,
			Subtotal:             original.Subtotal,
			VAT:                  original.VAT,
			FinalAmount:          original.FinalAmount,
			Type:                 model.TransactionRefund,
			RelatedTransactionID: &related,
			StoreName:            s.storeName,
			Timestamp:            time.Now(),
		}
		created, err = s.transactionRepo.Create(ctx, txn)
		if err != nil {
			return fmt.Errorf("append refund entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	prom.IncRefundIssued()
	return created, newBalance, nil
}

func (s *PaymentService) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	txn, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, ErrTransactionMissing
		}
		return nil, err
	}
	return txn, nil
}

func (s *PaymentService) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*model.Transaction, error) {
	return s.transactionRepo.List(ctx, filter)
}
