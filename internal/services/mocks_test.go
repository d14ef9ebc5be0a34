package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/repository"
)

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id string) (*model.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *MockMemberRepository) FindByPhoneQuery(ctx context.Context, query string) (*model.Member, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *MockMemberRepository) DebitPoints(ctx context.Context, memberID string, amount int64) (int64, error) {
	args := m.Called(ctx, memberID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMemberRepository) CreditPoints(ctx context.Context, memberID string, amount int64) (int64, error) {
	args := m.Called(ctx, memberID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMemberRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	args := m.Called(ctx, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter repository.TransactionFilter) ([]*model.Transaction, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) HasRefundFor(ctx context.Context, transactionID string) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}

type MockGiftCardRepository struct {
	mock.Mock
}

func (m *MockGiftCardRepository) Create(ctx context.Context, card *model.GiftCard) (*model.GiftCard, error) {
	args := m.Called(ctx, card)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GiftCard), args.Error(1)
}

func (m *MockGiftCardRepository) GetByCode(ctx context.Context, code string) (*model.GiftCard, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GiftCard), args.Error(1)
}

func (m *MockGiftCardRepository) MarkUsed(ctx context.Context, code string) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockGiftCardRepository) List(ctx context.Context, limit, offset int) ([]*model.GiftCard, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.GiftCard), args.Error(1)
}

type MockTerminalRepository struct {
	mock.Mock
}

func (m *MockTerminalRepository) EnsureTerminal(ctx context.Context, id string) (*model.Terminal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Terminal), args.Error(1)
}

func (m *MockTerminalRepository) GetByID(ctx context.Context, id string) (*model.Terminal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Terminal), args.Error(1)
}

func (m *MockTerminalRepository) GetByPairingCode(ctx context.Context, code string) (*model.Terminal, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Terminal), args.Error(1)
}

func (m *MockTerminalRepository) AssignPairingCode(ctx context.Context, terminalID, code string) error {
	args := m.Called(ctx, terminalID, code)
	return args.Error(0)
}
