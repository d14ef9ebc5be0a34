package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/services"
	xhttp "github.com/jeongwonlab/possync/pkg/http"
)

type MockTerminalService struct {
	mock.Mock
}

func (m *MockTerminalService) Session(terminalID string) model.Session {
	args := m.Called(terminalID)
	return args.Get(0).(model.Session)
}

func (m *MockTerminalService) AddItem(ctx context.Context, terminalID string, item model.CartItem) (model.Session, error) {
	args := m.Called(ctx, terminalID, item)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockTerminalService) UpdateQuantity(ctx context.Context, terminalID, itemID string, quantity int) (model.Session, error) {
	args := m.Called(ctx, terminalID, itemID, quantity)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockTerminalService) UpdateDiscount(ctx context.Context, terminalID, itemID string, discount int64) (model.Session, error) {
	args := m.Called(ctx, terminalID, itemID, discount)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockTerminalService) RemoveItem(ctx context.Context, terminalID, itemID string) (model.Session, error) {
	args := m.Called(ctx, terminalID, itemID)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockTerminalService) ApplyGiftCard(ctx context.Context, terminalID, code string) (model.Session, error) {
	args := m.Called(ctx, terminalID, code)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockTerminalService) ShowMemo(ctx context.Context, terminalID, memo string, color model.MemoColor) model.Session {
	args := m.Called(ctx, terminalID, memo, color)
	return args.Get(0).(model.Session)
}

func (m *MockTerminalService) RequestPhoneInput(ctx context.Context, terminalID string) model.Session {
	args := m.Called(ctx, terminalID)
	return args.Get(0).(model.Session)
}

func (m *MockTerminalService) HandlePhoneSubmit(ctx context.Context, terminalID, phone string) (model.Session, error) {
	args := m.Called(ctx, terminalID, phone)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockTerminalService) CancelMember(ctx context.Context, terminalID string) model.Session {
	args := m.Called(ctx, terminalID)
	return args.Get(0).(model.Session)
}

func (m *MockTerminalService) ConfirmPayment(ctx context.Context, terminalID, memberID string) (model.Session, error) {
	args := m.Called(ctx, terminalID, memberID)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *MockTerminalService) Refund(ctx context.Context, terminalID, transactionID string) (*model.Transaction, error) {
	args := m.Called(ctx, terminalID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockTerminalService) ForceResync(ctx context.Context, terminalID string) error {
	args := m.Called(ctx, terminalID)
	return args.Error(0)
}

func (m *MockTerminalService) Reset(ctx context.Context, terminalID string) model.Session {
	args := m.Called(ctx, terminalID)
	return args.Get(0).(model.Session)
}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

func decodeSession(t *testing.T, ctx *xhttp.RequestCtx) model.Session {
	var sess model.Session
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &sess))
	return sess
}

func TestTerminalHandler_AddItem(t *testing.T) {
	t.Run("adds and returns the session", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(addItemRequest{ID: "i-1", Name: "Americano", UnitPrice: 4000})
		want := model.Session{TerminalID: "T-001", View: model.ViewCart, Total: 4800}

		svc.On("AddItem", mock.Anything, "T-001", mock.MatchedBy(func(item model.CartItem) bool {
			return item.ID == "i-1" && item.UnitPrice == 4000
		})).Return(want, nil)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/cart/items", body)
		ctx.SetUserValue("id", "T-001")
		h.AddItem(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, model.ViewCart, decodeSession(t, ctx).View)
	})

	t.Run("missing item id", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(addItemRequest{Name: "nameless"})
		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/cart/items", body)
		ctx.SetUserValue("id", "T-001")
		h.AddItem(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/cart/items", []byte("{"))
		ctx.SetUserValue("id", "T-001")
		h.AddItem(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestTerminalHandler_SearchMember(t *testing.T) {
	t.Run("match", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(searchMemberRequest{Phone: "5678"})
		want := model.Session{View: model.ViewMemberConfirm, Member: &model.MemberSnapshot{Name: "Kim Jiwoo"}}

		svc.On("HandlePhoneSubmit", mock.Anything, "T-001", "5678").Return(want, nil)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/member/search", body)
		ctx.SetUserValue("id", "T-001")
		h.SearchMember(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		got := decodeSession(t, ctx)
		require.NotNil(t, got.Member)
		assert.Equal(t, "Kim Jiwoo", got.Member.Name)
	})

	t.Run("no match returns 404 with the updated session", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(searchMemberRequest{Phone: "0000"})
		sess := model.Session{View: model.ViewPhoneInput, ErrorMessage: "member not found"}

		svc.On("HandlePhoneSubmit", mock.Anything, "T-001", "0000").
			Return(sess, services.ErrMemberNotFound)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/member/search", body)
		ctx.SetUserValue("id", "T-001")
		h.SearchMember(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
		assert.Equal(t, "member not found", decodeSession(t, ctx).ErrorMessage)
	})
}

func TestTerminalHandler_ConfirmPayment(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(confirmPaymentRequest{MemberID: "m-1"})
		want := model.Session{View: model.ViewSuccess, LastResult: &model.PaymentResult{ResultingBalance: 3000}}

		svc.On("ConfirmPayment", mock.Anything, "T-001", "m-1").Return(want, nil)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/payment/confirm", body)
		ctx.SetUserValue("id", "T-001")
		h.ConfirmPayment(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, model.ViewSuccess, decodeSession(t, ctx).View)
	})

	t.Run("insufficient points maps to 402", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(confirmPaymentRequest{MemberID: "m-1"})
		errSess := model.Session{View: model.ViewError, ErrorMessage: "insufficient points"}

		svc.On("ConfirmPayment", mock.Anything, "T-001", "m-1").
			Return(errSess, services.ErrInsufficientPoints)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/payment/confirm", body)
		ctx.SetUserValue("id", "T-001")
		h.ConfirmPayment(ctx)

		assert.Equal(t, 402, ctx.Response.StatusCode())
		assert.Equal(t, model.ViewError, decodeSession(t, ctx).View)
	})

	t.Run("member id required", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/payment/confirm", []byte("{}"))
		ctx.SetUserValue("id", "T-001")
		h.ConfirmPayment(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestTerminalHandler_Refund(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(refundRequest{TransactionID: "txn-1"})
		svc.On("Refund", mock.Anything, "T-001", "txn-1").
			Return(&model.Transaction{ID: "refund-1", Type: model.TransactionRefund}, nil)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/refunds", body)
		ctx.SetUserValue("id", "T-001")
		h.Refund(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
	})

	t.Run("double refund maps to 409", func(t *testing.T) {
		svc := new(MockTerminalService)
		h := NewTerminalHandler(svc)

		body, _ := json.Marshal(refundRequest{TransactionID: "txn-1"})
		svc.On("Refund", mock.Anything, "T-001", "txn-1").
			Return(nil, services.ErrAlreadyRefunded)

		ctx := setupTestContext("POST", "/api/v1/terminals/T-001/refunds", body)
		ctx.SetUserValue("id", "T-001")
		h.Refund(ctx)

		assert.Equal(t, 409, ctx.Response.StatusCode())
	})
}

func TestTerminalHandler_Session(t *testing.T) {
	svc := new(MockTerminalService)
	h := NewTerminalHandler(svc)

	svc.On("Session", "T-001").Return(model.Session{TerminalID: "T-001", View: model.ViewIdle})

	ctx := setupTestContext("GET", "/api/v1/terminals/T-001/session", nil)
	ctx.SetUserValue("id", "T-001")
	h.GetSession(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, model.ViewIdle, decodeSession(t, ctx).View)
}
