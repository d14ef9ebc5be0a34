package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jeongwonlab/possync/internal/cart"
	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/repository"
	"github.com/jeongwonlab/possync/internal/session"
	"github.com/jeongwonlab/possync/internal/view"
	"github.com/jeongwonlab/possync/pkg/logger"
)

// TerminalService drives the staffed side of a sale. It owns one cart
// engine per terminal, mutates the session through the store's single
// writer, and hands the money movement to the payment service. All session
// writes for one terminal are serialized behind the per-terminal mutex, so
// the display always observes a consistent ordering.
type TerminalService struct {
	registry  *session.Registry
	members   MemberRepository
	payments  *PaymentService
	giftCards *GiftCardService

	storeName  string
	vatRate    int
	resetDelay time.Duration

	mu     sync.Mutex
	carts  map[string]*cart.Engine
	resets map[string]*time.Timer
}

func NewTerminalService(
	registry *session.Registry,
	members MemberRepository,
	payments *PaymentService,
	giftCards *GiftCardService,
	storeName string,
	vatRate int,
	resetDelay time.Duration,
) *TerminalService {
	return &TerminalService{
		registry:   registry,
		members:    members,
		payments:   payments,
		giftCards:  giftCards,
		storeName:  storeName,
		vatRate:    vatRate,
		resetDelay: resetDelay,
		carts:      make(map[string]*cart.Engine),
		resets:     make(map[string]*time.Timer),
	}
}

func (s *TerminalService) Session(terminalID string) model.Session {
	return s.registry.Get(terminalID).Snapshot()
}

func (s *TerminalService) AddItem(ctx context.Context, terminalID string, item model.CartItem) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	eng := s.cartLocked(terminalID)
	eng.AddItem(item)
	return s.syncCartLocked(ctx, terminalID, eng), nil
}

func (s *TerminalService) UpdateQuantity(ctx context.Context, terminalID, itemID string, quantity int) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	eng := s.cartLocked(terminalID)
	eng.UpdateQuantity(itemID, quantity)
	return s.syncCartLocked(ctx, terminalID, eng), nil
}

func (s *TerminalService) UpdateDiscount(ctx context.Context, terminalID, itemID string, discount int64) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	eng := s.cartLocked(terminalID)
	eng.UpdateDiscount(itemID, discount)
	return s.syncCartLocked(ctx, terminalID, eng), nil
}

func (s *TerminalService) RemoveItem(ctx context.Context, terminalID, itemID string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	eng := s.cartLocked(terminalID)
	eng.RemoveItem(itemID)
	return s.syncCartLocked(ctx, terminalID, eng), nil
}

// ApplyGiftCard validates the code and spreads its discount rate across
// the current cart lines. The card itself stays active until the sale
// completes.
func (s *TerminalService) ApplyGiftCard(ctx context.Context, terminalID, code string) (model.Session, error) {
	card, err := s.giftCards.Redeem(ctx, code)
	if err != nil {
		return model.Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	eng := s.cartLocked(terminalID)
	eng.ApplyGiftRate(card.Code, card.DiscountRate)
	return s.syncCartLocked(ctx, terminalID, eng), nil
}

// ShowMemo pushes a short operator note to the displays without changing
// the view.
func (s *TerminalService) ShowMemo(ctx context.Context, terminalID, memo string, color model.MemoColor) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registry.Get(terminalID).Update(ctx, func(sess *model.Session) {
		sess.Memo = memo
		sess.MemoColor = color
	})
}

// RequestPhoneInput asks the customer display for a phone number.
func (s *TerminalService) RequestPhoneInput(ctx context.Context, terminalID string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	return s.setViewLocked(ctx, terminalID, model.ViewPhoneInput, func(sess *model.Session) {
		sess.ErrorMessage = ""
	})
}

// NotePendingAction records a display-submitted action on the session so
// every display can show that input is in flight while the stream catches
// up with it.
func (s *TerminalService) NotePendingAction(ctx context.Context, terminalID string, action model.Action) model.Session {
	return s.registry.Get(terminalID).Update(ctx, func(sess *model.Session) {
		sess.PendingAction = &action
	})
}

// ClearPendingAction drops the in-flight marker once its action has been
// handled or discarded. A newer pending action is left alone.
func (s *TerminalService) ClearPendingAction(ctx context.Context, terminalID, actionID string) {
	s.registry.Get(terminalID).Update(ctx, func(sess *model.Session) {
		if sess.PendingAction != nil && sess.PendingAction.ID == actionID {
			sess.PendingAction = nil
		}
	})
}

// HandlePhoneSubmit resolves the submitted digits to a member. On a match
// the session moves to MEMBER_CONFIRM and waits for explicit operator
// approval; nothing is charged here. No match keeps the cart and the
// PHONE_INPUT view so the customer can retry, with the failure surfaced in
// ErrorMessage.
func (s *TerminalService) HandlePhoneSubmit(ctx context.Context, terminalID, phone string) (model.Session, error) {
	member, err := s.members.FindByPhoneQuery(ctx, phone)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			sess := s.setViewLocked(ctx, terminalID, model.ViewPhoneInput, func(sess *model.Session) {
				sess.Member = nil
				sess.ErrorMessage = "member not found"
				sess.PendingAction = nil
			})
			return sess, ErrMemberNotFound
		}
		return model.Session{}, fmt.Errorf("resolve member: %w", err)
	}

	sess := s.setViewLocked(ctx, terminalID, model.ViewMemberConfirm, func(sess *model.Session) {
		sess.Member = member.Snapshot()
		sess.ErrorMessage = ""
		sess.PendingAction = nil
	})
	return sess, nil
}

// CancelMember drops the resolved member and returns to the cart.
func (s *TerminalService) CancelMember(ctx context.Context, terminalID string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	return s.setViewLocked(ctx, terminalID, model.ViewCart, func(sess *model.Session) {
		sess.Member = nil
	})
}

// ConfirmPayment is the operator's explicit approval. It walks the session
// through PROCESSING, completes the sale atomically and lands on SUCCESS
// with the result, or on ERROR with the failure. Both end states arm the
// timed reset back to IDLE.
func (s *TerminalService) ConfirmPayment(ctx context.Context, terminalID, memberID string) (model.Session, error) {
	s.mu.Lock()
	s.cancelResetLocked(terminalID)
	eng := s.cartLocked(terminalID)
	items := eng.Items()
	totals := eng.Totals(s.vatRate)
	s.setViewLocked(ctx, terminalID, model.ViewProcessing, nil)
	s.mu.Unlock()

	txn, balance, err := s.payments.CompleteSale(ctx, memberID, items, SaleTotals{
		Subtotal: totals.Subtotal,
		VAT:      totals.VAT,
		Final:    totals.Final,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		sess := s.setViewLocked(ctx, terminalID, model.ViewError, func(sess *model.Session) {
			sess.ErrorMessage = paymentErrorMessage(err)
		})
		s.scheduleResetLocked(terminalID)
		return sess, err
	}

	eng.Clear()
	sess := s.setViewLocked(ctx, terminalID, model.ViewSuccess, func(sess *model.Session) {
		sess.Cart = []model.CartItem{}
		sess.Total = 0
		sess.LastResult = &model.PaymentResult{
			Message:          fmt.Sprintf("%s: payment of %d points complete", s.storeName, txn.FinalAmount),
			ResultingBalance: balance,
		}
		sess.ErrorMessage = ""
	})
	s.scheduleResetLocked(terminalID)
	return sess, nil
}

// Refund reverses a completed sale and notifies the terminal's displays
// through the memo line. The ledger work happens in the payment service.
func (s *TerminalService) Refund(ctx context.Context, terminalID, transactionID string) (*model.Transaction, error) {
	txn, balance, err := s.payments.Refund(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	s.ShowMemo(ctx, terminalID,
		fmt.Sprintf("refunded %d points, balance %d", txn.FinalAmount, balance),
		model.MemoColorBlue)
	return txn, nil
}

func (s *TerminalService) ForceResync(ctx context.Context, terminalID string) error {
	return s.registry.Get(terminalID).ForceResync(ctx)
}

func (s *TerminalService) Reset(ctx context.Context, terminalID string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelResetLocked(terminalID)

	s.cartLocked(terminalID).Clear()
	return s.registry.Get(terminalID).Reset(ctx)
}

// cartLocked returns the terminal's engine, creating it on first touch.
// Caller holds s.mu.
func (s *TerminalService) cartLocked(terminalID string) *cart.Engine {
	eng, ok := s.carts[terminalID]
	if !ok {
		eng = cart.NewEngine()
		s.carts[terminalID] = eng
	}
	return eng
}

func (s *TerminalService) syncCartLocked(ctx context.Context, terminalID string, eng *cart.Engine) model.Session {
	totals := eng.Totals(s.vatRate)
	if err := eng.Validate(); err != nil {
		logger.Warn("cart totals out of range", "terminal_id", terminalID, "error", err)
	}
	return s.setViewLocked(ctx, terminalID, model.ViewCart, func(sess *model.Session) {
		sess.Cart = eng.Items()
		sess.Total = totals.Final
	})
}

func (s *TerminalService) setViewLocked(ctx context.Context, terminalID string, next model.View, mutate func(*model.Session)) model.Session {
	st := s.registry.Get(terminalID)
	cur := st.Snapshot().View
	if !view.Allowed(cur, next) {
		logger.Debug("unexpected view jump", "terminal_id", terminalID,
			"from", string(cur), "to", string(next))
	}
	return st.Update(ctx, func(sess *model.Session) {
		sess.View = view.Normalize(next)
		sess.StoreName = s.storeName
		if mutate != nil {
			mutate(sess)
		}
	})
}

// scheduleResetLocked arms the timed return to IDLE after a terminal view.
// Any operator activity before it fires cancels it.
func (s *TerminalService) scheduleResetLocked(terminalID string) {
	if s.resetDelay <= 0 {
		return
	}
	if t, ok := s.resets[terminalID]; ok {
		t.Stop()
	}
	s.resets[terminalID] = time.AfterFunc(s.resetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.resets, terminalID)

		if !view.Terminal(s.registry.Get(terminalID).Snapshot().View) {
			return
		}
		s.cartLocked(terminalID).Clear()
		s.registry.Get(terminalID).Reset(context.Background())
	})
}

func (s *TerminalService) cancelResetLocked(terminalID string) {
	if t, ok := s.resets[terminalID]; ok {
		t.Stop()
		delete(s.resets, terminalID)
	}
}

func paymentErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient points"
	case errors.Is(err, ErrMemberNotFound):
		return "member not found"
	case errors.Is(err, ErrEmptyCart):
		return "cart is empty"
	default:
		return "payment failed"
	}
}
