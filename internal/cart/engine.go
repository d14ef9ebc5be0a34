// Package cart implements the terminal-side cart and pricing rules.
package cart

import (
	"fmt"

	"github.com/jeongwonlab/possync/internal/model"
)

// Engine maintains the ordered line items of one terminal's cart. It is not
// safe for concurrent use; the terminal service serializes access, matching
// the single-writer model of the session it feeds.
type Engine struct {
	items []model.CartItem
}

func NewEngine() *Engine {
	return &Engine{items: []model.CartItem{}}
}

// AddItem merges by product id: an existing line gains one unit, a new
// product appends a fresh line with quantity 1 and no discount.
func (e *Engine) AddItem(item model.CartItem) {
	for i := range e.items {
		if e.items[i].ID == item.ID {
			e.items[i].Quantity++
			return
		}
	}
	item.Quantity = 1
	item.Discount = 0
	e.items = append(e.items, item)
}

// UpdateQuantity ignores n < 1 rather than erroring, so a display keypad
// clearing to zero never empties a line by accident.
func (e *Engine) UpdateQuantity(id string, n int) {
	if n < 1 {
		return
	}
	for i := range e.items {
		if e.items[i].ID == id {
			e.items[i].Quantity = n
			return
		}
	}
}

// UpdateDiscount clamps negative amounts to 0.
func (e *Engine) UpdateDiscount(id string, amount int64) {
	if amount < 0 {
		amount = 0
	}
	for i := range e.items {
		if e.items[i].ID == id {
			e.items[i].Discount = amount
			return
		}
	}
}

func (e *Engine) RemoveItem(id string) {
	for i := range e.items {
		if e.items[i].ID == id {
			e.items = append(e.items[:i], e.items[i+1:]...)
			return
		}
	}
}

// ApplyGiftRate sets every current line's discount to
// floor(unitPrice*rate/100). Reapplying is idempotent: the last rate wins.
func (e *Engine) ApplyGiftRate(code string, rate int) {
	for i := range e.items {
		e.items[i].Discount = e.items[i].UnitPrice * int64(rate) / 100
		e.items[i].GiftCardCode = code
	}
}

// Subtotal is the literal sum of line totals. There is no floor at zero:
// discounts larger than the price produce a negative subtotal, which
// Validate reports but Subtotal faithfully returns.
func (e *Engine) Subtotal() int64 {
	var sum int64
	for _, it := range e.items {
		sum += it.LineTotal()
	}
	return sum
}

type Totals struct {
	Subtotal int64 `json:"subtotal"`
	VAT      int64 `json:"vat"`
	Final    int64 `json:"final"`
}

// Totals computes the amount presented for payment. VAT is an explicit
// separate component, never folded into line prices; vatRate 0 disables it.
func (e *Engine) Totals(vatRate int) Totals {
	sub := e.Subtotal()
	var vat int64
	if vatRate > 0 {
		vat = sub * int64(vatRate) / 100
	}
	return Totals{Subtotal: sub, VAT: vat, Final: sub + vat}
}

// Validate reports a cart whose discounts exceed its prices. The engine
// still computes such carts; the caller decides whether to block checkout.
func (e *Engine) Validate() error {
	if e.Subtotal() < 0 {
		return fmt.Errorf("cart subtotal is negative: discounts exceed prices")
	}
	return nil
}

func (e *Engine) Items() []model.CartItem {
	out := make([]model.CartItem, len(e.items))
	copy(out, e.items)
	return out
}

func (e *Engine) SetItems(items []model.CartItem) {
	e.items = make([]model.CartItem, len(items))
	copy(e.items, items)
}

func (e *Engine) Len() int { return len(e.items) }

func (e *Engine) Clear() { e.items = []model.CartItem{} }
