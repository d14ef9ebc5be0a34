package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fasthttp/router"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/services"
	xhttp "github.com/jeongwonlab/possync/pkg/http"
)

// TerminalService is the operator-facing surface: everything a staffed
// terminal does to a session.
type TerminalService interface {
	Session(terminalID string) model.Session
	AddItem(ctx context.Context, terminalID string, item model.CartItem) (model.Session, error)
	UpdateQuantity(ctx context.Context, terminalID, itemID string, quantity int) (model.Session, error)
	UpdateDiscount(ctx context.Context, terminalID, itemID string, discount int64) (model.Session, error)
	RemoveItem(ctx context.Context, terminalID, itemID string) (model.Session, error)
	ApplyGiftCard(ctx context.Context, terminalID, code string) (model.Session, error)
	ShowMemo(ctx context.Context, terminalID, memo string, color model.MemoColor) model.Session
	RequestPhoneInput(ctx context.Context, terminalID string) model.Session
	HandlePhoneSubmit(ctx context.Context, terminalID, phone string) (model.Session, error)
	CancelMember(ctx context.Context, terminalID string) model.Session
	ConfirmPayment(ctx context.Context, terminalID, memberID string) (model.Session, error)
	Refund(ctx context.Context, terminalID, transactionID string) (*model.Transaction, error)
	ForceResync(ctx context.Context, terminalID string) error
	Reset(ctx context.Context, terminalID string) model.Session
}

type TerminalHandler struct {
	svc TerminalService
}

func NewTerminalHandler(svc TerminalService) *TerminalHandler {
	return &TerminalHandler{svc: svc}
}

func RegisterTerminalRoutes(e *router.Group, h *TerminalHandler) {
	e.GET("/terminals/{id}/session", h.GetSession)
	e.POST("/terminals/{id}/session/reset", h.ResetSession)
	e.POST("/terminals/{id}/session/resync", h.ForceResync)
	e.POST("/terminals/{id}/memo", h.ShowMemo)

	e.POST("/terminals/{id}/cart/items", h.AddItem)
	e.PUT("/terminals/{id}/cart/items/{itemID}/quantity", h.UpdateQuantity)
	e.PUT("/terminals/{id}/cart/items/{itemID}/discount", h.UpdateDiscount)
	e.DELETE("/terminals/{id}/cart/items/{itemID}", h.RemoveItem)
	e.POST("/terminals/{id}/cart/gift-card", h.ApplyGiftCard)

	e.POST("/terminals/{id}/phone-input", h.RequestPhoneInput)
	e.POST("/terminals/{id}/member/search", h.SearchMember)
	e.POST("/terminals/{id}/member/cancel", h.CancelMember)

	e.POST("/terminals/{id}/payment/confirm", h.ConfirmPayment)
	e.POST("/terminals/{id}/refunds", h.Refund)
}

func (h *TerminalHandler) GetSession(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, h.svc.Session(param(ctx, "id")))
}

func (h *TerminalHandler) ResetSession(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, h.svc.Reset(ctx, param(ctx, "id")))
}

func (h *TerminalHandler) ForceResync(ctx *xhttp.RequestCtx) {
	if err := h.svc.ForceResync(ctx, param(ctx, "id")); err != nil {
		writeError(ctx, 502, "resync failed: "+err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{"status": "synced"})
}

type memoRequest struct {
	Memo  string `json:"memo"`
	Color string `json:"color"`
}

func (h *TerminalHandler) ShowMemo(ctx *xhttp.RequestCtx) {
	var req memoRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	sess := h.svc.ShowMemo(ctx, param(ctx, "id"), req.Memo, model.MemoColor(req.Color))
	writeJSON(ctx, 200, sess)
}

type addItemRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Remark    string `json:"remark"`
	IsSpecial bool   `json:"is_special"`
}

func (h *TerminalHandler) AddItem(ctx *xhttp.RequestCtx) {
	var req addItemRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(ctx, 400, "item id is required")
		return
	}
	sess, err := h.svc.AddItem(ctx, param(ctx, "id"), model.CartItem{
		ID:        req.ID,
		Name:      req.Name,
		UnitPrice: req.UnitPrice,
		Remark:    req.Remark,
		IsSpecial: req.IsSpecial,
	})
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, sess)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *TerminalHandler) UpdateQuantity(ctx *xhttp.RequestCtx) {
	var req quantityRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	sess, err := h.svc.UpdateQuantity(ctx, param(ctx, "id"), param(ctx, "itemID"), req.Quantity)
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, sess)
}

type discountRequest struct {
	Discount int64 `json:"discount"`
}

func (h *TerminalHandler) UpdateDiscount(ctx *xhttp.RequestCtx) {
	var req discountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	sess, err := h.svc.UpdateDiscount(ctx, param(ctx, "id"), param(ctx, "itemID"), req.Discount)
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, sess)
}

func (h *TerminalHandler) RemoveItem(ctx *xhttp.RequestCtx) {
	sess, err := h.svc.RemoveItem(ctx, param(ctx, "id"), param(ctx, "itemID"))
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, sess)
}

type giftCardApplyRequest struct {
	Code string `json:"code"`
}

func (h *TerminalHandler) ApplyGiftCard(ctx *xhttp.RequestCtx) {
	var req giftCardApplyRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	sess, err := h.svc.ApplyGiftCard(ctx, param(ctx, "id"), req.Code)
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, sess)
}

func (h *TerminalHandler) RequestPhoneInput(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, h.svc.RequestPhoneInput(ctx, param(ctx, "id")))
}

type searchMemberRequest struct {
	Phone string `json:"phone"`
}

func (h *TerminalHandler) SearchMember(ctx *xhttp.RequestCtx) {
	var req searchMemberRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	sess, err := h.svc.HandlePhoneSubmit(ctx, param(ctx, "id"), req.Phone)
	if err != nil {
		if errors.Is(err, services.ErrMemberNotFound) {
			// The session already carries the failure; the operator sees
			// both the 404 and the updated view.
			writeJSON(ctx, 404, sess)
			return
		}
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, sess)
}

func (h *TerminalHandler) CancelMember(ctx *xhttp.RequestCtx) {
	writeJSON(ctx, 200, h.svc.CancelMember(ctx, param(ctx, "id")))
}

type confirmPaymentRequest struct {
	MemberID string `json:"member_id"`
}

func (h *TerminalHandler) ConfirmPayment(ctx *xhttp.RequestCtx) {
	var req confirmPaymentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.MemberID == "" {
		writeError(ctx, 400, "member_id is required")
		return
	}
	sess, err := h.svc.ConfirmPayment(ctx, param(ctx, "id"), req.MemberID)
	if err != nil {
		writeJSON(ctx, errStatus(err), sess)
		return
	}
	writeJSON(ctx, 200, sess)
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
}

func (h *TerminalHandler) Refund(ctx *xhttp.RequestCtx) {
	var req refundRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	txn, err := h.svc.Refund(ctx, param(ctx, "id"), req.TransactionID)
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 201, txn)
}

// errStatus maps service errors onto HTTP statuses; anything unmapped is a
// plain 400 so handler code stays out of the business rules.
func errStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrTransactionMissing),
		errors.Is(err, services.ErrGiftCardNotFound),
		errors.Is(err, services.ErrTerminalNotFound),
		errors.Is(err, services.ErrUnknownPairingCode):
		return 404
	case errors.Is(err, services.ErrInsufficientPoints):
		return 402
	case errors.Is(err, services.ErrAlreadyRefunded),
		errors.Is(err, services.ErrGiftCardUsed):
		return 409
	default:
		return 400
	}
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

func param(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}
