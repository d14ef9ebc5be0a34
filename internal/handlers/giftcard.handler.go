package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"

	"github.com/jeongwonlab/possync/internal/model"
	xhttp "github.com/jeongwonlab/possync/pkg/http"
)

type GiftCardService interface {
	Issue(ctx context.Context, discountRate int, issuerID string) (*model.GiftCard, error)
	Redeem(ctx context.Context, code string) (*model.GiftCard, error)
	List(ctx context.Context, limit, offset int) ([]*model.GiftCard, error)
}

type GiftCardHandler struct {
	svc GiftCardService
}

func NewGiftCardHandler(svc GiftCardService) *GiftCardHandler {
	return &GiftCardHandler{svc: svc}
}

func RegisterGiftCardRoutes(e *router.Group, h *GiftCardHandler) {
	e.POST("/gift-cards", h.Issue)
	e.GET("/gift-cards", h.List)
	e.GET("/gift-cards/{code}", h.Check)
}

type issueGiftCardRequest struct {
	DiscountRate int    `json:"discount_rate"`
	IssuerID     string `json:"issuer_id"`
}

func (h *GiftCardHandler) Issue(ctx *xhttp.RequestCtx) {
	var req issueGiftCardRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	card, err := h.svc.Issue(ctx, req.DiscountRate, req.IssuerID)
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 201, card)
}

// Check validates a code without consuming it.
func (h *GiftCardHandler) Check(ctx *xhttp.RequestCtx) {
	card, err := h.svc.Redeem(ctx, param(ctx, "code"))
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, card)
}

type giftCardListResponse struct {
	Items []*model.GiftCard `json:"items"`
}

func (h *GiftCardHandler) List(ctx *xhttp.RequestCtx) {
	limit, offset := 0, 0
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			offset = n
		}
	}
	items, err := h.svc.List(ctx, limit, offset)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, giftCardListResponse{Items: items})
}
