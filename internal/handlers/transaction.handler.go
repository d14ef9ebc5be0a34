package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/repository"
	xhttp "github.com/jeongwonlab/possync/pkg/http"
)

type TransactionService interface {
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*model.Transaction, error)
}

type TransactionHandler struct {
	svc TransactionService
}

func NewTransactionHandler(svc TransactionService) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

func RegisterTransactionRoutes(e *router.Group, h *TransactionHandler) {
	e.GET("/transactions", h.List)
	e.GET("/transactions/{id}", h.Get)
}

func (h *TransactionHandler) Get(ctx *xhttp.RequestCtx) {
	txn, err := h.svc.GetTransaction(ctx, param(ctx, "id"))
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, txn)
}

type transactionListResponse struct {
	Items []*model.Transaction `json:"items"`
}

func (h *TransactionHandler) List(ctx *xhttp.RequestCtx) {
	var f repository.TransactionFilter

	if v := query(ctx, "member_id"); v != "" {
		f.MemberID = &v
	}
	if v := query(ctx, "type"); v != "" {
		tt := model.TransactionType(v)
		f.Type = &tt
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Offset = n
		}
	}

	items, err := h.svc.ListTransactions(ctx, f)
	if err != nil {
		writeError(ctx, 400, err.Error())
		return
	}
	writeJSON(ctx, 200, transactionListResponse{Items: items})
}
