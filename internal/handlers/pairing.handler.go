package handlers

import (
	"context"

	"github.com/fasthttp/router"

	xhttp "github.com/jeongwonlab/possync/pkg/http"
)

type PairingService interface {
	IssueCode(ctx context.Context, terminalID string) (string, error)
	ResolveCode(ctx context.Context, code string) (string, error)
}

type PairingHandler struct {
	svc PairingService
}

func NewPairingHandler(svc PairingService) *PairingHandler {
	return &PairingHandler{svc: svc}
}

func RegisterPairingRoutes(e *router.Group, h *PairingHandler) {
	e.POST("/terminals/{id}/pairing-code", h.IssueCode)
	e.GET("/pairing-codes/{code}", h.ResolveCode)
}

// IssueCode returns the terminal's pairing code; re-posting is idempotent.
func (h *PairingHandler) IssueCode(ctx *xhttp.RequestCtx) {
	terminalID := param(ctx, "id")
	code, err := h.svc.IssueCode(ctx, terminalID)
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{
		"terminal_id":  terminalID,
		"pairing_code": code,
	})
}

func (h *PairingHandler) ResolveCode(ctx *xhttp.RequestCtx) {
	code := param(ctx, "code")
	terminalID, err := h.svc.ResolveCode(ctx, code)
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, map[string]string{
		"pairing_code": code,
		"terminal_id":  terminalID,
	})
}
