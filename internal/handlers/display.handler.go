package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"

	"github.com/jeongwonlab/possync/internal/model"
	xhttp "github.com/jeongwonlab/possync/pkg/http"
)

type DisplayKeyResolver interface {
	ResolveDisplayKey(ctx context.Context, key string) (string, error)
}

type SessionReader interface {
	Session(terminalID string) model.Session
	NotePendingAction(ctx context.Context, terminalID string, action model.Action) model.Session
}

type ActionPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// DisplayHandler is the customer-facing surface. A display addresses its
// terminal by pairing code or raw terminal id; both resolve to the same
// session. Reads come straight from the session store; the only write
// path a display has is submitting an Action onto the stream.
type DisplayHandler struct {
	resolver DisplayKeyResolver
	sessions SessionReader
	actions  ActionPublisher
}

func NewDisplayHandler(resolver DisplayKeyResolver, sessions SessionReader, actions ActionPublisher) *DisplayHandler {
	return &DisplayHandler{
		resolver: resolver,
		sessions: sessions,
		actions:  actions,
	}
}

func RegisterDisplayRoutes(e *router.Group, h *DisplayHandler) {
	e.GET("/displays/{key}/session", h.GetSession)
	e.POST("/displays/{key}/actions", h.SubmitAction)
}

func (h *DisplayHandler) GetSession(ctx *xhttp.RequestCtx) {
	terminalID, err := h.resolver.ResolveDisplayKey(ctx, param(ctx, "key"))
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}
	writeJSON(ctx, 200, h.sessions.Session(terminalID))
}

type submitActionRequest struct {
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload"`
	Timestamp int64             `json:"timestamp"`
}

func (h *DisplayHandler) SubmitAction(ctx *xhttp.RequestCtx) {
	terminalID, err := h.resolver.ResolveDisplayKey(ctx, param(ctx, "key"))
	if err != nil {
		writeError(ctx, errStatus(err), err.Error())
		return
	}

	var req submitActionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, 400, "invalid JSON: "+err.Error())
		return
	}
	if req.Type == "" {
		writeError(ctx, 400, "action type is required")
		return
	}

	action := model.Action{
		ID:        uuid.NewString(),
		Type:      model.ActionType(req.Type),
		Payload:   req.Payload,
		Timestamp: req.Timestamp,
	}
	// Displays with no clock of their own can omit the timestamp; the
	// freshness window then runs from receipt.
	if action.Timestamp == 0 {
		action.Timestamp = time.Now().UnixMilli()
	}

	if _, err := h.actions.PublishJSON(ctx, action, map[string]string{"terminal_id": terminalID}); err != nil {
		writeError(ctx, 502, "enqueue action: "+err.Error())
		return
	}
	// Mark the action as in flight so displays can render it until the
	// processor picks it up.
	h.sessions.NotePendingAction(ctx, terminalID, action)
	writeJSON(ctx, 202, map[string]string{
		"action_id":   action.ID,
		"terminal_id": terminalID,
	})
}
