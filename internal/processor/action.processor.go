package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/queue"
	"github.com/jeongwonlab/possync/internal/services"
	"github.com/jeongwonlab/possync/pkg/logger"
	"github.com/jeongwonlab/possync/pkg/prom"
)

// ActionDispatcher is the terminal-side surface an action lands on. The
// dispatcher clears the session's pending-action marker itself when it
// handles an action; ClearPendingAction covers the ones it never sees.
type ActionDispatcher interface {
	HandlePhoneSubmit(ctx context.Context, terminalID, phone string) (model.Session, error)
	ClearPendingAction(ctx context.Context, terminalID, actionID string)
}

// ActionProcessor turns queued display actions into terminal service
// calls. Before dispatching it enforces the freshness window, dropping
// stale actions silently, and takes a redis lock keyed by action id so a
// redelivered action is handled exactly once across restarts.
type ActionProcessor struct {
	dispatcher  ActionDispatcher
	idempotency *IdempotencyService
	metrics     *ServiceMetrics
	freshness   time.Duration
	now         func() time.Time
}

func NewActionProcessor(dispatcher ActionDispatcher, idempotency *IdempotencyService, metrics *ServiceMetrics, freshness time.Duration) *ActionProcessor {
	return &ActionProcessor{
		dispatcher:  dispatcher,
		idempotency: idempotency,
		metrics:     metrics,
		freshness:   freshness,
		now:         time.Now,
	}
}

func (p *ActionProcessor) GetType() string {
	return "display-action"
}

func (p *ActionProcessor) Process(ctx context.Context, msg *queue.Message) error {
	var action model.Action
	if err := json.Unmarshal(msg.Data, &action); err != nil {
		// Malformed payloads will not improve on retry.
		logger.Error("Dropping undecodable action", "queue_message_id", msg.ID, "error", err)
		return nil
	}

	terminalID := msg.Metadata["terminal_id"]
	if terminalID == "" {
		logger.Error("Dropping action without terminal id", "action_id", action.ID)
		return nil
	}

	// Freshness window: an action older than the window is from a display
	// the customer already walked away from. Dropped, not failed.
	if age := action.Age(p.now()); age > p.freshness {
		if p.metrics != nil {
			p.metrics.RecordStale()
		}
		prom.IncActionStale()
		logger.Info("Dropping stale action",
			"action_id", action.ID,
			"terminal_id", terminalID,
			"age_ms", age.Milliseconds())
		p.dispatcher.ClearPendingAction(ctx, terminalID, action.ID)
		return nil
	}

	pc, err := p.idempotency.AcquireProcessingLock(ctx, action.ID)
	if err != nil {
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		if errors.Is(err, ErrLockAcquireFailed) {
			// Another consumer holds it; let the visibility timeout sort
			// out redelivery.
			return nil
		}
		if errors.Is(err, ErrMaxRetriesExceeded) {
			logger.Error("Giving up on action", "action_id", action.ID)
			return nil
		}
		return fmt.Errorf("acquire action lock: %w", err)
	}

	started := p.now()
	if err := p.dispatch(ctx, terminalID, action); err != nil {
		_ = p.idempotency.MarkFailure(ctx, pc, err)
		return err
	}
	prom.AddActionProcessedDuration(time.Since(started).Seconds(), string(action.Type))

	return p.idempotency.MarkSuccess(ctx, pc)
}

func (p *ActionProcessor) dispatch(ctx context.Context, terminalID string, action model.Action) error {
	switch action.Type {
	case model.ActionPhoneSubmit:
		phone := action.Payload["phone"]
		if phone == "" {
			logger.Warn("Phone submit without digits", "action_id", action.ID, "terminal_id", terminalID)
			p.dispatcher.ClearPendingAction(ctx, terminalID, action.ID)
			return nil
		}
		_, err := p.dispatcher.HandlePhoneSubmit(ctx, terminalID, phone)
		if errors.Is(err, services.ErrMemberNotFound) {
			// A complete outcome: the session already shows the failure
			// to the customer.
			return nil
		}
		return err
	default:
		logger.Warn("Unknown action type", "action_id", action.ID, "type", string(action.Type))
		p.dispatcher.ClearPendingAction(ctx, terminalID, action.ID)
		return nil
	}
}
