package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/internal/queue"
	"github.com/jeongwonlab/possync/pkg/redis"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) HandlePhoneSubmit(ctx context.Context, terminalID, phone string) (model.Session, error) {
	args := m.Called(ctx, terminalID, phone)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *mockDispatcher) ClearPendingAction(ctx context.Context, terminalID, actionID string) {
	m.Called(ctx, terminalID, actionID)
}

func setupActionProcessor(t *testing.T, dispatcher *mockDispatcher, now func() time.Time) *ActionProcessor {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	connName := t.Name() + "-" + mr.Addr()
	adapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	idem := NewIdempotencyService(adapter, DefaultIdempotencyConfig())
	p := NewActionProcessor(dispatcher, idem, NewServiceMetrics(), 5*time.Second)
	if now != nil {
		p.now = now
	}
	return p
}

func actionMessage(t *testing.T, action model.Action, terminalID string) *queue.Message {
	data, err := json.Marshal(action)
	require.NoError(t, err)
	return &queue.Message{
		ID:       "q-" + action.ID,
		Data:     data,
		Metadata: map[string]string{"terminal_id": terminalID},
	}
}

func TestActionProcessor_FreshActionDispatched(t *testing.T) {
	dispatcher := new(mockDispatcher)
	base := time.UnixMilli(1700000000000)
	p := setupActionProcessor(t, dispatcher, func() time.Time { return base })
	ctx := context.Background()

	action := model.Action{
		ID:        "a-1",
		Type:      model.ActionPhoneSubmit,
		Payload:   map[string]string{"phone": "5678"},
		Timestamp: base.Add(-time.Second).UnixMilli(),
	}

	dispatcher.On("HandlePhoneSubmit", mock.Anything, "T-001", "5678").
		Return(model.Session{View: model.ViewMemberConfirm}, nil)

	err := p.Process(ctx, actionMessage(t, action, "T-001"))
	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestActionProcessor_StaleActionDroppedSilently(t *testing.T) {
	dispatcher := new(mockDispatcher)
	base := time.UnixMilli(1700000000000)
	p := setupActionProcessor(t, dispatcher, func() time.Time { return base })
	ctx := context.Background()

	action := model.Action{
		ID:        "a-2",
		Type:      model.ActionPhoneSubmit,
		Payload:   map[string]string{"phone": "5678"},
		Timestamp: base.Add(-6 * time.Second).UnixMilli(),
	}

	dispatcher.On("ClearPendingAction", mock.Anything, "T-001", "a-2").Return()

	// Stale is an ack, never an error: retrying cannot make it fresher.
	err := p.Process(ctx, actionMessage(t, action, "T-001"))
	assert.NoError(t, err)
	dispatcher.AssertNotCalled(t, "HandlePhoneSubmit", mock.Anything, mock.Anything, mock.Anything)
	// The in-flight marker must not outlive the dropped action.
	dispatcher.AssertCalled(t, "ClearPendingAction", mock.Anything, "T-001", "a-2")
}

func TestActionProcessor_BoundaryAge(t *testing.T) {
	dispatcher := new(mockDispatcher)
	base := time.UnixMilli(1700000000000)
	p := setupActionProcessor(t, dispatcher, func() time.Time { return base })
	ctx := context.Background()

	// Exactly at the window edge still dispatches.
	action := model.Action{
		ID:        "a-3",
		Type:      model.ActionPhoneSubmit,
		Payload:   map[string]string{"phone": "5678"},
		Timestamp: base.Add(-5 * time.Second).UnixMilli(),
	}

	dispatcher.On("HandlePhoneSubmit", mock.Anything, "T-001", "5678").
		Return(model.Session{}, nil)

	err := p.Process(ctx, actionMessage(t, action, "T-001"))
	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestActionProcessor_RedeliveryIsIdempotent(t *testing.T) {
	dispatcher := new(mockDispatcher)
	base := time.UnixMilli(1700000000000)
	p := setupActionProcessor(t, dispatcher, func() time.Time { return base })
	ctx := context.Background()

	action := model.Action{
		ID:        "a-4",
		Type:      model.ActionPhoneSubmit,
		Payload:   map[string]string{"phone": "5678"},
		Timestamp: base.UnixMilli(),
	}

	dispatcher.On("HandlePhoneSubmit", mock.Anything, "T-001", "5678").
		Return(model.Session{}, nil).Once()

	msg := actionMessage(t, action, "T-001")
	require.NoError(t, p.Process(ctx, msg))
	// Second delivery of the same action id is acked without dispatching.
	require.NoError(t, p.Process(ctx, msg))
	dispatcher.AssertNumberOfCalls(t, "HandlePhoneSubmit", 1)
}

func TestActionProcessor_JunkInputAcked(t *testing.T) {
	dispatcher := new(mockDispatcher)
	p := setupActionProcessor(t, dispatcher, nil)
	ctx := context.Background()

	t.Run("undecodable payload", func(t *testing.T) {
		err := p.Process(ctx, &queue.Message{
			ID:       "q-bad",
			Data:     []byte("not json"),
			Metadata: map[string]string{"terminal_id": "T-001"},
		})
		assert.NoError(t, err)
	})

	t.Run("missing terminal id", func(t *testing.T) {
		action := model.Action{ID: "a-5", Type: model.ActionPhoneSubmit, Timestamp: time.Now().UnixMilli()}
		data, _ := json.Marshal(action)
		err := p.Process(ctx, &queue.Message{ID: "q-5", Data: data, Metadata: map[string]string{}})
		assert.NoError(t, err)
	})

	t.Run("unknown action type", func(t *testing.T) {
		action := model.Action{ID: "a-6", Type: "DANCE", Timestamp: time.Now().UnixMilli()}
		dispatcher.On("ClearPendingAction", mock.Anything, "T-001", "a-6").Return()
		err := p.Process(ctx, actionMessage(t, action, "T-001"))
		assert.NoError(t, err)
		dispatcher.AssertCalled(t, "ClearPendingAction", mock.Anything, "T-001", "a-6")
	})

	t.Run("phone submit without digits", func(t *testing.T) {
		action := model.Action{ID: "a-7", Type: model.ActionPhoneSubmit, Payload: map[string]string{}, Timestamp: time.Now().UnixMilli()}
		dispatcher.On("ClearPendingAction", mock.Anything, "T-001", "a-7").Return()
		err := p.Process(ctx, actionMessage(t, action, "T-001"))
		assert.NoError(t, err)
	})

	dispatcher.AssertNotCalled(t, "HandlePhoneSubmit", mock.Anything, mock.Anything, mock.Anything)
}
