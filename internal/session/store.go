// Package session holds the authoritative per-terminal session record and
// fans every change out over two channels: an in-process topic for
// same-host display surfaces, and a remote store (redis) for cross-device
// ones. The terminal is the single writer; displays only read.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/pkg/logger"
)

// RemoteStore pushes session snapshots to remote display surfaces.
type RemoteStore interface {
	Push(ctx context.Context, s model.Session) error
}

// Store owns the session of one terminal. All mutations go through Update,
// which stamps LastUpdated and fans the new snapshot out. A remote push
// failure never corrupts or rolls back local state: the in-memory session
// stays the durable source during an outage and ForceResync re-sends it
// wholesale on reconnect.
type Store struct {
	mu      sync.RWMutex
	s       model.Session
	subs    map[int]chan model.Session
	nextSub int
	remote  RemoteStore
	now     func() time.Time

	lastPushErr error
}

func newStore(terminalID string, remote RemoteStore, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		s:      model.NewSession(terminalID),
		subs:   make(map[int]chan model.Session),
		remote: remote,
		now:    now,
	}
}

func (st *Store) Snapshot() model.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return cloneSession(st.s)
}

// Update applies fn to the session, stamps LastUpdated and fans out the
// resulting snapshot. Consecutive updates are applied in submission order;
// the mutex makes the terminal the session's single writer.
func (st *Store) Update(ctx context.Context, fn func(*model.Session)) model.Session {
	st.mu.Lock()
	fn(&st.s)
	st.s.LastUpdated = st.now().UnixMilli()
	snap := cloneSession(st.s)
	st.mu.Unlock()

	st.fanOut(ctx, snap)
	return snap
}

// Reset clears the session back to IDLE defaults. The record itself is
// never deleted, matching the explicit-reset lifecycle.
func (st *Store) Reset(ctx context.Context) model.Session {
	return st.Update(ctx, func(s *model.Session) {
		*s = model.NewSession(s.TerminalID)
	})
}

// Subscribe registers an in-process display surface. The returned cancel
// func must be called when the surface goes away.
func (st *Store) Subscribe() (<-chan model.Session, func()) {
	st.mu.Lock()
	id := st.nextSub
	st.nextSub++
	ch := make(chan model.Session, 16)
	st.subs[id] = ch
	st.mu.Unlock()

	cancel := func() {
		st.mu.Lock()
		if c, ok := st.subs[id]; ok {
			delete(st.subs, id)
			close(c)
		}
		st.mu.Unlock()
	}
	return ch, cancel
}

// ForceResync re-pushes the whole current snapshot to both channels. This
// is the recovery path after a remote outage.
func (st *Store) ForceResync(ctx context.Context) error {
	snap := st.Snapshot()

	st.mu.RLock()
	for _, ch := range st.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	st.mu.RUnlock()

	if st.remote == nil {
		return nil
	}
	err := st.remote.Push(ctx, snap)
	st.mu.Lock()
	st.lastPushErr = err
	st.mu.Unlock()
	return err
}

// LastPushErr reports the outcome of the most recent remote push. A nil
// value means the displays are caught up as of the last update.
func (st *Store) LastPushErr() error {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.lastPushErr
}

func (st *Store) fanOut(ctx context.Context, snap model.Session) {
	st.mu.RLock()
	for _, ch := range st.subs {
		// A slow local subscriber drops intermediate snapshots rather
		// than blocking the writer; it will catch up on the next push.
		select {
		case ch <- snap:
		default:
		}
	}
	st.mu.RUnlock()

	if st.remote == nil {
		return
	}
	err := st.remote.Push(ctx, snap)
	st.mu.Lock()
	st.lastPushErr = err
	st.mu.Unlock()
	if err != nil {
		logger.Warn("session remote push failed, local state kept",
			"terminal_id", snap.TerminalID, "error", err)
	}
}

func cloneSession(s model.Session) model.Session {
	out := s
	out.Cart = make([]model.CartItem, len(s.Cart))
	copy(out.Cart, s.Cart)
	if s.Member != nil {
		m := *s.Member
		out.Member = &m
	}
	if s.LastResult != nil {
		r := *s.LastResult
		out.LastResult = &r
	}
	if s.PendingAction != nil {
		a := *s.PendingAction
		out.PendingAction = &a
	}
	return out
}
