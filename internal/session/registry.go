package session

import (
	"sync"
	"time"
)

// Registry hands out one Store per terminal ID. Stores are created lazily
// on first access and live for the process lifetime; sessions are only
// ever reset, never garbage collected.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	remote RemoteStore
	now    func() time.Time
}

func NewRegistry(remote RemoteStore) *Registry {
	return &Registry{
		stores: make(map[string]*Store),
		remote: remote,
		now:    time.Now,
	}
}

// WithClock overrides the registry clock. Test hook.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func (r *Registry) Get(terminalID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stores[terminalID]
	if !ok {
		st = newStore(terminalID, r.remote, r.now)
		r.stores[terminalID] = st
	}
	return st
}

// TerminalIDs lists terminals with a live store, in no particular order.
func (r *Registry) TerminalIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	return ids
}
