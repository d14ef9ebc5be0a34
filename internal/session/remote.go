package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeongwonlab/possync/internal/model"
	"github.com/jeongwonlab/possync/pkg/logger"
	"github.com/jeongwonlab/possync/pkg/redis"
)

const (
	sessionKeyPrefix = "session:"
	sessionChannel   = "session-updates:"
)

// RedisRemote mirrors session snapshots into redis so that displays on
// other hosts can read them. Each push writes the full JSON snapshot to
// session:<terminalID> and publishes it on session-updates:<terminalID>.
// The key write gives late joiners the current state; the publish gives
// connected displays the change the moment it happens.
type RedisRemote struct {
	rdb redis.RedisAdapter
}

func NewRedisRemote(rdb redis.RedisAdapter) *RedisRemote {
	return &RedisRemote{rdb: rdb}
}

func (r *RedisRemote) Push(ctx context.Context, s model.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session %q: %w", s.TerminalID, err)
	}
	if err := r.rdb.Set(sessionKeyPrefix+s.TerminalID, payload, 0); err != nil {
		return fmt.Errorf("store session %q: %w", s.TerminalID, err)
	}
	if err := r.rdb.Publish(sessionChannel+s.TerminalID, payload); err != nil {
		return fmt.Errorf("publish session %q: %w", s.TerminalID, err)
	}
	return nil
}

// Fetch loads the last pushed snapshot for a terminal. The bool reports
// whether a snapshot exists yet.
func (r *RedisRemote) Fetch(ctx context.Context, terminalID string) (model.Session, bool, error) {
	payload, err := r.rdb.Get(sessionKeyPrefix + terminalID)
	if err == redis.NilError {
		return model.Session{}, false, nil
	}
	if err != nil {
		return model.Session{}, false, fmt.Errorf("fetch session %q: %w", terminalID, err)
	}
	var s model.Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return model.Session{}, false, fmt.Errorf("decode session %q: %w", terminalID, err)
	}
	return s, true, nil
}

// Watch streams snapshots published for a terminal until ctx is done.
// Malformed payloads are logged and skipped so one bad message cannot
// wedge a display.
func (r *RedisRemote) Watch(ctx context.Context, terminalID string) (<-chan model.Session, error) {
	sub := r.rdb.Subscribe(ctx, sessionChannel+terminalID)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe session %q: %w", terminalID, err)
	}

	out := make(chan model.Session, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var s model.Session
				if err := json.Unmarshal([]byte(msg.Payload), &s); err != nil {
					logger.Warn("dropping malformed session update",
						"terminal_id", terminalID, "error", err)
					continue
				}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
