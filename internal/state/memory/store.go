// Package memory stores watch state in-memory for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// Store keeps the WatchState in process memory.
type Store struct {
	mu    sync.RWMutex
	state *watcher.WatchState
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// Load returns the stored state, or watcher.ErrNoState when nothing was saved.
func (s *Store) Load(_ context.Context) (watcher.WatchState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return watcher.WatchState{}, watcher.ErrNoState
	}
	return copyState(*s.state), nil
}

// Save stores a defensive copy of the state.
func (s *Store) Save(_ context.Context, state watcher.WatchState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyState(state)
	s.state = &cp
	return nil
}

func copyState(state watcher.WatchState) watcher.WatchState {
	out := state
	if state.LastFingerprint != nil {
		fp := *state.LastFingerprint
		fp.KeywordHits = append([]string(nil), state.LastFingerprint.KeywordHits...)
		out.LastFingerprint = &fp
	}
	if state.LastNotifiedAt != nil {
		ts := *state.LastNotifiedAt
		out.LastNotifiedAt = &ts
	}
	if state.LastCheckedAt != nil {
		ts := *state.LastCheckedAt
		out.LastCheckedAt = &ts
	}
	return out
}
