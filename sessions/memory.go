package sessions

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process Store.
type Memory struct {
	mu    sync.RWMutex
	items map[string]State
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]State), now: time.Now}
}

func (m *Memory) Get(ctx context.Context, userID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.items[userID]
	if !ok {
		return Initial(), nil
	}
	st.Results = append([]string(nil), st.Results...)
	return st, nil
}

func (m *Memory) Put(ctx context.Context, userID string, st State) error {
	st.LastActivity = m.now()
	st.Results = append([]string(nil), st.Results...)
	m.mu.Lock()
	m.items[userID] = st
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	delete(m.items, userID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Sweep(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, st := range m.items {
		if st.LastActivity.Before(cutoff) {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of tracked sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
