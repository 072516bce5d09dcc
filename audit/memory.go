package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps events in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MemoryStore) ByCompany(_ context.Context, companyID string, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filter(func(e Event) bool { return e.CompanyID == companyID }, limit), nil
}

func (m *MemoryStore) ByUser(_ context.Context, userID string, limit int) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filter(func(e Event) bool { return e.UserID == userID }, limit), nil
}

// filter walks newest-first. Callers hold the read lock.
func (m *MemoryStore) filter(keep func(Event) bool, limit int) []Event {
	out := []Event{}
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if keep(m.events[i]) {
			out = append(out, m.events[i])
		}
	}
	return out
}

// Reset discards all events. Used by the demo reset endpoint.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}
