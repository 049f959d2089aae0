// internal/common/audit/memory.go
package audit

import (
	"context"
	"sync"
)

// MemoryStore keeps events in process. Used by tests and local runs without Postgres.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Name() string { return "memory" }

func (m *MemoryStore) Append(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything appended so far, in order.
func (m *MemoryStore) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Event
	for i := range m.events {
		e := m.events[i]
		if filter.NewestFirst {
			e = m.events[len(m.events)-1-i]
		}
		if !filter.matches(e) {
			continue
		}
		out = append(out, e)
		if len(out) == filter.limit() {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) DecisionSummary(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := map[string]int{}
	for _, e := range m.events {
		if e.EventType != EventEligibilityDecision {
			continue
		}
		if d, ok := e.OutputSnapshot["decision"].(string); ok {
			summary[d]++
		}
	}
	return summary, nil
}
