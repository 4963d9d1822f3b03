package store

import (
	"context"
	"sync"

	"github.com/goran-ethernal/ChainReplay/pkg/events"
)

var _ events.Storage = (*MemoryStorage)(nil)

// MemoryStorage keeps copies of events in a map. Nothing survives a restart.
type MemoryStorage struct {
	mu     sync.RWMutex
	events map[string]*events.IndexedEvent
}

// NewMemoryStorage creates an empty memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{events: make(map[string]*events.IndexedEvent)}
}

func (m *MemoryStorage) Put(_ context.Context, evs ...*events.IndexedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ev := range evs {
		m.events[ev.ID] = ev.Clone()
	}
	return nil
}

func (m *MemoryStorage) Get(_ context.Context, id string) (*events.IndexedEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.events[id]
	if !ok {
		return nil, events.ErrEventNotFound
	}
	return ev.Clone(), nil
}

func (m *MemoryStorage) Scan(ctx context.Context, fn func(*events.IndexedEvent) error) error {
	m.mu.RLock()
	snapshot := make([]*events.IndexedEvent, 0, len(m.events))
	for _, ev := range m.events {
		snapshot = append(snapshot, ev.Clone())
	}
	m.mu.RUnlock()

	for _, ev := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.events, id)
	}
	return nil
}

// Len returns the number of stored events.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.events)
}

func (m *MemoryStorage) Close() error {
	return nil
}
