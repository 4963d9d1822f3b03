package replay

import (
	"context"
	"slices"
	"sync"
	"time"

	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
)

// Checkpoint is the resumable position of a replay session.
type Checkpoint struct {
	SessionID     string           `json:"sessionId"`
	Config        pkgreplay.Config `json:"config"`
	FromBlock     uint64           `json:"fromBlock"`
	ToBlock       uint64           `json:"toBlock"`
	NextBlock     uint64           `json:"nextBlock"`
	Status        pkgreplay.Status `json:"status"`
	Error         string           `json:"error,omitempty"`
	EventsIndexed int              `json:"eventsIndexed"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Resumable reports whether blocks remain to be replayed.
func (c *Checkpoint) Resumable() bool {
	return c.Status != pkgreplay.StatusCompleted && c.NextBlock <= c.ToBlock
}

// CheckpointStore persists checkpoints across process restarts.
type CheckpointStore interface {
	// Save inserts or replaces the checkpoint of cp.SessionID.
	Save(ctx context.Context, cp Checkpoint) error
	// Get returns pkgreplay.ErrSessionNotFound for unknown sessions.
	Get(ctx context.Context, sessionID string) (*Checkpoint, error)
	// Latest returns the most recently updated checkpoint, or nil when there is none.
	Latest(ctx context.Context) (*Checkpoint, error)
	Close() error
}

// MemoryCheckpoints keeps checkpoints for the lifetime of the process.
type MemoryCheckpoints struct {
	mu    sync.RWMutex
	items map[string]Checkpoint
	seq   map[string]int
	next  int
}

var _ CheckpointStore = (*MemoryCheckpoints)(nil)

func NewMemoryCheckpoints() *MemoryCheckpoints {
	return &MemoryCheckpoints{
		items: make(map[string]Checkpoint),
		seq:   make(map[string]int),
	}
}

func (m *MemoryCheckpoints) Save(_ context.Context, cp Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp.Config = cloneConfig(cp.Config)
	m.items[cp.SessionID] = cp
	m.next++
	m.seq[cp.SessionID] = m.next
	return nil
}

func (m *MemoryCheckpoints) Get(_ context.Context, sessionID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.items[sessionID]
	if !ok {
		return nil, pkgreplay.ErrSessionNotFound
	}
	cp.Config = cloneConfig(cp.Config)
	return &cp, nil
}

// Latest orders by save order, so checkpoints saved within the same clock tick stay ordered.
func (m *MemoryCheckpoints) Latest(_ context.Context) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		latest string
		best   int
	)
	for id, n := range m.seq {
		if n > best {
			latest, best = id, n
		}
	}
	if latest == "" {
		return nil, nil
	}

	cp := m.items[latest]
	cp.Config = cloneConfig(cp.Config)
	return &cp, nil
}

func (m *MemoryCheckpoints) Close() error {
	return nil
}

func cloneConfig(c pkgreplay.Config) pkgreplay.Config {
	out := c
	out.EventNames = slices.Clone(c.EventNames)
	out.Addresses = slices.Clone(c.Addresses)
	if c.FromBlock != nil {
		v := *c.FromBlock
		out.FromBlock = &v
	}
	if c.ToBlock != nil {
		v := *c.ToBlock
		out.ToBlock = &v
	}
	if c.FromTime != nil {
		v := *c.FromTime
		out.FromTime = &v
	}
	if c.ToTime != nil {
		v := *c.ToTime
		out.ToTime = &v
	}
	return out
}
