package manager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/internal/db"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/russross/meddler"
)

// Cursor is the position of the live follower.
type Cursor struct {
	LastBlock     uint64      `json:"lastBlock"`
	LastBlockHash common.Hash `json:"lastBlockHash"`
	EventsIndexed int         `json:"eventsIndexed"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// CursorStore persists the follower position so a restart continues where it stopped.
type CursorStore interface {
	// Load returns nil when no position was saved yet.
	Load(ctx context.Context) (*Cursor, error)
	Save(ctx context.Context, c Cursor) error
}

// MemoryCursor keeps the position for the lifetime of the process.
type MemoryCursor struct {
	mu     sync.Mutex
	cursor *Cursor
}

var _ CursorStore = (*MemoryCursor)(nil)

func (m *MemoryCursor) Load(context.Context) (*Cursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor == nil {
		return nil, nil
	}
	c := *m.cursor
	return &c, nil
}

func (m *MemoryCursor) Save(_ context.Context, c Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cursor = &c
	return nil
}

// followerState is the single row of the follower_state table.
type followerState struct {
	ID            int         `meddler:"id"`
	LastBlock     uint64      `meddler:"last_block"`
	LastBlockHash common.Hash `meddler:"last_block_hash,hash"`
	EventsIndexed int         `meddler:"events_indexed"`
	UpdatedAt     int64       `meddler:"updated_at"`
}

// SQLiteCursor stores the follower position in the follower_state table.
// It shares the connection of another component and does not close it.
type SQLiteCursor struct {
	db                     *sql.DB
	maintenanceCoordinator *db.Compactor
	log                    *logger.Logger
}

var _ CursorStore = (*SQLiteCursor)(nil)

// NewSQLiteCursor wraps an already migrated database. compactor may be nil.
func NewSQLiteCursor(sqlDB *sql.DB, compactor *db.Compactor, log *logger.Logger) *SQLiteCursor {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &SQLiteCursor{
		db:                     sqlDB,
		maintenanceCoordinator: compactor,
		log:                    log,
	}
}

func (s *SQLiteCursor) Load(ctx context.Context) (*Cursor, error) {
	var state followerState
	err := meddler.QueryRow(s.db, &state, `SELECT * FROM follower_state WHERE id = 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get follower state: %w", err)
	}

	return &Cursor{
		LastBlock:     state.LastBlock,
		LastBlockHash: state.LastBlockHash,
		EventsIndexed: state.EventsIndexed,
		UpdatedAt:     time.UnixMilli(state.UpdatedAt).UTC(),
	}, nil
}

func (s *SQLiteCursor) Save(ctx context.Context, c Cursor) error {
	if s.maintenanceCoordinator != nil {
		unlock := s.maintenanceCoordinator.AcquireOperationLock()
		defer unlock()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO follower_state (id, last_block, last_block_hash, events_indexed, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_block = excluded.last_block,
			last_block_hash = excluded.last_block_hash,
			events_indexed = excluded.events_indexed,
			updated_at = excluded.updated_at
	`, c.LastBlock, c.LastBlockHash.Hex(), c.EventsIndexed, c.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save follower state: %w", err)
	}

	s.log.Debugf("saved follower state: block=%d, block_hash=%s", c.LastBlock, c.LastBlockHash.Hex())

	return nil
}
