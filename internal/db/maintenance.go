package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
)

// DefaultCheckpointMode is the WAL checkpoint mode used by Compact.
const DefaultCheckpointMode = "TRUNCATE"

// Compactor reclaims space after bulk deletes with a WAL checkpoint followed by VACUUM.
// Writers hold the read side of the operation lock so compaction gets exclusive access.
type Compactor struct {
	db             *sql.DB
	dbPath         string
	checkpointMode string
	log            *logger.Logger

	opLock sync.RWMutex

	mu      sync.Mutex
	lastRun time.Time
	runs    uint64
	lastErr error
}

// CompactionStats describes past compactions.
type CompactionStats struct {
	LastRun   time.Time
	Runs      uint64
	LastError error
}

// NewCompactor creates a compactor for the database at dbPath.
func NewCompactor(dbPath string, db *sql.DB, log *logger.Logger) *Compactor {
	return &Compactor{
		db:             db,
		dbPath:         dbPath,
		checkpointMode: DefaultCheckpointMode,
		log:            log,
	}
}

// AcquireOperationLock must wrap every write; the returned function releases it.
func (c *Compactor) AcquireOperationLock() func() {
	c.opLock.RLock()
	return c.opLock.RUnlock
}

// Compact runs a WAL checkpoint and VACUUM while holding the exclusive lock.
func (c *Compactor) Compact(ctx context.Context) error {
	start := time.Now()
	maintenanceRunsInc()

	c.opLock.Lock()
	defer c.opLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	before, _ := TotalSize(c.dbPath)

	var runErr error
	if err := c.walCheckpoint(ctx); err != nil {
		runErr = fmt.Errorf("WAL checkpoint failed: %w", err)
	} else if _, err := c.db.ExecContext(ctx, "VACUUM"); err != nil {
		runErr = fmt.Errorf("vacuum failed: %w", err)
	}

	after, _ := TotalSize(c.dbPath)

	c.mu.Lock()
	c.lastRun = time.Now().UTC()
	c.runs++
	c.lastErr = runErr
	c.mu.Unlock()

	maintenanceDurationLog(time.Since(start))
	dbSizeLog(after)

	if runErr != nil {
		maintenanceErrorInc()
		return runErr
	}

	maintenanceSuccessInc()
	if before > after {
		c.log.Infof("compaction reclaimed %d bytes in %v", before-after, time.Since(start))
	}

	return nil
}

func (c *Compactor) walCheckpoint(ctx context.Context) error {
	var mode string
	if err := c.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		return err
	}
	if !strings.EqualFold(mode, "wal") {
		return nil
	}

	var busy, logFrames, checkpointed int
	err := c.db.QueryRowContext(ctx, fmt.Sprintf("PRAGMA wal_checkpoint(%s)", c.checkpointMode)).
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return err
	}
	if busy > 0 {
		c.log.Warnf("WAL checkpoint left %d busy pages", busy)
	}

	return nil
}

// Stats returns the outcome of past compactions.
func (c *Compactor) Stats() CompactionStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CompactionStats{LastRun: c.lastRun, Runs: c.runs, LastError: c.lastErr}
}
