package replay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/ChainReplay/internal/db"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/migrations"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	pkgreplay "github.com/goran-ethernal/ChainReplay/pkg/replay"
	"github.com/russross/meddler"
)

type checkpointRow struct {
	SessionID     string           `meddler:"session_id"`
	Config        pkgreplay.Config `meddler:"config,json"`
	FromBlock     uint64           `meddler:"from_block"`
	ToBlock       uint64           `meddler:"to_block"`
	NextBlock     uint64           `meddler:"next_block"`
	Status        string           `meddler:"status"`
	Error         string           `meddler:"error"`
	EventsIndexed int              `meddler:"events_indexed"`
	CreatedAt     int64            `meddler:"created_at"`
	UpdatedAt     int64            `meddler:"updated_at"`
}

func (r *checkpointRow) toCheckpoint() *Checkpoint {
	return &Checkpoint{
		SessionID:     r.SessionID,
		Config:        r.Config,
		FromBlock:     r.FromBlock,
		ToBlock:       r.ToBlock,
		NextBlock:     r.NextBlock,
		Status:        pkgreplay.Status(r.Status),
		Error:         r.Error,
		EventsIndexed: r.EventsIndexed,
		CreatedAt:     time.UnixMilli(r.CreatedAt).UTC(),
		UpdatedAt:     time.UnixMilli(r.UpdatedAt).UTC(),
	}
}

// SQLiteCheckpoints stores checkpoints in the replay_checkpoints table.
type SQLiteCheckpoints struct {
	db        *sql.DB
	compactor *db.Compactor
	log       *logger.Logger
}

var _ CheckpointStore = (*SQLiteCheckpoints)(nil)

// NewSQLiteCheckpoints opens the checkpoint database and applies migrations.
func NewSQLiteCheckpoints(cfg config.DatabaseConfig, log *logger.Logger) (*SQLiteCheckpoints, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	sqlDB, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if err := migrations.Apply(log, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &SQLiteCheckpoints{
		db:        sqlDB,
		compactor: db.NewCompactor(cfg.Path, sqlDB, log),
		log:       log,
	}, nil
}

func (s *SQLiteCheckpoints) Save(ctx context.Context, cp Checkpoint) (err error) {
	row := &checkpointRow{
		SessionID:     cp.SessionID,
		Config:        cp.Config,
		FromBlock:     cp.FromBlock,
		ToBlock:       cp.ToBlock,
		NextBlock:     cp.NextBlock,
		Status:        string(cp.Status),
		Error:         cp.Error,
		EventsIndexed: cp.EventsIndexed,
		CreatedAt:     cp.CreatedAt.UnixMilli(),
		UpdatedAt:     cp.UpdatedAt.UnixMilli(),
	}

	unlock := s.compactor.AcquireOperationLock()
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Errorf("failed to rollback transaction: %v", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM replay_checkpoints WHERE session_id = ?`, cp.SessionID); err != nil {
		return fmt.Errorf("failed to replace checkpoint %s: %w", cp.SessionID, err)
	}
	if err = meddler.Insert(tx, "replay_checkpoints", row); err != nil {
		return fmt.Errorf("failed to save checkpoint %s: %w", cp.SessionID, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint %s: %w", cp.SessionID, err)
	}

	s.log.Debugw("checkpoint saved",
		"session", cp.SessionID,
		"next_block", cp.NextBlock,
		"status", cp.Status,
	)

	return nil
}

func (s *SQLiteCheckpoints) Get(_ context.Context, sessionID string) (*Checkpoint, error) {
	var row checkpointRow
	err := meddler.QueryRow(s.db, &row, `SELECT * FROM replay_checkpoints WHERE session_id = ?`, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkgreplay.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get checkpoint %s: %w", sessionID, err)
	}
	return row.toCheckpoint(), nil
}

func (s *SQLiteCheckpoints) Latest(_ context.Context) (*Checkpoint, error) {
	var row checkpointRow
	err := meddler.QueryRow(s.db, &row,
		`SELECT * FROM replay_checkpoints ORDER BY updated_at DESC, rowid DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest checkpoint: %w", err)
	}
	return row.toCheckpoint(), nil
}

func (s *SQLiteCheckpoints) Close() error {
	return s.db.Close()
}

// DB returns the database connection for use by other components.
func (s *SQLiteCheckpoints) DB() *sql.DB {
	return s.db
}

// Compactor returns the write lock and compaction coordinator of the checkpoint database.
func (s *SQLiteCheckpoints) Compactor() *db.Compactor {
	return s.compactor
}
