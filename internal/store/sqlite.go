package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goran-ethernal/ChainReplay/internal/db"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/internal/migrations"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/goran-ethernal/ChainReplay/pkg/events"
	"github.com/russross/meddler"
)

var _ events.Storage = (*SQLiteStorage)(nil)

// eventRow is the events table layout. Fields the index never filters on live in Payload.
type eventRow struct {
	ID          string         `meddler:"id"`
	ChainID     string         `meddler:"chain_id"`
	BlockNumber uint64         `meddler:"block_number"`
	BlockHash   common.Hash    `meddler:"block_hash,hash"`
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
	LogIndex    uint           `meddler:"log_index"`
	Address     common.Address `meddler:"address,address"`
	EventName   string         `meddler:"event_name"`
	Status      string         `meddler:"status"`
	Timestamp   int64          `meddler:"timestamp"`
	IndexedAt   int64          `meddler:"indexed_at"`
	ProcessedAt int64          `meddler:"processed_at,zeroisnull"`
	Payload     string         `meddler:"payload"`
}

type eventPayload struct {
	Topics        []common.Hash   `json:"topics"`
	Data          hexutil.Bytes   `json:"data"`
	Params        map[string]any  `json:"params,omitempty"`
	Confirmations uint64          `json:"confirmations"`
	SearchTerms   []string        `json:"searchTerms,omitempty"`
	Metadata      events.Metadata `json:"metadata"`
}

func toRow(ev *events.IndexedEvent) (*eventRow, error) {
	payload, err := json.Marshal(eventPayload{
		Topics:        ev.Topics,
		Data:          ev.Data,
		Params:        ev.Params,
		Confirmations: ev.Confirmations,
		SearchTerms:   ev.SearchTerms,
		Metadata:      ev.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload of %s: %w", ev.ID, err)
	}

	row := &eventRow{
		ID:          ev.ID,
		ChainID:     ev.ChainID,
		BlockNumber: ev.BlockNumber,
		BlockHash:   ev.BlockHash,
		TxHash:      ev.TransactionHash,
		LogIndex:    ev.LogIndex,
		Address:     ev.Address,
		EventName:   ev.EventName,
		Status:      string(ev.Status),
		Timestamp:   ev.Timestamp.UnixMilli(),
		IndexedAt:   ev.IndexedAt.UnixNano(),
		Payload:     string(payload),
	}
	if ev.ProcessedAt != nil {
		row.ProcessedAt = ev.ProcessedAt.UnixNano()
	}

	return row, nil
}

func (r *eventRow) toEvent() (*events.IndexedEvent, error) {
	var p eventPayload
	if err := decodeJSON([]byte(r.Payload), &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload of %s: %w", r.ID, err)
	}

	ev := &events.IndexedEvent{
		ParsedEvent: events.ParsedEvent{
			ID:              r.ID,
			ChainID:         r.ChainID,
			BlockNumber:     r.BlockNumber,
			BlockHash:       r.BlockHash,
			TransactionHash: r.TxHash,
			LogIndex:        r.LogIndex,
			Address:         r.Address,
			Topics:          p.Topics,
			Data:            p.Data,
			EventName:       r.EventName,
			Params:          p.Params,
			Timestamp:       time.UnixMilli(r.Timestamp).UTC(),
			Status:          events.Status(r.Status),
			Confirmations:   p.Confirmations,
		},
		IndexedAt:   time.Unix(0, r.IndexedAt).UTC(),
		SearchTerms: p.SearchTerms,
		Metadata:    p.Metadata,
	}
	if r.ProcessedAt != 0 {
		t := time.Unix(0, r.ProcessedAt).UTC()
		ev.ProcessedAt = &t
	}

	return ev, nil
}

// SQLiteStorage persists events in a SQLite table.
type SQLiteStorage struct {
	db        *sql.DB
	compactor *db.Compactor
	log       *logger.Logger
}

// NewSQLiteStorage opens the database, applies migrations and returns the storage.
func NewSQLiteStorage(cfg config.DatabaseConfig, log *logger.Logger) (*SQLiteStorage, error) {
	sqlDB, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if err := migrations.Apply(log, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return &SQLiteStorage{
		db:        sqlDB,
		compactor: db.NewCompactor(cfg.Path, sqlDB, log),
		log:       log,
	}, nil
}

func (s *SQLiteStorage) Put(ctx context.Context, evs ...*events.IndexedEvent) error {
	if len(evs) == 0 {
		return nil
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

	for _, ev := range evs {
		var row *eventRow
		row, err = toRow(ev)
		if err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, ev.ID); err != nil {
			return fmt.Errorf("failed to replace event %s: %w", ev.ID, err)
		}
		if err = meddler.Insert(tx, "events", row); err != nil {
			return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	storeWritesAdd("sqlite", len(evs))
	return nil
}

func (s *SQLiteStorage) Get(_ context.Context, id string) (*events.IndexedEvent, error) {
	var row eventRow
	err := meddler.QueryRow(s.db, &row, `SELECT * FROM events WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, events.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}
	return row.toEvent()
}

func (s *SQLiteStorage) Scan(ctx context.Context, fn func(*events.IndexedEvent) error) error {
	var rows []*eventRow
	if err := meddler.QueryAll(s.db, &rows, `SELECT * FROM events ORDER BY indexed_at, id`); err != nil {
		return fmt.Errorf("failed to scan events: %w", err)
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := row.toEvent()
		if err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	unlock := s.compactor.AcquireOperationLock()
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to delete event %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	storeDeletesAdd("sqlite", len(ids))
	return nil
}

// Compact reclaims the space freed by deletes.
func (s *SQLiteStorage) Compact(ctx context.Context) error {
	return s.compactor.Compact(ctx)
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
