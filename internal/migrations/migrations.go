// Package migrations holds the embedded SQLite schema.
package migrations

import (
	"database/sql"
	_ "embed"

	"github.com/goran-ethernal/ChainReplay/internal/db"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
)

//go:embed 001_event_store.sql
var mig001 string

//go:embed 002_replay_checkpoints.sql
var mig002 string

//go:embed 003_follower_state.sql
var mig003 string

// All returns every migration in apply order.
func All() []db.Migration {
	return []db.Migration{
		{ID: "001_event_store.sql", SQL: mig001},
		{ID: "002_replay_checkpoints.sql", SQL: mig002},
		{ID: "003_follower_state.sql", SQL: mig003},
	}
}

// Apply brings the schema of sqlDB up to date.
func Apply(log *logger.Logger, sqlDB *sql.DB) error {
	return db.RunMigrations(log, sqlDB, All())
}
