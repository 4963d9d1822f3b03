package migrations

import (
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/ChainReplay/internal/db"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer sqlDB.Close()

	log := logger.NewNopLogger()
	require.NoError(t, Apply(log, sqlDB))

	for _, table := range []string{"events", "replay_checkpoints", "follower_state"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err)
		require.Equal(t, table, name)
	}

	// down then up again
	require.NoError(t, db.RunMigrationsDirection(log, sqlDB, All(), migrate.Down, 0))
	require.NoError(t, Apply(log, sqlDB))
}
