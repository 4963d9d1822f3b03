package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainReplay/internal/logger"
	"github.com/goran-ethernal/ChainReplay/pkg/config"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T, journal string) (*sql.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	dbConfig := config.DatabaseConfig{Path: dbPath, JournalMode: journal}
	dbConfig.ApplyDefaults()

	sqlDB, err := NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return sqlDB, dbPath
}

func TestNewSQLiteDBFromConfig_RequiresPath(t *testing.T) {
	_, err := NewSQLiteDBFromConfig(config.DatabaseConfig{})
	require.ErrorContains(t, err, "path is required")
}

func TestRunMigrations(t *testing.T) {
	sqlDB, _ := setupTestDB(t, "WAL")
	log := logger.NewNopLogger()

	migs := []Migration{
		{
			ID: "001_test.sql",
			SQL: `-- +migrate Down
DROP TABLE IF EXISTS things;

-- +migrate Up
CREATE TABLE things (id INTEGER PRIMARY KEY, hash TEXT, addr TEXT);`,
		},
	}

	require.NoError(t, RunMigrations(log, sqlDB, migs))
	// second run is a no-op
	require.NoError(t, RunMigrations(log, sqlDB, migs))

	_, err := sqlDB.Exec(`INSERT INTO things (hash, addr) VALUES ('0x01', NULL)`)
	require.NoError(t, err)
}

func TestRunMigrations_MissingUpMarker(t *testing.T) {
	sqlDB, _ := setupTestDB(t, "WAL")

	err := RunMigrations(logger.NewNopLogger(), sqlDB, []Migration{{ID: "bad.sql", SQL: "CREATE TABLE x (id INT);"}})
	require.ErrorContains(t, err, "bad.sql")
}

type hexRow struct {
	ID   int64           `meddler:"id,pk"`
	Hash common.Hash     `meddler:"hash,hash"`
	Addr *common.Address `meddler:"addr,address"`
}

func TestHexMeddlers_RoundTrip(t *testing.T) {
	sqlDB, _ := setupTestDB(t, "WAL")
	_, err := sqlDB.Exec(`CREATE TABLE things (id INTEGER PRIMARY KEY, hash TEXT, addr TEXT)`)
	require.NoError(t, err)

	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	rows := []*hexRow{
		{Hash: common.HexToHash("0x01"), Addr: &addr},
		{Hash: common.HexToHash("0x02")},
	}
	for _, r := range rows {
		require.NoError(t, meddler.Insert(sqlDB, "things", r))
	}

	var got []*hexRow
	require.NoError(t, meddler.QueryAll(sqlDB, &got, `SELECT * FROM things ORDER BY id`))
	require.Len(t, got, 2)
	require.Equal(t, common.HexToHash("0x01"), got[0].Hash)
	require.NotNil(t, got[0].Addr)
	require.Equal(t, addr, *got[0].Addr)
	require.Nil(t, got[1].Addr)
}

func TestCompactor_Compact(t *testing.T) {
	for _, journal := range []string{"WAL", "TRUNCATE"} {
		t.Run(journal, func(t *testing.T) {
			sqlDB, dbPath := setupTestDB(t, journal)

			_, err := sqlDB.Exec(`CREATE TABLE test_table (id INTEGER PRIMARY KEY, value TEXT)`)
			require.NoError(t, err)
			for i := range 2000 {
				_, err = sqlDB.Exec(`INSERT INTO test_table (value) VALUES (?)`, fmt.Sprintf("value_%d", i))
				require.NoError(t, err)
			}
			_, err = sqlDB.Exec(`DELETE FROM test_table WHERE id % 2 = 0`)
			require.NoError(t, err)

			c := NewCompactor(dbPath, sqlDB, logger.NewNopLogger())
			require.NoError(t, c.Compact(context.Background()))

			stats := c.Stats()
			require.Equal(t, uint64(1), stats.Runs)
			require.NoError(t, stats.LastError)
			require.False(t, stats.LastRun.IsZero())
		})
	}
}

func TestCompactor_CancelledContext(t *testing.T) {
	sqlDB, dbPath := setupTestDB(t, "WAL")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewCompactor(dbPath, sqlDB, logger.NewNopLogger())
	require.ErrorIs(t, c.Compact(ctx), context.Canceled)
}

func TestTotalSize(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.db")

	size, err := TotalSize(main)
	require.NoError(t, err)
	require.Zero(t, size)

	require.NoError(t, os.WriteFile(main, []byte("main-db"), 0o600))
	require.NoError(t, os.WriteFile(main+"-wal", []byte("wal-content"), 0o600))

	size, err = TotalSize(main)
	require.NoError(t, err)
	require.Equal(t, int64(len("main-db")+len("wal-content")), size)
}
