package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/goran-ethernal/ChainReplay/internal/logger"
	migrate "github.com/rubenv/sql-migrate"
)

const (
	upMarker   = "-- +migrate Up"
	downMarker = "-- +migrate Down"
)

// Migration is one embedded SQL file with a Down section followed by an Up section.
type Migration struct {
	ID  string
	SQL string
}

// toMigrate splits the file into its Down and Up statements.
func (m Migration) toMigrate() (*migrate.Migration, error) {
	parts := strings.Split(m.SQL, upMarker)
	if len(parts) != 2 { //nolint:mnd
		return nil, fmt.Errorf("migration %s must contain exactly one '%s' marker", m.ID, upMarker)
	}

	down := parts[0]
	if idx := strings.Index(down, downMarker); idx != -1 {
		down = down[idx+len(downMarker):]
	}

	return &migrate.Migration{
		Id:   m.ID,
		Up:   []string{strings.TrimSpace(parts[1])},
		Down: []string{strings.TrimSpace(down)},
	}, nil
}

// RunMigrations applies every pending migration.
func RunMigrations(log *logger.Logger, db *sql.DB, migrations []Migration) error {
	return RunMigrationsDirection(log, db, migrations, migrate.Up, 0)
}

// RunMigrationsDirection applies at most maxMigrations (0 = all) migrations in the given direction.
func RunMigrationsDirection(
	log *logger.Logger,
	db *sql.DB,
	migrations []Migration,
	dir migrate.MigrationDirection,
	maxMigrations int,
) error {
	source := &migrate.MemoryMigrationSource{}
	ids := make([]string, 0, len(migrations))

	for _, m := range migrations {
		mig, err := m.toMigrate()
		if err != nil {
			return err
		}
		source.Migrations = append(source.Migrations, mig)
		ids = append(ids, m.ID)
	}

	n, err := migrate.ExecMax(db, "sqlite3", source, dir, maxMigrations)
	if err != nil {
		return fmt.Errorf("failed to apply migrations [%s]: %w", strings.Join(ids, ", "), err)
	}

	if n > 0 {
		log.Infof("applied %d migrations from [%s]", n, strings.Join(ids, ", "))
	}

	return nil
}
