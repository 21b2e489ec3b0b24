// Package migrate moves a SQLite schema between numbered versions using SQL files read from
// an fs.FS.
package migrate

import (
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// DefaultTable is where applied versions are recorded unless another table is named
const DefaultTable = "schema_migrations"

// Migration is one numbered schema change
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Source lists the migrations a Migrator can apply
type Source interface {
	Migrations() ([]Migration, error)
}

// Migrator applies the migrations of a Source to one database
type Migrator struct {
	db       *sql.DB
	src      Source
	versions versionTable
	logger   *zap.SugaredLogger
}

// NewMigrator creates a migrator recording versions in table. An empty table name means
// DefaultTable and a nil logger discards output.
func NewMigrator(db *sql.DB, src Source, table string, logger *zap.SugaredLogger) *Migrator {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{db: db, src: src, versions: versionTable(table), logger: logger}
}

// step applies or reverts one migration. after is the schema version once it commits.
type step struct {
	migration Migration
	up        bool
	after     int
}

func (s step) statement() (string, string) {
	if s.up {
		return s.migration.Up, "up"
	}
	return s.migration.Down, "down"
}

// plan lists the steps from version from to version to. migrations must be sorted.
func plan(migrations []Migration, from, to int) []step {
	var steps []step
	if to >= from {
		for _, m := range migrations {
			if m.Version > from && m.Version <= to {
				steps = append(steps, step{migration: m, up: true, after: m.Version})
			}
		}
		return steps
	}

	for i := len(migrations) - 1; i >= 0; i-- {
		m := migrations[i]
		if m.Version > from || m.Version <= to {
			continue
		}
		after := 0
		if i > 0 {
			after = migrations[i-1].Version
		}
		steps = append(steps, step{migration: m, after: after})
	}
	return steps
}

func latest(migrations []Migration) int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

func (m *Migrator) migrations() ([]Migration, error) {
	migrations, err := m.src.Migrations()
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Up applies every migration newer than the current version
func (m *Migrator) Up() error {
	return m.To(-1)
}

// Down reverts migrations until the schema is at target, which must be below the current
// version
func (m *Migrator) Down(target int) error {
	current, err := m.Version()
	if err != nil {
		return err
	}
	if target >= current {
		return fmt.Errorf("target version %d must be less than current version %d", target, current)
	}
	return m.To(target)
}

// To moves the schema up or down to target. A negative target means the newest migration.
func (m *Migrator) To(target int) error {
	current, err := m.Version()
	if err != nil {
		return err
	}
	migrations, err := m.migrations()
	if err != nil {
		return err
	}
	if target < 0 {
		target = latest(migrations)
	}

	for _, s := range plan(migrations, current, target) {
		if err := m.apply(s); err != nil {
			return err
		}
	}
	return nil
}

// Version returns the applied schema version, creating the version table when missing
func (m *Migrator) Version() (int, error) {
	if err := m.versions.ensure(m.db); err != nil {
		return 0, err
	}
	return m.versions.current(m.db)
}

// Pending returns the migrations newer than the applied version, oldest first
func (m *Migrator) Pending() ([]Migration, error) {
	current, err := m.Version()
	if err != nil {
		return nil, err
	}
	migrations, err := m.migrations()
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, s := range plan(migrations, current, latest(migrations)) {
		pending = append(pending, s.migration)
	}
	return pending, nil
}

// apply runs one step and records the resulting version in the same transaction
func (m *Migrator) apply(s step) error {
	stmt, direction := s.statement()
	if stmt == "" {
		return fmt.Errorf("migration %d has no %s SQL", s.migration.Version, direction)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("migration %d (%s) %s: %w", s.migration.Version, s.migration.Name, direction, err)
	}
	if err := m.versions.set(tx, s.after); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", s.migration.Version, err)
	}

	m.logger.Debugw("migrated schema", "version", s.migration.Version, "name", s.migration.Name,
		"direction", direction, "now", s.after)
	return nil
}
