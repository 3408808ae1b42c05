package store

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/jmoiron/sqlx"
	embeddedmigrations "github.com/pulsehq/pulse-go/migrations"
)

// Migrate applies pending schema migrations for the connected driver.
// Migrations are applied in filename order inside a transaction each
// and recorded in a tracking table; re-running is a no-op.
func Migrate(db *sqlx.DB) error {
	var migrationsFS embed.FS
	var dir string

	switch db.DriverName() {
	case "sqlite3":
		migrationsFS = embeddedmigrations.SqliteMigrations
		dir = "sqlite"
	case "postgres":
		migrationsFS = embeddedmigrations.PostgresMigrations
		dir = "postgres"
	default:
		return fmt.Errorf("unsupported database driver: %s", db.DriverName())
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS pulse_migrations (
		migration_id TEXT PRIMARY KEY,
		applied_at   TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	var ids []string
	if err := db.Select(&ids, "SELECT migration_id FROM pulse_migrations"); err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	for _, id := range ids {
		applied[id] = true
	}

	files, err := listMigrationFiles(migrationsFS, dir)
	if err != nil {
		return err
	}

	for _, name := range files {
		id := filepath.Base(name)
		if applied[id] {
			continue
		}

		content, err := migrationsFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", id, err)
		}

		tx, err := db.Beginx()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", id, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %s: %w", id, err)
		}
		if _, err := tx.Exec(
			tx.Rebind("INSERT INTO pulse_migrations (migration_id, applied_at) VALUES (?, CURRENT_TIMESTAMP)"),
			id,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", id, err)
		}
	}

	return nil
}

func listMigrationFiles(fsys embed.FS, dir string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".sql" {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
