package postgres

import (
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationTable = "schema_migrations"

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFS,
		Root:       "migrations",
	}
}

// Migrate applies (Up) or rolls back (Down) at most max migrations; zero means all.
func Migrate(db *sqlx.DB, direction migrate.MigrationDirection, max int) (int, error) {
	migrate.SetTable(migrationTable)
	n, err := migrate.ExecMax(db.DB, "postgres", migrationSource(), direction, max)
	if err != nil {
		return n, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return n, nil
}

type MigrationStatus struct {
	ID      string
	Applied bool
}

// MigrationStatuses lists every known migration and whether it has been applied.
func MigrationStatuses(db *sqlx.DB) ([]MigrationStatus, error) {
	migrate.SetTable(migrationTable)
	known, err := migrationSource().FindMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	records, err := migrate.GetMigrationRecords(db.DB, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration records: %w", err)
	}

	applied := make(map[string]bool, len(records))
	for _, rec := range records {
		applied[rec.Id] = true
	}

	statuses := make([]MigrationStatus, 0, len(known))
	for _, m := range known {
		statuses = append(statuses, MigrationStatus{ID: m.Id, Applied: applied[m.Id]})
	}
	return statuses, nil
}
