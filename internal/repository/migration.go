package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgo/staffhub/internal/database"
	"github.com/forgo/staffhub/internal/model"
)

// MigrationRepository tracks applied schema migrations
type MigrationRepository struct {
	db database.Database
}

// NewMigrationRepository creates a new migration repository
func NewMigrationRepository(db database.Database) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// EnsureTable defines the schema_migration table if it is missing
func (r *MigrationRepository) EnsureTable(ctx context.Context) error {
	query := `
		DEFINE TABLE IF NOT EXISTS schema_migration SCHEMALESS;
		DEFINE INDEX IF NOT EXISTS schema_migration_version ON TABLE schema_migration FIELDS version UNIQUE;
	`
	return r.db.Execute(ctx, query, nil)
}

// Applied returns every applied migration in version order
func (r *MigrationRepository) Applied(ctx context.Context) ([]model.AppliedMigration, error) {
	result, err := r.db.Query(ctx, `SELECT * FROM schema_migration ORDER BY version ASC`, nil)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[model.AppliedMigration](result, 0)
	if err != nil {
		return nil, err
	}
	out := make([]model.AppliedMigration, len(rows))
	for i, row := range rows {
		out[i] = *row
	}
	return out, nil
}

// Apply runs the migration body and records it in one transaction
func (r *MigrationRepository) Apply(ctx context.Context, m model.Migration) error {
	tb := database.NewTxBuilder()
	tb.AddRaw(strings.TrimSpace(m.SQL))
	tb.Add(`CREATE schema_migration CONTENT { version: $version, name: $name, checksum: $checksum, applied_on: time::now() }`,
		map[string]interface{}{
			"version":  m.Version,
			"name":     m.Name,
			"checksum": m.Checksum,
		})

	if _, err := database.ExecuteTransaction(ctx, r.db, tb); err != nil {
		return fmt.Errorf("migration %04d_%s: %w", m.Version, m.Name, err)
	}
	return nil
}
