package model

import "time"

// Migration is one versioned schema file
type Migration struct {
	Version  int    `json:"version"`
	Name     string `json:"name"`
	Checksum string `json:"checksum"`
	SQL      string `json:"-"`
}

// AppliedMigration is a row of the schema_migration table
type AppliedMigration struct {
	Version   int       `json:"version"`
	Name      string    `json:"name"`
	Checksum  string    `json:"checksum"`
	AppliedOn time.Time `json:"applied_on"`
}

// MigrationState is the status of one known migration
type MigrationState struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedOn *time.Time `json:"applied_on,omitempty"`
	Drifted   bool       `json:"drifted,omitempty"`
}

// MigrationRun summarizes an "up" run
type MigrationRun struct {
	Applied []int `json:"applied"`
	Current int   `json:"current"`
}
