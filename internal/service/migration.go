package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgo/staffhub/internal/model"
)

// MigrationRepository defines the interface for schema migration bookkeeping
type MigrationRepository interface {
	EnsureTable(ctx context.Context) error
	Applied(ctx context.Context) ([]model.AppliedMigration, error)
	Apply(ctx context.Context, m model.Migration) error
}

// MigrationService applies embedded schema migrations in version order
type MigrationService struct {
	repo       MigrationRepository
	migrations []model.Migration
	auditor    Auditor
	logger     *slog.Logger
}

// MigrationServiceConfig holds configuration for the migration service
type MigrationServiceConfig struct {
	Repo       MigrationRepository
	Migrations []model.Migration
	Auditor    Auditor
	Logger     *slog.Logger
}

// NewMigrationService creates a new migration service
func NewMigrationService(cfg MigrationServiceConfig) *MigrationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &MigrationService{
		repo:       cfg.Repo,
		migrations: cfg.Migrations,
		auditor:    auditorOrNoop(cfg.Auditor),
		logger:     logger,
	}
}

// Status lists every known migration with whether and when it was applied
func (s *MigrationService) Status(ctx context.Context) ([]model.MigrationState, error) {
	applied, err := s.applied(ctx)
	if err != nil {
		return nil, err
	}

	states := make([]model.MigrationState, 0, len(s.migrations))
	for _, m := range s.migrations {
		state := model.MigrationState{Version: m.Version, Name: m.Name}
		if a, ok := applied[m.Version]; ok {
			appliedOn := a.AppliedOn
			state.Applied = true
			state.AppliedOn = &appliedOn
			state.Drifted = a.Checksum != m.Checksum
		}
		states = append(states, state)
	}
	return states, nil
}

// Up applies every pending migration. A checksum mismatch on an applied
// version aborts before anything new runs.
func (s *MigrationService) Up(ctx context.Context, actorID string) (*model.MigrationRun, error) {
	applied, err := s.applied(ctx)
	if err != nil {
		return nil, err
	}

	run := &model.MigrationRun{Applied: []int{}}
	var pending []model.Migration
	for _, m := range s.migrations {
		a, ok := applied[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if a.Checksum != m.Checksum {
			return nil, fmt.Errorf("%w: %04d_%s", ErrMigrationDrift, m.Version, m.Name)
		}
		run.Current = m.Version
	}

	for _, m := range pending {
		if err := s.repo.Apply(ctx, m); err != nil {
			return run, err
		}
		s.logger.Info("migration applied", "version", m.Version, "name", m.Name)
		run.Applied = append(run.Applied, m.Version)
		run.Current = m.Version
	}

	if len(run.Applied) > 0 {
		s.auditor.Record(ctx, actorID, model.AuditMigrate, "schema_migration", "", map[string]any{
			"applied": run.Applied,
			"current": run.Current,
		})
	}
	return run, nil
}

func (s *MigrationService) applied(ctx context.Context) (map[int]model.AppliedMigration, error) {
	if err := s.repo.EnsureTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema_migration: %w", err)
	}
	rows, err := s.repo.Applied(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]model.AppliedMigration, len(rows))
	for _, row := range rows {
		out[row.Version] = row
	}
	return out, nil
}
