package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/repository"
	"github.com/forgo/staffhub/internal/service"
	"github.com/forgo/staffhub/migrations"
)

// migrator is the subset of the migration service used here
type migrator interface {
	Status(ctx context.Context) ([]model.MigrationState, error)
	Up(ctx context.Context, actorID string) (*model.MigrationRun, error)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect schema migrations",
	Long: `Manage the embedded SurrealQL schema migrations.

Available subcommands:
  up     - Apply every pending migration in version order
  status - List applied and pending migrations`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(ctx context.Context, m migrator) error {
			return runMigrateUp(ctx, cmd.OutOrStdout(), m)
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(cmd, func(ctx context.Context, m migrator) error {
			return runMigrateStatus(ctx, cmd.OutOrStdout(), m)
		})
	},
}

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m migrator) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	rt, closeDB, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	embedded, err := migrations.Load()
	if err != nil {
		return err
	}

	return fn(ctx, service.NewMigrationService(service.MigrationServiceConfig{
		Repo:       repository.NewMigrationRepository(rt.db),
		Migrations: embedded,
		Auditor:    rt.audit,
		Logger:     rt.logger,
	}))
}

func runMigrateUp(ctx context.Context, out io.Writer, m migrator) error {
	run, err := m.Up(ctx, cliActor)
	if err != nil {
		return err
	}
	if len(run.Applied) == 0 {
		fmt.Fprintf(out, "Schema is up to date (version %d)\n", run.Current)
		return nil
	}
	for _, v := range run.Applied {
		fmt.Fprintf(out, "applied %04d\n", v)
	}
	fmt.Fprintf(out, "Schema now at version %d\n", run.Current)
	return nil
}

func runMigrateStatus(ctx context.Context, out io.Writer, m migrator) error {
	states, err := m.Status(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATE\tAPPLIED ON")
	for _, s := range states {
		state := "pending"
		applied := "-"
		if s.Applied {
			state = "applied"
			if s.AppliedOn != nil {
				applied = s.AppliedOn.UTC().Format(time.RFC3339)
			}
		}
		if s.Drifted {
			state = "DRIFTED"
		}
		fmt.Fprintf(tw, "%04d\t%s\t%s\t%s\n", s.Version, s.Name, state, applied)
	}
	return tw.Flush()
}
