package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/repository"
	"github.com/forgo/staffhub/internal/service"
)

// importer is the subset of the import service used here
type importer interface {
	Import(ctx context.Context, actorID string, opts service.ImportOptions, body io.Reader) (*model.ImportReport, error)
}

var (
	importPolicy string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <candidates|jobs|accounts> <file.csv|file.json>",
	Short: "Bulk import records from a CSV or JSON file",
	Long: `Import candidates, jobs or accounts from a file.

The format follows the file extension (.csv or .json). Invalid rows are
handled by --policy: skip records them and carries on, stop aborts at the
first one (rows already written stay), flag imports invalid candidates
with flagged=true.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := importOptions(args[0], args[1], importPolicy, importDryRun)
		if err != nil {
			return err
		}

		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()

		ctx, cancel := commandContext(cmd)
		defer cancel()

		rt, closeDB, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		candidateRepo := repository.NewCandidateRepository(rt.db)
		accountRepo := repository.NewAccountRepository(rt.db)
		accounts := service.NewAccountService(service.AccountServiceConfig{
			Repo:    accountRepo,
			Auditor: rt.audit,
		})
		jobs := service.NewJobService(service.JobServiceConfig{
			Repo:     repository.NewJobRepository(rt.db),
			Accounts: accountRepo,
			Auditor:  rt.audit,
		})

		svc := service.NewImportService(service.ImportServiceConfig{
			Candidates: candidateRepo,
			Jobs:       jobs,
			Accounts:   accounts,
			Auditor:    rt.audit,
			Logger:     rt.logger,
			MaxRows:    rt.cfg.Import.MaxRows,
		})
		return runImport(ctx, cmd.OutOrStdout(), svc, opts, f)
	},
}

func init() {
	importCmd.Flags().StringVar(&importPolicy, "policy", string(model.PolicySkip), "Invalid row policy: skip, stop or flag")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate without writing")
}

// importOptions validates the command line before anything is opened
func importOptions(entity, path, policy string, dryRun bool) (service.ImportOptions, error) {
	e := model.ImportEntity(strings.ToLower(entity))
	if !e.IsValid() {
		return service.ImportOptions{}, fmt.Errorf("unknown entity %q (want candidates, jobs or accounts)", entity)
	}
	p, ok := model.ParseImportPolicy(policy)
	if !ok {
		return service.ImportOptions{}, fmt.Errorf("unknown policy %q (want skip, stop or flag)", policy)
	}

	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		format = service.FormatCSV
	case ".json":
		format = service.FormatJSON
	default:
		return service.ImportOptions{}, fmt.Errorf("cannot infer format of %s: use a .csv or .json file", path)
	}

	return service.ImportOptions{Entity: e, Format: format, Policy: p, DryRun: dryRun}, nil
}

func runImport(ctx context.Context, out io.Writer, svc importer, opts service.ImportOptions, body io.Reader) error {
	report, err := svc.Import(ctx, cliActor, opts, body)
	if report != nil {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil && err == nil {
			err = encErr
		}
	}
	return err
}
