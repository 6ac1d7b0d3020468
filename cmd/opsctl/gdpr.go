package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forgo/staffhub/internal/model"
	"github.com/forgo/staffhub/internal/repository"
	"github.com/forgo/staffhub/internal/service"
)

// gdprRunner is the subset of the GDPR service used here
type gdprRunner interface {
	Discover(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRRequest, model.DiscoveryResult, error)
	Export(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRExport, error)
	Anonymize(ctx context.Context, actorID string, req *model.GDPRSubjectRequest) (*model.GDPRRequest, error)
}

var gdprExportDir string

var gdprCmd = &cobra.Command{
	Use:   "gdpr",
	Short: "Run GDPR data-subject requests",
	Long: `Find, export or anonymize a data subject's personal data.

Available subcommands:
  discover  - List the records that reference an email
  export    - Write every record for an email to a JSON file
  anonymize - Redact personal data for an email (irreversible)`,
}

var gdprDiscoverCmd = &cobra.Command{
	Use:   "discover <email>",
	Short: "List records holding a subject's personal data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGDPR(cmd, func(ctx context.Context, g gdprRunner, _ string) error {
			return runGDPRDiscover(ctx, cmd.OutOrStdout(), g, args[0])
		})
	},
}

var gdprExportCmd = &cobra.Command{
	Use:   "export <email>",
	Short: "Export a subject's personal data as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGDPR(cmd, func(ctx context.Context, g gdprRunner, dir string) error {
			return runGDPRExport(ctx, cmd.OutOrStdout(), g, args[0], dir)
		})
	},
}

var gdprAnonymizeCmd = &cobra.Command{
	Use:   "anonymize <email>",
	Short: "Anonymize a subject's personal data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGDPR(cmd, func(ctx context.Context, g gdprRunner, _ string) error {
			return runGDPRAnonymize(ctx, cmd.OutOrStdout(), g, args[0])
		})
	},
}

func init() {
	gdprExportCmd.Flags().StringVar(&gdprExportDir, "dir", "", "Output directory (default GDPR_EXPORT_DIR)")
}

func withGDPR(cmd *cobra.Command, fn func(ctx context.Context, g gdprRunner, exportDir string) error) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	rt, closeDB, err := connect(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	dir := gdprExportDir
	if dir == "" {
		dir = rt.cfg.GDPR.ExportDir
	}

	svc := service.NewGDPRService(service.GDPRServiceConfig{
		Repo:    repository.NewGDPRRepository(rt.db),
		Auditor: rt.audit,
		Logger:  rt.logger,
	})
	return fn(ctx, svc, dir)
}

func runGDPRDiscover(ctx context.Context, out io.Writer, g gdprRunner, email string) error {
	request, found, err := g.Discover(ctx, cliActor, &model.GDPRSubjectRequest{Email: email})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "request %s: %d records\n", request.ID, found.Total())
	tables := make([]string, 0, len(found))
	for table := range found {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Fprintf(out, "  %s: %s\n", table, strings.Join(found[table], ", "))
	}
	return nil
}

func runGDPRExport(ctx context.Context, out io.Writer, g gdprRunner, email, dir string) error {
	export, err := g.Export(ctx, cliActor, &model.GDPRSubjectRequest{Email: email})
	if err != nil {
		return err
	}
	path, err := writeExport(dir, export)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "request %s: export written to %s\n", export.RequestID, path)
	return nil
}

func runGDPRAnonymize(ctx context.Context, out io.Writer, g gdprRunner, email string) error {
	request, err := g.Anonymize(ctx, cliActor, &model.GDPRSubjectRequest{Email: email})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "request %s: %s\n", request.ID, request.Status)
	for _, r := range request.Results {
		line := fmt.Sprintf("  %s: %d updated", r.Table, r.Affected)
		if r.Error != "" {
			line += " (error: " + r.Error + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

// writeExport stores the export as <dir>/<request key>.json with owner-only permissions
func writeExport(dir string, export *model.GDPRExport) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	// Record IDs look like gdpr_request:abc; keep only the key for the file name
	name := export.RequestID
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	path := filepath.Join(dir, "gdpr-export-"+name+".json")

	b, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}
