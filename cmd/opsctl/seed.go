package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/forgo/staffhub/internal/repository"
	"github.com/forgo/staffhub/internal/service"
)

// seeder is the subset of the seeder service used here
type seeder interface {
	SeedStaff(ctx context.Context, domain string) (*service.SeedResult, error)
	SeedCandidates(ctx context.Context, req service.SeedCandidatesRequest) (*service.SeedResult, error)
}

var (
	seedDomain     string
	seedCandidates int
	seedPrefix     string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create development users and candidates",
	Long: `Create one login per staff role (admin, recruiter, sales, trainer) at
--domain with password "` + service.SeedPassword + `", then --candidates random
unowned candidates. Staff users that already exist are kept.

Never run this against production.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		rt, closeDB, err := connect(ctx)
		if err != nil {
			return err
		}
		defer closeDB()

		svc := service.NewSeederService(service.SeederServiceConfig{
			Users:      repository.NewUserRepository(rt.db),
			Candidates: repository.NewCandidateRepository(rt.db),
			Logger:     rt.logger,
		})
		return runSeed(ctx, cmd.OutOrStdout(), svc, seedDomain, seedCandidates, seedPrefix)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedDomain, "domain", "staffhub.dev", "Email domain for staff logins")
	seedCmd.Flags().IntVar(&seedCandidates, "candidates", 50, "Number of random candidates (0 to skip)")
	seedCmd.Flags().StringVar(&seedPrefix, "prefix", "seed_", "Email prefix for seeded candidates")
}

func runSeed(ctx context.Context, out io.Writer, s seeder, domain string, candidates int, prefix string) error {
	staff, err := s.SeedStaff(ctx, domain)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "staff: %d created, %d already present\n", staff.Created, staff.Skipped)

	if candidates == 0 {
		return nil
	}
	res, err := s.SeedCandidates(ctx, service.SeedCandidatesRequest{Count: candidates, Prefix: prefix})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "candidates: %d created in %dms\n", res.Created, res.Duration)
	return nil
}
