package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/forgo/staffhub/internal/model"
)

const (
	defaultCampaignInterval = time.Minute
	campaignTickTimeout     = 5 * time.Minute
	campaignStartDelay      = 5 * time.Second
)

// CampaignEngine processes outreach enrollments whose next step is due
type CampaignEngine interface {
	RunDue(ctx context.Context) (*model.RunReport, error)
}

// CampaignRunner drives the campaign engine on a schedule
type CampaignRunner struct {
	*periodic
	engine CampaignEngine
	logger *slog.Logger
}

// CampaignRunnerConfig holds configuration for the campaign runner
type CampaignRunnerConfig struct {
	Engine     CampaignEngine
	Interval   time.Duration
	StartDelay *time.Duration // nil uses the default delay
	Logger     *slog.Logger
}

// NewCampaignRunner creates a new campaign runner job
func NewCampaignRunner(cfg CampaignRunnerConfig) *CampaignRunner {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultCampaignInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	delay := campaignStartDelay
	if cfg.StartDelay != nil {
		delay = *cfg.StartDelay
	}

	r := &CampaignRunner{engine: cfg.Engine, logger: cfg.Logger}
	r.periodic = &periodic{
		name:       "campaign_runner",
		interval:   cfg.Interval,
		startDelay: delay,
		timeout:    campaignTickTimeout,
		task:       r.tick,
		logger:     cfg.Logger,
	}
	return r
}

func (r *CampaignRunner) tick(ctx context.Context) error {
	report, err := r.RunOnce(ctx)
	if err != nil {
		return err
	}
	if report.Processed > 0 {
		r.logger.Info("campaign tick",
			"processed", report.Processed,
			"sent", report.Sent,
			"completed", report.Completed,
			"stopped", report.Stopped,
			"failed", report.Failed,
			"skipped", report.Skipped,
		)
	}
	return nil
}

// RunOnce runs the engine once (for testing or manual trigger)
func (r *CampaignRunner) RunOnce(ctx context.Context) (*model.RunReport, error) {
	return r.engine.RunDue(ctx)
}
