// Package jobs implements background job processing for the StaffHub API.
//
// Jobs run on their own ticker, independently of HTTP request handling.
//
// # Job Types
//
//   - CampaignRunner: advances outreach campaign enrollments whose next step is due
//   - TokenCleanup: removes expired refresh tokens
//
// # Lifecycle
//
// Every job exposes Start, Stop and RunOnce:
//
//	runner := jobs.NewCampaignRunner(jobs.CampaignRunnerConfig{
//	    Engine:   campaignService,
//	    Interval: time.Minute,
//	    Logger:   logger,
//	})
//	runner.Start()
//	defer runner.Stop()
//
// # Error Handling
//
// Jobs log errors but don't crash the application. A failed tick is
// retried on the next interval.
package jobs
