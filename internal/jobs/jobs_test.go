package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgo/staffhub/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type engineFunc func(ctx context.Context) (*model.RunReport, error)

func (f engineFunc) RunDue(ctx context.Context) (*model.RunReport, error) { return f(ctx) }

type cleanerFunc func(ctx context.Context) error

func (f cleanerFunc) CleanupExpired(ctx context.Context) error { return f(ctx) }

func TestCampaignRunner_TicksUntilStopped(t *testing.T) {
	t.Parallel()

	ticks := make(chan struct{}, 10)
	noDelay := time.Duration(0)
	runner := NewCampaignRunner(CampaignRunnerConfig{
		Engine: engineFunc(func(ctx context.Context) (*model.RunReport, error) {
			ticks <- struct{}{}
			return &model.RunReport{Processed: 1, Sent: 1}, nil
		}),
		Interval:   10 * time.Millisecond,
		StartDelay: &noDelay,
		Logger:     quietLogger(),
	})

	runner.Start()
	runner.Start() // second start is a no-op
	if !runner.IsRunning() {
		t.Fatal("expected runner to be running")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-ticks:
		case <-time.After(2 * time.Second):
			t.Fatalf("tick %d never happened", i+1)
		}
	}

	runner.Stop()
	runner.Stop()
	if runner.IsRunning() {
		t.Error("expected runner to be stopped")
	}
}

func TestCampaignRunner_ErrorsDoNotStopTheLoop(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	done := make(chan struct{})
	noDelay := time.Duration(0)
	runner := NewCampaignRunner(CampaignRunnerConfig{
		Engine: engineFunc(func(ctx context.Context) (*model.RunReport, error) {
			if calls.Add(1) == 3 {
				close(done)
			}
			return nil, errors.New("db unavailable")
		}),
		Interval:   5 * time.Millisecond,
		StartDelay: &noDelay,
		Logger:     quietLogger(),
	})

	runner.Start()
	defer runner.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected repeated ticks after failures, got %d", calls.Load())
	}
}

func TestCampaignRunner_Defaults(t *testing.T) {
	t.Parallel()

	runner := NewCampaignRunner(CampaignRunnerConfig{Engine: engineFunc(nil)})
	if runner.interval != defaultCampaignInterval {
		t.Errorf("interval = %v", runner.interval)
	}
	if runner.startDelay != campaignStartDelay {
		t.Errorf("start delay = %v", runner.startDelay)
	}
}

func TestCampaignRunner_StopDuringStartDelay(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	delay := time.Hour
	runner := NewCampaignRunner(CampaignRunnerConfig{
		Engine: engineFunc(func(ctx context.Context) (*model.RunReport, error) {
			calls.Add(1)
			return &model.RunReport{}, nil
		}),
		StartDelay: &delay,
		Logger:     quietLogger(),
	})

	runner.Start()
	runner.Stop()

	if calls.Load() != 0 {
		t.Error("engine should not run before the start delay elapses")
	}
}

func TestTokenCleanup_RunOnce(t *testing.T) {
	t.Parallel()

	var called bool
	job := NewTokenCleanup(cleanerFunc(func(ctx context.Context) error {
		called = true
		return nil
	}), 0, quietLogger())

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("expected cleanup to run")
	}
	if job.interval != defaultTokenCleanupInterval {
		t.Errorf("interval = %v", job.interval)
	}
}

func TestTokenCleanup_StartStop(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 1)
	job := NewTokenCleanup(cleanerFunc(func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}), time.Hour, quietLogger())

	job.Start()
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup should run once on start")
	}
	job.Stop()
}
