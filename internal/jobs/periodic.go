package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// periodic runs a task on a fixed interval until stopped. Ticks never
// overlap: a slow task delays the next one instead of running alongside it.
type periodic struct {
	name       string
	interval   time.Duration
	startDelay time.Duration
	timeout    time.Duration
	task       func(ctx context.Context) error
	logger     *slog.Logger

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// Start begins the job loop
func (p *periodic) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
	p.logger.Info("job started", "job", p.name, "interval", p.interval)
}

// Stop gracefully stops the job and waits for an in-flight tick
func (p *periodic) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	p.logger.Info("job stopped", "job", p.name)
}

// IsRunning returns whether the job loop is active
func (p *periodic) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *periodic) run() {
	defer p.wg.Done()

	// Give the rest of the process a moment to come up
	if p.startDelay > 0 {
		select {
		case <-time.After(p.startDelay):
		case <-p.stopCh:
			return
		}
	}
	p.tick()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.tick()
		case <-p.stopCh:
			return
		}
	}
}

func (p *periodic) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	// Cancel the tick early on shutdown
	go func() {
		select {
		case <-p.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := p.task(ctx); err != nil {
		p.logger.Error("job tick failed", "job", p.name, "error", err)
	}
}
