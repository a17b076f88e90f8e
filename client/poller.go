package client

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"kanban-api/export"
)

// StatusFetcher looks up an export request's current state; satisfied by
// *export.Service or an HTTP client for the status endpoint.
type StatusFetcher interface {
	Status(ctx context.Context, requestID string) (export.Snapshot, error)
}

// PollerConfig tunes the fallback polling loop. Zero values take the
// defaults matching the push-first design: polling only has to catch the
// cases where the export event was lost.
type PollerConfig struct {
	InitialDelay time.Duration // before the first check (default 4s)
	StepDelay    time.Duration // added per attempt (default 1s)
	MaxDelay     time.Duration // backoff cap (default 10s)
	ErrorRetry   time.Duration // after a failed fetch (default 6s)
	MaxAttempts  int           // pending responses before giving up (default 15)

	OnUpdate func(export.Snapshot) // every fetched state
	OnGiveUp func()                // attempts exhausted while still pending
}

func (c *PollerConfig) defaults() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 4 * time.Second
	}
	if c.StepDelay <= 0 {
		c.StepDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.ErrorRetry <= 0 {
		c.ErrorRetry = 6 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 15
	}
}

// StatusPoller polls one export request until a terminal state, the
// attempt budget, or Stop. It holds a single cancellable timer, so no
// timer leaks across board navigations.
type StatusPoller struct {
	fetch     StatusFetcher
	requestID string
	cfg       PollerConfig

	mu       sync.Mutex
	timer    *time.Timer
	attempts int
	stopped  bool
}

// StartPoll schedules the first status check and returns the poller handle.
func StartPoll(fetch StatusFetcher, requestID string, cfg PollerConfig) *StatusPoller {
	cfg.defaults()
	p := &StatusPoller{fetch: fetch, requestID: requestID, cfg: cfg}
	p.mu.Lock()
	p.timer = time.AfterFunc(cfg.InitialDelay, p.poll)
	p.mu.Unlock()
	return p
}

// Stop cancels any scheduled check. Safe to call more than once; invoked
// on view teardown, terminal push events, or a new request id superseding
// this one.
func (p *StatusPoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *StatusPoller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	snap, err := p.fetch.Status(ctx, p.requestID)
	cancel()
	if err != nil {
		log.WithField("request", p.requestID).Debugf("export status poll failed: %v", err)
		p.reschedule(p.cfg.ErrorRetry)
		return
	}
	if p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(snap)
	}
	if snap.Status != export.StatusPending {
		p.Stop()
		return
	}

	p.mu.Lock()
	p.attempts++
	exhausted := p.attempts >= p.cfg.MaxAttempts
	delay := p.cfg.InitialDelay + time.Duration(p.attempts)*p.cfg.StepDelay
	if delay > p.cfg.MaxDelay {
		delay = p.cfg.MaxDelay
	}
	p.mu.Unlock()

	if exhausted {
		p.Stop()
		if p.cfg.OnGiveUp != nil {
			p.cfg.OnGiveUp()
		}
		return
	}
	p.reschedule(delay)
}

func (p *StatusPoller) reschedule(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.timer = time.AfterFunc(d, p.poll)
}
