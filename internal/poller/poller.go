// Package poller schedules collections of every registered target on a
// fixed interval with a bounded number of concurrent workers.
package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/models"
	"github.com/soltixdb/rediswatch/internal/registry"
)

// Collector polls one registry entry and publishes the outcome on it
type Collector interface {
	Poll(ctx context.Context, entry *registry.Entry) error
}

// Config configures the poller
type Config struct {
	Interval time.Duration
	Workers  int // max concurrent collections
}

// CycleStats summarizes one poll cycle
type CycleStats struct {
	CycleID  string
	Polled   int
	Skipped  int // still in flight from an earlier cycle
	Failed   int
	Duration time.Duration
}

// Poller runs poll cycles over the registry on a ticker.
// Every address is collected by at most one worker at a time.
type Poller struct {
	config   Config
	registry *registry.Registry
	source   registry.Source // optional
	nodes    Collector
	proxies  Collector
	onRemove func(addr string)
	onCycle  func(CycleStats)
	logger   *logging.Logger

	// Semaphore to limit concurrent collections
	semaphore chan struct{}

	// Stats
	totalCycles atomic.Int64
	totalFailed atomic.Int64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New creates a poller. source may be nil, in which case the registry is
// only changed by its owner.
func New(cfg Config, reg *registry.Registry, source registry.Source, nodes, proxies Collector, logger *logging.Logger) *Poller {
	if cfg.Workers <= 0 {
		cfg.Workers = 16
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	return &Poller{
		config:    cfg,
		registry:  reg,
		source:    source,
		nodes:     nodes,
		proxies:   proxies,
		logger:    logger.Component("poller"),
		semaphore: make(chan struct{}, cfg.Workers),
	}
}

// OnRemove registers a callback invoked for every address dropped by a sync
func (p *Poller) OnRemove(fn func(addr string)) {
	p.onRemove = fn
}

// OnCycle registers a callback invoked with the stats of every finished cycle
func (p *Poller) OnCycle(fn func(CycleStats)) {
	p.onCycle = fn
}

// Start runs a cycle immediately and then one per interval until Stop
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("poller already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})

	p.wg.Add(1)
	go p.loop(ctx, p.stopCh)

	p.logger.Info("Poller started",
		"interval", p.config.Interval.String(),
		"workers", p.config.Workers)
	return nil
}

// Stop ends the loop and waits for the running cycle to finish
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Poller stopped",
		"cycles", p.totalCycles.Load(),
		"failed_collections", p.totalFailed.Load())
}

func (p *Poller) loop(ctx context.Context, stopCh <-chan struct{}) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	// a cancelled cycle is abandoned, never resumed
	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stopCh:
			cancel()
		case <-cycleCtx.Done():
		}
	}()

	p.RunOnce(cycleCtx)
	for {
		select {
		case <-stopCh:
			return
		case <-cycleCtx.Done():
			return
		case <-ticker.C:
			p.RunOnce(cycleCtx)
		}
	}
}

// RunOnce syncs the registry from the source and collects every entry once
func (p *Poller) RunOnce(ctx context.Context) CycleStats {
	start := time.Now()
	stats := CycleStats{CycleID: uuid.New().String()}
	ctx = logging.WithCycleID(ctx, stats.CycleID)
	log := p.logger.WithContext(ctx)

	p.syncTargets(ctx)

	var failed atomic.Int64
	var wg sync.WaitGroup

dispatch:
	for _, entry := range p.registry.Entries() {
		if !entry.TryAcquire() {
			stats.Skipped++
			log.Debug("Collection still in flight, skipping", "target", entry.Addr())
			continue
		}

		select {
		case p.semaphore <- struct{}{}:
		case <-ctx.Done():
			entry.Release()
			break dispatch
		}

		stats.Polled++
		wg.Add(1)
		go func(entry *registry.Entry) {
			defer wg.Done()
			defer func() { <-p.semaphore }()
			defer entry.Release()

			if err := p.collect(ctx, entry); err != nil {
				failed.Add(1)
			}
		}(entry)
	}
	wg.Wait()

	stats.Failed = int(failed.Load())
	stats.Duration = time.Since(start)
	p.totalCycles.Add(1)
	p.totalFailed.Add(failed.Load())

	log.Debug("Poll cycle completed",
		"polled", stats.Polled,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration_ms", stats.Duration.Milliseconds())
	if p.onCycle != nil {
		p.onCycle(stats)
	}
	return stats
}

// collect polls one entry. Errors and panics stay inside the worker.
func (p *Poller) collect(ctx context.Context, entry *registry.Entry) (err error) {
	target := entry.Target()
	ctx = logging.WithTarget(ctx, target.Addr)
	log := p.logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collection panicked: %v", r)
			entry.RecordFailure()
			log.Error("Collection panicked", "panic", fmt.Sprint(r))
		}
	}()

	collector := p.nodes
	if target.Role == models.RoleProxy {
		collector = p.proxies
	}

	err = collector.Poll(ctx, entry)
	if err != nil {
		log.Warn("Collection failed",
			"role", target.Role,
			"error", err,
			"consecutive_failures", entry.ConsecutiveFailures())
	}
	return err
}

func (p *Poller) syncTargets(ctx context.Context) {
	if p.source == nil {
		return
	}
	log := p.logger.WithContext(ctx)

	targets, err := p.source.Targets(ctx)
	if err != nil {
		log.Warn("Target discovery failed, keeping current targets", "error", err)
		return
	}

	added, removed := p.registry.Sync(targets)
	for _, addr := range removed {
		if p.onRemove != nil {
			p.onRemove(addr)
		}
	}
	if len(added) > 0 || len(removed) > 0 {
		log.Info("Targets synced", "added", added, "removed", removed, "total", p.registry.Len())
	}
}
