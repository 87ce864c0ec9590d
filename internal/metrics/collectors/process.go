// Package collectors samples runtime data for supervised services.
package collectors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/servicedeck/internal/metrics"
	"github.com/smazurov/servicedeck/internal/process"
)

// DefaultInterval is how often process resources are sampled.
const DefaultInterval = 5 * time.Second

// ProcessLister lists the live processes to sample.
type ProcessLister interface {
	List() []process.Info
}

// LookupFunc resolves a pid to resource usage.
type LookupFunc func(pid int) (*process.ProcInfo, bool)

// ProcessCollector periodically records CPU and memory of every running
// service's process.
type ProcessCollector struct {
	logger   *slog.Logger
	lister   ProcessLister
	lookup   LookupFunc
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewProcessCollector creates a collector. A zero interval uses DefaultInterval.
func NewProcessCollector(lister ProcessLister, interval time.Duration) *ProcessCollector {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &ProcessCollector{
		logger:   slog.With("component", "process_collector"),
		lister:   lister,
		lookup:   process.LookupProcess,
		interval: interval,
	}
}

// Start begins sampling until ctx is cancelled or Stop is called.
func (c *ProcessCollector) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop stops sampling and waits for the loop to exit.
func (c *ProcessCollector) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
	})
	c.wg.Wait()
}

func (c *ProcessCollector) run(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Collect()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}

// Collect takes one sample of every live process.
func (c *ProcessCollector) Collect() {
	for _, info := range c.lister.List() {
		proc, ok := c.lookup(info.PID)
		if !ok {
			// Exited between List and lookup; the reaper will update state
			c.logger.Debug("Process vanished before sampling", "service_id", info.ServiceID, "pid", info.PID)
			continue
		}
		metrics.SetServiceResources(info.ServiceID, proc.CPUPercent, proc.MemoryBytes)
	}
}
