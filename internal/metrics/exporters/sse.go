package exporters

import (
	"context"
	"sync"
	"time"

	"github.com/smazurov/servicedeck/internal/events"
	"github.com/smazurov/servicedeck/internal/metrics"
)

// EventPublisher interface for publishing events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// SSEExporter publishes resource snapshots of running services on the event
// bus for Server-Sent Events clients.
type SSEExporter struct {
	eventBus EventPublisher
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
}

// NewSSEExporter creates a new SSE exporter.
func NewSSEExporter(eventBus EventPublisher) *SSEExporter {
	return &SSEExporter{
		eventBus: eventBus,
		interval: 2 * time.Second,
	}
}

// Start begins the SSE export loop.
func (s *SSEExporter) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop stops the SSE exporter and waits for the goroutine to finish.
// It is safe to call more than once, and before Start.
func (s *SSEExporter) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *SSEExporter) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.publishMetrics()
		}
	}
}

func (s *SSEExporter) publishMetrics() {
	for serviceID, m := range metrics.GetAllServiceMetrics() {
		if !m.Running {
			continue
		}
		s.eventBus.Publish(events.ServiceMetricsEvent{
			ServiceID:   serviceID,
			PID:         m.PID,
			CPUPercent:  m.CPUPercent,
			MemoryBytes: m.MemoryBytes,
			Starts:      m.Starts,
			LogLines:    m.LogLines,
		})
	}
}

// GetEventTypes returns event types for SSE endpoint registration.
func GetEventTypes() map[string]any {
	return map[string]any{
		"service-metrics": events.ServiceMetricsEvent{},
	}
}
