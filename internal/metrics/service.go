// Package metrics provides Prometheus metrics for supervised services.
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/servicedeck/internal/logstore"
	"github.com/smazurov/servicedeck/internal/process"
)

const namespace = "servicedeck"

var (
	serviceRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "running",
		Help:      "Whether the service has a live process (1) or not (0)",
	}, []string{"service_id"})

	serviceStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "starts_total",
		Help:      "Successful process starts",
	}, []string{"service_id"})

	serviceStartFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "start_failures_total",
		Help:      "Process starts that failed to spawn",
	}, []string{"service_id"})

	serviceExits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "exits_total",
		Help:      "Process exits by outcome: stopped, exited or error",
	}, []string{"service_id", "outcome"})

	serviceCPU = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "cpu_percent",
		Help:      "Average CPU usage of the service's process",
	}, []string{"service_id"})

	serviceMemory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "service",
		Name:      "memory_bytes",
		Help:      "Resident memory of the service's process",
	}, []string{"service_id"})

	logLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "logs",
		Name:      "lines_total",
		Help:      "Captured output lines by level",
	}, []string{"level"})

	logEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "logs",
		Name:      "evictions_total",
		Help:      "Log entries dropped because a service's buffer was full",
	})

	// Local cache for SSE exporter access.
	serviceCache   = make(map[int64]*ServiceMetrics)
	serviceCacheMu sync.RWMutex
)

// ServiceMetrics holds current metric values for a service.
type ServiceMetrics struct {
	Running     bool
	PID         int
	RunID       string
	CPUPercent  float64
	MemoryBytes uint64
	Starts      float64
	LogLines    float64
}

func label(serviceID int64) string {
	return strconv.FormatInt(serviceID, 10)
}

// RecordStateChange updates service metrics from a supervisor transition.
func RecordStateChange(change process.StateChange) {
	id := change.Info.ServiceID
	l := label(id)

	switch change.Info.State {
	case process.StateRunning:
		serviceRunning.WithLabelValues(l).Set(1)
		serviceStarts.WithLabelValues(l).Inc()
		updateCache(id, func(m *ServiceMetrics) {
			m.Running = true
			m.PID = change.Info.PID
			m.RunID = change.Info.RunID
			m.Starts++
		})
		return
	case process.StateStopping:
		return
	case process.StateIdle:
		serviceExits.WithLabelValues(l, "stopped").Inc()
	case process.StateExited:
		serviceExits.WithLabelValues(l, "exited").Inc()
	case process.StateError:
		if change.OldState == process.StateIdle {
			serviceStartFailures.WithLabelValues(l).Inc()
		} else {
			serviceExits.WithLabelValues(l, "error").Inc()
		}
	}

	// A restart reports the new run before the old one has been reaped
	if !endRun(id, change.Info.RunID) {
		return
	}
	serviceRunning.WithLabelValues(l).Set(0)
	serviceCPU.DeleteLabelValues(l)
	serviceMemory.DeleteLabelValues(l)
}

// endRun clears the cached run unless runID belongs to an earlier run than
// the cached one. It reports whether the cache was cleared.
func endRun(serviceID int64, runID string) bool {
	serviceCacheMu.Lock()
	defer serviceCacheMu.Unlock()
	m, ok := serviceCache[serviceID]
	if !ok {
		m = &ServiceMetrics{}
		serviceCache[serviceID] = m
	}
	if runID != "" && m.RunID != "" && runID != m.RunID {
		return false
	}
	m.Running = false
	m.PID = 0
	m.RunID = ""
	m.CPUPercent = 0
	m.MemoryBytes = 0
	return true
}

// RecordLogEntry counts a captured line. It matches logstore.Callback.
func RecordLogEntry(entry logstore.Entry, evicted bool) {
	logLines.WithLabelValues(string(entry.Level)).Inc()
	if evicted {
		logEvictions.Inc()
	}
	updateCache(entry.ServiceID, func(m *ServiceMetrics) { m.LogLines++ })
}

// SetServiceResources sets the sampled CPU and memory of a running service.
func SetServiceResources(serviceID int64, cpuPercent float64, memoryBytes uint64) {
	l := label(serviceID)
	serviceCPU.WithLabelValues(l).Set(cpuPercent)
	serviceMemory.WithLabelValues(l).Set(float64(memoryBytes))
	updateCache(serviceID, func(m *ServiceMetrics) {
		m.CPUPercent = cpuPercent
		m.MemoryBytes = memoryBytes
	})
}

// DeleteServiceMetrics removes all per-service series for a service.
func DeleteServiceMetrics(serviceID int64) {
	l := label(serviceID)
	serviceRunning.DeleteLabelValues(l)
	serviceStarts.DeleteLabelValues(l)
	serviceStartFailures.DeleteLabelValues(l)
	serviceCPU.DeleteLabelValues(l)
	serviceMemory.DeleteLabelValues(l)
	serviceExits.DeletePartialMatch(prometheus.Labels{"service_id": l})

	serviceCacheMu.Lock()
	delete(serviceCache, serviceID)
	serviceCacheMu.Unlock()
}

// GetServiceMetrics returns current metric values for a service.
func GetServiceMetrics(serviceID int64) *ServiceMetrics {
	serviceCacheMu.RLock()
	defer serviceCacheMu.RUnlock()
	if m, ok := serviceCache[serviceID]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// GetAllServiceMetrics returns metrics for all known services.
func GetAllServiceMetrics() map[int64]*ServiceMetrics {
	serviceCacheMu.RLock()
	defer serviceCacheMu.RUnlock()
	result := make(map[int64]*ServiceMetrics, len(serviceCache))
	for id, m := range serviceCache {
		dup := *m
		result[id] = &dup
	}
	return result
}

func updateCache(serviceID int64, update func(*ServiceMetrics)) {
	serviceCacheMu.Lock()
	defer serviceCacheMu.Unlock()
	m, ok := serviceCache[serviceID]
	if !ok {
		m = &ServiceMetrics{}
		serviceCache[serviceID] = m
	}
	update(m)
}
