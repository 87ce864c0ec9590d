package events

import (
	"time"

	"github.com/smazurov/servicedeck/internal/logstore"
	"github.com/smazurov/servicedeck/internal/process"
)

// Event type constants for kelindar/event.
const (
	TypeServiceStateChanged uint32 = iota + 1
	TypeLogEntry
	TypeCatalogReloaded
	TypeServiceMetrics
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ServiceStateChangedEvent is published on every supervisor state transition.
type ServiceStateChangedEvent struct {
	ServiceID int64  `json:"service_id" example:"1" doc:"Service identifier"`
	Name      string `json:"name" example:"api" doc:"Service name"`
	OldState  string `json:"old_state" example:"idle" doc:"Previous state"`
	State     string `json:"state" example:"running" doc:"New state"`
	PID       int    `json:"pid,omitempty" example:"4242" doc:"OS process id"`
	RunID     string `json:"run_id,omitempty" doc:"Identifier of this run of the service"`
	ExitCode  int    `json:"exit_code" example:"0" doc:"Exit code, meaningful for exited and error states"`
	Error     string `json:"error,omitempty" doc:"Failure description"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ServiceStateChangedEvent.
func (e ServiceStateChangedEvent) Type() uint32 { return TypeServiceStateChanged }

// LogEntryEvent carries one captured output line for SSE streaming.
type LogEntryEvent struct {
	ID        uint64 `json:"id" example:"42" doc:"Monotonic entry id, for deduplication against history"`
	ServiceID int64  `json:"service_id" example:"1" doc:"Service identifier"`
	Level     string `json:"level" example:"info" doc:"info for stdout, error for stderr"`
	Stream    string `json:"stream" example:"stdout" doc:"Source stream"`
	Message   string `json:"message" doc:"Output line without line ending"`
	Timestamp string `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Capture timestamp"`
	Evicted   bool   `json:"-"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }

// CatalogReloadedEvent is published after the services file is re-read.
type CatalogReloadedEvent struct {
	Services  int    `json:"services" example:"4" doc:"Number of services in the catalog"`
	Error     string `json:"error,omitempty" doc:"Reload failure, previous catalog kept"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for CatalogReloadedEvent.
func (e CatalogReloadedEvent) Type() uint32 { return TypeCatalogReloaded }

// ServiceMetricsEvent is a periodic resource snapshot of a running service.
type ServiceMetricsEvent struct {
	ServiceID   int64   `json:"service_id" example:"1" doc:"Service identifier"`
	PID         int     `json:"pid" example:"4242" doc:"OS process id"`
	CPUPercent  float64 `json:"cpu_percent" example:"1.5" doc:"Average CPU usage"`
	MemoryBytes uint64  `json:"memory_bytes" example:"52428800" doc:"Resident memory"`
	Starts      float64 `json:"starts" example:"3" doc:"Starts since servicedeck launched"`
	LogLines    float64 `json:"log_lines" example:"120" doc:"Lines captured since servicedeck launched"`
}

// Type returns the event type identifier for ServiceMetricsEvent.
func (e ServiceMetricsEvent) Type() uint32 { return TypeServiceMetrics }

// NewServiceStateChanged converts a supervisor state change into an event.
func NewServiceStateChanged(change process.StateChange) ServiceStateChangedEvent {
	ev := ServiceStateChangedEvent{
		ServiceID: change.Info.ServiceID,
		Name:      change.Info.Name,
		OldState:  string(change.OldState),
		State:     string(change.Info.State),
		PID:       change.Info.PID,
		RunID:     change.Info.RunID,
		ExitCode:  change.ExitCode,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if change.Err != nil {
		ev.Error = change.Err.Error()
	}
	return ev
}

// NewLogEntry converts a stored log entry into an event.
func NewLogEntry(entry logstore.Entry, evicted bool) LogEntryEvent {
	return LogEntryEvent{
		ID:        entry.ID,
		ServiceID: entry.ServiceID,
		Level:     string(entry.Level),
		Stream:    string(entry.Stream),
		Message:   entry.Message,
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Evicted:   evicted,
	}
}
