package process

import "time"

// State represents the current state of a supervised service.
type State string

// Service states.
const (
	StateIdle     State = "idle"     // Not in the process table
	StateRunning  State = "running"  // Live handle registered
	StateStopping State = "stopping" // Termination requested
	StateExited   State = "exited"   // Exited on its own with code 0
	StateError    State = "error"    // Failed to spawn or exited non-zero
)

// Spec is the part of a service definition the supervisor needs.
type Spec struct {
	Name       string
	Command    string
	WorkingDir string
}

// Info describes a service's process.
type Info struct {
	ServiceID int64     `json:"service_id"`
	Name      string    `json:"name"`
	Command   string    `json:"command"`
	State     State     `json:"state"`
	PID       int       `json:"pid"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
}

// StateChange is delivered to the OnStateChange callback.
type StateChange struct {
	Info     Info
	OldState State
	ExitCode int
	Err      error
}
