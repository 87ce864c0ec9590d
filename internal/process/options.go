package process

import (
	"time"

	"github.com/smazurov/servicedeck/internal/logging"
	"github.com/smazurov/servicedeck/internal/logstore"
)

// Default timeouts.
const (
	DefaultStopTimeout  = 5 * time.Second
	DefaultKillTimeout  = 5 * time.Second
	DefaultDrainTimeout = 2 * time.Second
)

// StateChangeCallback is called when a service changes state.
// Used for domain-specific reactions (e.g., events, metrics).
type StateChangeCallback func(change StateChange)

// Options configures a new Supervisor.
type Options struct {
	// Store receives captured output. If nil, a store with default capacity is created.
	Store *logstore.Store

	// Terminator ends processes. If nil, DefaultTerminator() is used.
	Terminator Terminator

	// StopTimeout bounds the wait for graceful exit before a forced kill.
	StopTimeout time.Duration

	// KillTimeout bounds the wait after a forced kill before giving up.
	KillTimeout time.Duration

	// DrainTimeout bounds how long an exited process waits for its output
	// to be captured before it is reported as exited.
	DrainTimeout time.Duration

	// OnStateChange is called on state transitions (optional).
	OnStateChange StateChangeCallback

	// Logger for supervisor operations. If nil, uses slog.Default().
	Logger logging.Logger
}
