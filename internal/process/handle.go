package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smazurov/servicedeck/internal/logging"
	"github.com/smazurov/servicedeck/internal/logstore"
)

// handle is the supervisor's live reference to a child process.
// It is owned by the process table.
type handle struct {
	serviceID int64
	spec      Spec
	cmd       *exec.Cmd
	pid       int
	runID     string
	startedAt time.Time

	reaped   chan struct{} // closed once Wait returned
	done     chan struct{} // closed once reaped and output drained
	output   sync.WaitGroup
	exitCode int
	waitErr  error
	stopping atomic.Bool
}

// exited reports whether the process has exited and its output has been
// captured, without blocking. A descendant holding the pipes open delays
// this by at most DrainTimeout after the process is reaped.
func (h *handle) exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

func (h *handle) info(state State) Info {
	return Info{
		ServiceID: h.serviceID,
		Name:      h.spec.Name,
		Command:   h.spec.Command,
		State:     state,
		PID:       h.pid,
		RunID:     h.runID,
		StartedAt: h.startedAt,
	}
}

// ParseCommand splits a command line on whitespace into the executable and
// its arguments. No quoting or escaping is interpreted.
func ParseCommand(command string) ([]string, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, ErrInvalidCommand
	}
	return args, nil
}

// spawn starts the command with stdout and stderr attached to fresh pipes.
// The returned readers belong to the caller. Pipes are created directly
// rather than via StdoutPipe so that Wait does not close them and does not
// block on descendants that keep the write ends open.
func spawn(serviceID int64, spec Spec, args []string) (*handle, *os.File, *os.File, error) {
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, nil, nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = spec.WorkingDir
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	setProcAttr(cmd)

	startErr := cmd.Start()

	// The child holds its own copies of the write ends
	stdoutW.Close()
	stderrW.Close()

	if startErr != nil {
		stdoutR.Close()
		stderrR.Close()
		return nil, nil, nil, startErr
	}

	h := &handle{
		serviceID: serviceID,
		spec:      spec,
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		runID:     uuid.NewString(),
		startedAt: time.Now(),
		reaped:    make(chan struct{}),
		done:      make(chan struct{}),
	}
	return h, stdoutR, stderrR, nil
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

// captureOutput starts one capture goroutine per stream.
func (h *handle) captureOutput(store *logstore.Store, stdout, stderr *os.File, logger logging.Logger) {
	h.output.Add(2)
	go func() {
		defer h.output.Done()
		captureStream(stdout, h.serviceID, logstore.StreamStdout, store, logger)
	}()
	go func() {
		defer h.output.Done()
		captureStream(stderr, h.serviceID, logstore.StreamStderr, store, logger)
	}()
}

// waitOutput waits for both capture goroutines, giving up after timeout.
func (h *handle) waitOutput(timeout time.Duration) bool {
	drained := make(chan struct{})
	go func() {
		h.output.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return true
	case <-time.After(timeout):
		return false
	}
}
