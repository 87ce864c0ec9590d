package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/smazurov/servicedeck/internal/logging"
	"github.com/smazurov/servicedeck/internal/logstore"
	"golang.org/x/sync/errgroup"
)

// Supervisor starts, tracks and stops service processes and owns their
// captured output.
type Supervisor struct {
	opts   Options
	store  *logstore.Store
	term   Terminator
	logger logging.Logger

	mu       sync.Mutex
	table    map[int64]*handle
	starting map[int64]struct{}

	wg sync.WaitGroup
}

// NewSupervisor creates a supervisor with an empty process table.
func NewSupervisor(opts *Options) *Supervisor {
	var o Options
	if opts != nil {
		o = *opts
	}

	if o.Store == nil {
		o.Store = logstore.New(logstore.Options{})
	}
	if o.Terminator == nil {
		o.Terminator = DefaultTerminator()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = DefaultKillTimeout
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = DefaultDrainTimeout
	}

	return &Supervisor{
		opts:     o,
		store:    o.Store,
		term:     o.Terminator,
		logger:   o.Logger,
		table:    make(map[int64]*handle),
		starting: make(map[int64]struct{}),
	}
}

// Store returns the log store fed by this supervisor.
func (s *Supervisor) Store() *logstore.Store {
	return s.store
}

// Start spawns the service's command and returns the OS pid.
// It fails with ErrAlreadyRunning if the service has a live process.
func (s *Supervisor) Start(serviceID int64, spec Spec) (int, error) {
	args, err := ParseCommand(spec.Command)
	if err != nil {
		s.logger.Error("Empty command", "service_id", serviceID)
		return 0, newError(KindInvalidCommand, serviceID, "empty command", nil)
	}

	s.mu.Lock()
	if h, exists := s.table[serviceID]; exists && !h.exited() {
		s.mu.Unlock()
		return 0, newError(KindAlreadyRunning, serviceID, fmt.Sprintf("already running with pid %d", h.pid), nil)
	}
	if _, pending := s.starting[serviceID]; pending {
		s.mu.Unlock()
		return 0, newError(KindAlreadyRunning, serviceID, "start already in progress", nil)
	}
	delete(s.table, serviceID)
	s.starting[serviceID] = struct{}{}
	s.mu.Unlock()

	h, stdout, stderr, spawnErr := spawn(serviceID, spec, args)

	s.mu.Lock()
	delete(s.starting, serviceID)
	if spawnErr == nil {
		s.table[serviceID] = h
	}
	s.mu.Unlock()

	if spawnErr != nil {
		err := newError(KindSpawnFailure, serviceID, "failed to start "+args[0], spawnErr)
		s.logger.Error("Failed to start process", "service_id", serviceID, "command", spec.Command, "error", spawnErr)
		s.notify(StateChange{
			Info:     Info{ServiceID: serviceID, Name: spec.Name, Command: spec.Command, State: StateError},
			OldState: StateIdle,
			Err:      err,
		})
		return 0, err
	}

	s.logger.Info("Process started", "service_id", serviceID, "pid", h.pid, "command", spec.Command, "run_id", h.runID)

	h.captureOutput(s.store, stdout, stderr, s.logger)
	s.notify(StateChange{Info: h.info(StateRunning), OldState: StateIdle})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reap(h)
	}()

	return h.pid, nil
}

// reap waits for the process, drains its output, then drops it from the
// table unless a newer handle replaced it.
func (s *Supervisor) reap(h *handle) {
	waitErr := h.cmd.Wait()
	h.waitErr = waitErr
	h.exitCode = exitCodeFromError(waitErr)
	close(h.reaped)

	if !h.waitOutput(s.opts.DrainTimeout) {
		s.logger.Warn("Output still open after process exit", "service_id", h.serviceID, "pid", h.pid)
	}

	s.mu.Lock()
	if current, exists := s.table[h.serviceID]; exists && current == h {
		delete(s.table, h.serviceID)
	}
	stopping := h.stopping.Load()
	s.mu.Unlock()
	close(h.done)

	if stopping {
		s.logger.Info("Process stopped", "service_id", h.serviceID, "pid", h.pid, "exit_code", h.exitCode)
		s.notify(StateChange{Info: h.info(StateIdle), OldState: StateStopping, ExitCode: h.exitCode})
		return
	}

	change := StateChange{Info: h.info(StateExited), OldState: StateRunning, ExitCode: h.exitCode}
	if h.exitCode != 0 {
		change.Info.State = StateError
		change.Err = fmt.Errorf("process exited with code %d: %w", h.exitCode, waitErr)
		s.logger.Warn("Process exited with error", "service_id", h.serviceID, "pid", h.pid, "exit_code", h.exitCode)
	} else {
		s.logger.Info("Process exited", "service_id", h.serviceID, "pid", h.pid)
	}
	s.notify(change)
}

// Stop removes the service from the process table and asks its process to
// terminate. It returns once termination is initiated; reaping continues in
// the background and escalates to a kill after StopTimeout.
func (s *Supervisor) Stop(serviceID int64) error {
	s.mu.Lock()
	h, exists := s.table[serviceID]
	if !exists {
		s.mu.Unlock()
		return newError(KindNotFound, serviceID, "service not running", nil)
	}
	delete(s.table, serviceID)
	h.stopping.Store(true)
	s.mu.Unlock()

	s.logger.Info("Stopping process", "service_id", serviceID, "pid", h.pid)
	s.notify(StateChange{Info: h.info(StateStopping), OldState: StateRunning})
	s.terminate(h)
	return nil
}

// terminate sends the graceful request and starts the bounded wait.
func (s *Supervisor) terminate(h *handle) {
	if err := s.term.TerminateGracefully(h.cmd.Process); err != nil {
		sigErr := newError(KindSignalFailure, h.serviceID, "graceful termination failed", err)
		s.logger.Warn("Failed to signal process, forcing kill", "service_id", h.serviceID, "pid", h.pid, "error", sigErr)
		s.forceKill(h)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.awaitExit(h)
	}()
}

// awaitExit waits for the process to be reaped, force-killing it if the
// graceful timeout passes.
func (s *Supervisor) awaitExit(h *handle) {
	select {
	case <-h.reaped:
		return
	case <-time.After(s.opts.StopTimeout):
		s.logger.Warn("Graceful shutdown timeout, forcing kill", "service_id", h.serviceID, "pid", h.pid, "timeout", s.opts.StopTimeout)
		s.forceKill(h)
	}

	select {
	case <-h.reaped:
	case <-time.After(s.opts.KillTimeout):
		s.logger.Error("Process did not exit after kill signal", "service_id", h.serviceID, "pid", h.pid)
	}
}

func (s *Supervisor) forceKill(h *handle) {
	if err := s.term.ForceKill(h.cmd.Process); err != nil {
		s.logger.Error("Failed to kill process", "service_id", h.serviceID, "pid", h.pid, "error", err)
	}
}

// Restart stops the service if it is running and starts it again with spec.
func (s *Supervisor) Restart(serviceID int64, spec Spec) (int, error) {
	s.logger.Info("Restarting process", "service_id", serviceID)
	if err := s.Stop(serviceID); err != nil && !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("failed to stop process: %w", err)
	}
	return s.Start(serviceID, spec)
}

// IsRunning reports whether the service has a live process. It never
// blocks; an exited handle found here is purged.
func (s *Supervisor) IsRunning(serviceID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.table[serviceID]
	if !exists {
		return false
	}
	if h.exited() {
		delete(s.table, serviceID)
		return false
	}
	return true
}

// Status returns process info. Returns idle state if not found.
func (s *Supervisor) Status(serviceID int64) Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.table[serviceID]
	if !exists || h.exited() {
		return Info{ServiceID: serviceID, State: StateIdle}
	}
	return h.info(StateRunning)
}

// List returns info for every live process, ordered by service id.
func (s *Supervisor) List() []Info {
	s.mu.Lock()
	infos := make([]Info, 0, len(s.table))
	for _, h := range s.table {
		if !h.exited() {
			infos = append(infos, h.info(StateRunning))
		}
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ServiceID < infos[j].ServiceID })
	return infos
}

// Logs returns the service's captured output, newest first.
// A positive limit truncates the result.
func (s *Supervisor) Logs(serviceID int64, limit int) []logstore.Entry {
	return s.store.Get(serviceID, limit)
}

// ClearLogs discards the service's captured output. Running processes are
// not affected.
func (s *Supervisor) ClearLogs(serviceID int64) {
	s.store.Clear(serviceID)
}

// ProcessInfo looks pid up in the OS process table.
func (s *Supervisor) ProcessInfo(pid int) (*ProcInfo, bool) {
	return LookupProcess(pid)
}

// StopAll stops every live process concurrently and waits until each one
// has been reaped and its output drained, or ctx ends.
func (s *Supervisor) StopAll(ctx context.Context) error {
	s.mu.Lock()
	handles := make([]*handle, 0, len(s.table))
	for id, h := range s.table {
		h.stopping.Store(true)
		handles = append(handles, h)
		delete(s.table, id)
	}
	s.mu.Unlock()

	s.logger.Info("Stopping all processes", "count", len(handles))

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		g.Go(func() error {
			s.notify(StateChange{Info: h.info(StateStopping), OldState: StateRunning})
			s.terminate(h)
			select {
			case <-h.done:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("stop all: %w", err)
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-ctx.Done():
		return fmt.Errorf("stop all: %w", ctx.Err())
	}

	s.logger.Info("All processes stopped")
	return nil
}

// notify invokes the OnStateChange callback if configured.
func (s *Supervisor) notify(change StateChange) {
	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(change)
	}
}
