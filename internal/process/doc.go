// Package process supervises local services run as child processes.
//
// A Supervisor owns two shared structures:
//   - the process table, mapping a service id to its live handle
//   - a logstore.Store, holding the captured output of every service
//
// Start splits the command on whitespace, spawns it with stdout and stderr
// redirected to pipes, and starts two capture goroutines that append each
// line to the store until the pipes close. A reaper goroutine waits for the
// process and removes its handle from the table when it exits.
//
// Stop removes the handle and requests graceful termination (SIGTERM to the
// process group on unix, Kill on windows). The wait for exit happens in the
// background, bounded by StopTimeout, after which the process is killed.
//
// Errors carry an ErrorKind:
//
//	pid, err := sup.Start(1, process.Spec{Command: "npm run dev"})
//	if errors.Is(err, process.ErrAlreadyRunning) {
//	    // stop it first
//	}
//
// Example:
//
//	sup := process.NewSupervisor(&process.Options{
//	    OnStateChange: func(c process.StateChange) {
//	        log.Printf("service %d: %s -> %s", c.Info.ServiceID, c.OldState, c.Info.State)
//	    },
//	})
//	pid, _ := sup.Start(1, process.Spec{Command: "python -m http.server"})
//	defer sup.StopAll(context.Background())
package process
