package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/smazurov/servicedeck/internal/config"
	"github.com/smazurov/servicedeck/internal/logging"
	"github.com/smazurov/servicedeck/internal/logstore"
	"github.com/smazurov/servicedeck/internal/process"
	"github.com/smazurov/servicedeck/internal/services"
	"github.com/spf13/cobra"
)

// runOptions configures a foreground run of one catalog service.
type runOptions struct {
	ServicesFile string
	ServiceID    int64
	Watch        bool
	Debounce     time.Duration
	StopTimeout  time.Duration
}

// CreateRunCmd creates the run command.
func CreateRunCmd() *cobra.Command {
	opts := runOptions{}
	var logJSON bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run [service-id]",
		Short: "Run one service in the foreground",
		Long: `Starts the service with the given id from the services file and streams its output to the terminal. ` +
			`Stops the service on SIGINT/SIGTERM and exits with its exit code. ` +
			`Edits to the service's command in the services file restart it.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				fmt.Fprintf(os.Stderr, "invalid service id %q\n", args[0])
				os.Exit(2)
			}
			opts.ServiceID = id

			loggingConfig := logging.Config{Level: logLevel, Format: "text", Output: os.Stderr}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("run").With("service_id", id)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			exitCode, err := runService(ctx, opts, os.Stdout, os.Stderr, logger)
			if err != nil {
				logger.Error("Run failed", "error", err)
			}
			logger.Info("Run command exiting", "exit_code", exitCode)
			stop()
			os.Exit(exitCode)
		},
	}

	cmd.Flags().StringVar(&opts.ServicesFile, "services", services.DefaultPath, "Path to services file")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Restart the service when its definition changes")
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", time.Second, "Delay before acting on services file changes")
	cmd.Flags().DurationVar(&opts.StopTimeout, "stop-timeout", process.DefaultStopTimeout, "Grace period before the service is killed")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level for servicedeck's own messages")

	return cmd
}

// runService runs one service until it exits, ctx is cancelled or it is
// removed from the services file. It returns the exit code to use.
func runService(ctx context.Context, opts runOptions, stdout, stderr io.Writer, logger *slog.Logger) (int, error) {
	catalog := services.NewTOML(opts.ServicesFile)
	if err := catalog.Load(); err != nil {
		return 1, fmt.Errorf("failed to load services: %w", err)
	}
	svc, ok := catalog.Get(opts.ServiceID)
	if !ok {
		return 1, fmt.Errorf("service %d not found in %s", opts.ServiceID, catalog.Path())
	}

	var outMu sync.Mutex
	store := logstore.New(logstore.Options{
		OnAppend: func(entry logstore.Entry, _ bool) {
			w := stdout
			if entry.Stream == logstore.StreamStderr {
				w = stderr
			}
			outMu.Lock()
			fmt.Fprintln(w, entry.Message)
			outMu.Unlock()
		},
	})

	changes := make(chan process.StateChange, 16)
	quit := make(chan struct{})
	sup := process.NewSupervisor(&process.Options{
		Store:       store,
		StopTimeout: opts.StopTimeout,
		Logger:      logger,
		OnStateChange: func(change process.StateChange) {
			select {
			case changes <- change:
			case <-quit:
			}
		},
	})
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), opts.StopTimeout+process.DefaultKillTimeout)
		defer cancel()
		if err := sup.StopAll(stopCtx); err != nil {
			logger.Warn("Failed to stop cleanly", "error", err)
		}
	}()
	defer close(quit)

	reloads := make(chan services.Catalog, 1)
	if opts.Watch {
		watcher := config.NewConfigWatcher(
			catalog.Path(),
			func(path string) (services.Catalog, error) {
				fresh := services.NewTOML(path)
				return fresh, fresh.Load()
			},
			logger,
			config.WithDebounce[services.Catalog](opts.Debounce),
		)
		watcher.OnReload(func(fresh services.Catalog) {
			// Keep only the newest catalog if the loop is busy
			select {
			case <-reloads:
			default:
			}
			reloads <- fresh
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("Failed to start services watcher, hot-reload disabled", "error", err)
		} else {
			defer func() { _ = watcher.Stop() }()
		}
	}

	if _, err := sup.Start(svc.ID, svc.Spec()); err != nil {
		return 1, err
	}

	var current string
	stopping := false
	done := ctx.Done()
	for {
		select {
		case change := <-changes:
			switch change.Info.State {
			case process.StateRunning:
				current = change.Info.RunID
			case process.StateExited, process.StateError, process.StateIdle:
				// Ignore the tail end of a run replaced by a restart
				if change.Info.RunID != current {
					continue
				}
				return exitCode(change.ExitCode), nil
			}

		case <-done:
			done = nil
			if stopping {
				continue
			}
			stopping = true
			logger.Info("Signal received, stopping service")
			if err := sup.Stop(svc.ID); err != nil && !errors.Is(err, process.ErrNotFound) {
				return 1, err
			}

		case fresh := <-reloads:
			if stopping {
				continue
			}
			next, ok := fresh.Get(svc.ID)
			if !ok {
				logger.Warn("Service removed from services file, stopping")
				stopping = true
				if err := sup.Stop(svc.ID); err != nil && !errors.Is(err, process.ErrNotFound) {
					return 1, err
				}
				continue
			}
			if next.Command == svc.Command && next.WorkingDir == svc.WorkingDir {
				logger.Debug("Services file reloaded, command unchanged")
				continue
			}
			logger.Info("Command changed, restarting", "command", next.Command)
			svc = next
			// The old run may report its exit before the new one reports running
			current = ""
			if _, err := sup.Restart(svc.ID, svc.Spec()); err != nil {
				return 1, err
			}
		}
	}
}

// exitCode maps a child exit code to ours. Signal deaths report -1.
func exitCode(code int) int {
	if code < 0 {
		return 1
	}
	return code
}
