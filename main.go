package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/servicedeck/cmd"
	"github.com/smazurov/servicedeck/internal/api"
	"github.com/smazurov/servicedeck/internal/config"
	"github.com/smazurov/servicedeck/internal/events"
	"github.com/smazurov/servicedeck/internal/logging"
	"github.com/smazurov/servicedeck/internal/logstore"
	"github.com/smazurov/servicedeck/internal/metrics"
	"github.com/smazurov/servicedeck/internal/metrics/collectors"
	"github.com/smazurov/servicedeck/internal/metrics/exporters"
	"github.com/smazurov/servicedeck/internal/process"
	"github.com/smazurov/servicedeck/internal/services"
	"github.com/smazurov/servicedeck/internal/systemd"
	"github.com/smazurov/servicedeck/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8095" toml:"server.port" env:"SERVER_PORT"`

	// Catalog settings
	ServicesFile string `help:"Service definitions file" default:"services.toml" toml:"services.file" env:"SERVICES_FILE"`

	// Supervisor settings
	SupervisorStopTimeout string `help:"Grace period before a stopping service is killed" default:"5s" toml:"supervisor.stop_timeout" env:"SUPERVISOR_STOP_TIMEOUT"`
	SupervisorKillTimeout string `help:"Wait after a kill before giving up on a process" default:"5s" toml:"supervisor.kill_timeout" env:"SUPERVISOR_KILL_TIMEOUT"`
	SupervisorLogCapacity int    `help:"Log lines kept per service" default:"1000" toml:"supervisor.log_capacity" env:"SUPERVISOR_LOG_CAPACITY"`

	// Metrics settings
	MetricsPrometheusEnabled bool   `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_PROMETHEUS_ENABLED"`
	MetricsSSEEnabled        bool   `help:"Publish resource metrics over SSE" default:"true" toml:"metrics.sse_enabled" env:"METRICS_SSE_ENABLED"`
	MetricsInterval          string `help:"Process sampling interval" default:"5s" toml:"metrics.interval" env:"METRICS_INTERVAL"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesAutostart     bool `help:"Start services marked auto_start" default:"true" toml:"features.autostart" env:"FEATURES_AUTOSTART"`
	FeaturesWatchServices bool `help:"Reload the services file on change" default:"true" toml:"features.watch_services" env:"FEATURES_WATCH_SERVICES"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingProcess string `help:"Supervisor logging level" default:"info" toml:"logging.process" env:"LOGGING_PROCESS"`
	LoggingCatalog string `help:"Services file logging level" default:"info" toml:"logging.catalog" env:"LOGGING_CATALOG"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingMetrics string `help:"Metrics logging level" default:"info" toml:"logging.metrics" env:"LOGGING_METRICS"`
}

func parseDuration(name, value string, fallback time.Duration, logger *slog.Logger) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger.Warn("Invalid duration, using default", "option", name, "value", value, "default", fallback)
		return fallback
	}
	return d
}

func main() {
	var cli humacli.CLI

	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"process": opts.LoggingProcess,
				"catalog": opts.LoggingCatalog,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
				"metrics": opts.LoggingMetrics,
			},
		})

		logger := logging.GetLogger("main")
		logger.Info("Starting servicedeck", "version", version.String())

		stopTimeout := parseDuration("supervisor.stop_timeout", opts.SupervisorStopTimeout, process.DefaultStopTimeout, logger)
		killTimeout := parseDuration("supervisor.kill_timeout", opts.SupervisorKillTimeout, process.DefaultKillTimeout, logger)
		metricsInterval := parseDuration("metrics.interval", opts.MetricsInterval, collectors.DefaultInterval, logger)

		// Create event bus for in-process event handling
		eventBus := events.New()

		store := logstore.New(logstore.Options{
			Capacity: opts.SupervisorLogCapacity,
			OnAppend: func(entry logstore.Entry, evicted bool) {
				metrics.RecordLogEntry(entry, evicted)
				eventBus.Publish(events.NewLogEntry(entry, evicted))
			},
		})

		catalogLogger := logging.GetLogger("catalog")
		catalog := services.NewTOML(opts.ServicesFile)
		if loadErr := catalog.Load(); loadErr != nil {
			catalogLogger.Error("Failed to load services", "path", catalog.Path(), "error", loadErr)
		} else {
			catalogLogger.Info("Loaded services", "path", catalog.Path(), "count", len(catalog.All()))
		}
		for _, problem := range services.CheckAll(catalog) {
			catalogLogger.Warn("Service definition problem", "service_id", problem.ServiceID, "problem", problem.Message)
		}

		notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

		var supervisor *process.Supervisor
		supervisor = process.NewSupervisor(&process.Options{
			Store:       store,
			StopTimeout: stopTimeout,
			KillTimeout: killTimeout,
			Logger:      logging.GetLogger("process"),
			OnStateChange: func(change process.StateChange) {
				metrics.RecordStateChange(change)
				eventBus.Publish(events.NewServiceStateChanged(change))
				notifier.ServiceStatus(len(supervisor.List()), len(catalog.All()))
			},
		})

		var catalogWatcher *config.Watcher[services.Catalog]
		if opts.FeaturesWatchServices {
			catalogWatcher = config.NewConfigWatcher(
				catalog.Path(),
				func(_ string) (services.Catalog, error) {
					return catalog, catalog.Load()
				},
				catalogLogger,
				config.WithErrorHandler[services.Catalog](func(err error) {
					eventBus.Publish(events.CatalogReloadedEvent{
						Services:  len(catalog.All()),
						Error:     err.Error(),
						Timestamp: time.Now().Format(time.RFC3339),
					})
				}),
			)
			known := serviceIDs(catalog)
			catalogWatcher.OnReload(func(c services.Catalog) {
				catalogLogger.Info("Services reloaded", "count", len(c.All()))
				current := serviceIDs(c)
				for id := range known {
					if !current[id] && !supervisor.IsRunning(id) {
						metrics.DeleteServiceMetrics(id)
					}
				}
				known = current
				notifier.ServiceStatus(len(supervisor.List()), len(c.All()))
				eventBus.Publish(events.CatalogReloadedEvent{
					Services:  len(c.All()),
					Timestamp: time.Now().Format(time.RFC3339),
				})
			})
		}

		metricsLogger := logging.GetLogger("metrics")
		processCollector := collectors.NewProcessCollector(supervisor, metricsInterval)
		var sseExporter *exporters.SSEExporter
		if opts.MetricsSSEEnabled {
			sseExporter = exporters.NewSSEExporter(eventBus)
		}

		apiOpts := &api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Supervisor:   supervisor,
			Catalog:      catalog,
			EventBus:     eventBus,
		}
		if opts.MetricsPrometheusEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if catalogWatcher != nil {
				if startErr := catalogWatcher.Start(); startErr != nil {
					catalogLogger.Warn("Failed to start services watcher, hot-reload disabled", "error", startErr)
					catalogWatcher = nil
				}
			}

			processCollector.Start(ctx)
			if sseExporter != nil {
				sseExporter.Start(ctx)
			}
			metricsLogger.Debug("Metrics collection started", "interval", metricsInterval)

			if opts.FeaturesAutostart {
				autostart(supervisor, catalog, logger)
			}

			notifier.Ready(ctx)
			notifier.ServiceStatus(len(supervisor.List()), len(catalog.All()))

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			notifier.Stopping()

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), stopTimeout+killTimeout+time.Second)
			defer shutdownCancel()

			if stopErr := server.Stop(shutdownCtx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if catalogWatcher != nil {
				if stopErr := catalogWatcher.Stop(); stopErr != nil {
					catalogLogger.Warn("Error stopping services watcher", "error", stopErr)
				}
			}

			// Stop all services after the HTTP server stops accepting new requests
			if stopErr := supervisor.StopAll(shutdownCtx); stopErr != nil {
				logger.Error("Error stopping services", "error", stopErr)
			}

			cancel()
			processCollector.Stop()
			if sseExporter != nil {
				sseExporter.Stop()
			}
		})
	})

	cli.Root().Use = "servicedeck"
	cli.Root().Version = version.String()
	cli.Root().AddCommand(cmd.CreateRunCmd())
	cli.Root().AddCommand(cmd.CreateValidateCmd())

	cli.Run()
}

// autostart starts every catalog service marked auto_start. Failures are
// logged and do not stop the others.
func autostart(supervisor *process.Supervisor, catalog services.Catalog, logger *slog.Logger) {
	for _, svc := range catalog.All() {
		if !svc.AutoStart {
			continue
		}
		pid, err := supervisor.Start(svc.ID, svc.Spec())
		if err != nil {
			logger.Error("Failed to auto-start service", "service_id", svc.ID, "name", svc.Name, "error", err)
			continue
		}
		logger.Info("Auto-started service", "service_id", svc.ID, "name", svc.Name, "pid", pid)
	}
}

func serviceIDs(catalog services.Catalog) map[int64]bool {
	ids := make(map[int64]bool)
	for _, svc := range catalog.All() {
		ids[svc.ID] = true
	}
	return ids
}
