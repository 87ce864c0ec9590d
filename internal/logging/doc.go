// Package logging provides structured logging with per-module log levels.
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Output goes to stdout when it is connected to a terminal, pipe or file,
// and to the systemd journal when journald is reachable. Both are used when
// both are available.
//
// This package logs servicedeck itself. Output captured from supervised
// services is kept separately, in the logstore package.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"process": "debug",
//			"api":     "warn",
//		},
//	})
//
// Then get a logger per module:
//
//	logger := logging.GetLogger("process")
//	logger.Info("Process started", "service_id", id, "pid", pid)
//
// Levels can be changed while running:
//
//	logging.SetModuleLevel("process", "debug")
//
// Under systemd, entries carry SYSLOG_IDENTIFIER=servicedeck and every
// attribute as an upper-cased field:
//
//	journalctl -t servicedeck -f
//	journalctl -t servicedeck MODULE=process SERVICE_ID=3
//
// TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//
//	[logging.modules]
//	process = "debug"
package logging
