package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// NewHTTPLoggingMiddleware logs completed requests with a level chosen from
// the method and status code.
func NewHTTPLoggingMiddleware(logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		start := time.Now()
		method := ctx.Method()
		path := ctx.URL().Path

		logAttrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.String("remote_addr", ctx.RemoteAddr()),
		}
		if query := ctx.URL().RawQuery; query != "" {
			logAttrs = append(logAttrs, slog.String("query", redactQuery(query)))
		}
		if userAgent := ctx.Header("User-Agent"); userAgent != "" {
			logAttrs = append(logAttrs, slog.String("user_agent", userAgent))
		}

		next(ctx)

		status := ctx.Status()
		logAttrs = append(logAttrs,
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		)

		message := "HTTP request completed"
		level := slog.LevelInfo
		switch {
		case method == http.MethodOptions:
			level = slog.LevelDebug
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case strings.HasSuffix(path, "/stream") || path == "/api/events":
			// Long-lived SSE connections only end on disconnect
			message = "SSE connection closed"
			level = slog.LevelDebug
		}
		logger.LogAttrs(ctx.Context(), level, message, logAttrs...)
	}
}

// redactQuery hides the credentials EventSource clients pass in ?auth=.
func redactQuery(query string) string {
	parts := strings.Split(query, "&")
	for i, part := range parts {
		if strings.HasPrefix(part, "auth=") {
			parts[i] = "auth=REDACTED"
		}
	}
	return strings.Join(parts, "&")
}
