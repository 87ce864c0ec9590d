package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

func resetState() {
	mutex.Lock()
	defer mutex.Unlock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	var buf bytes.Buffer
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"process": "debug",
			"api":     "warn",
		},
		Output: &buf,
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"process", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestLoggerWritesModuleAttribute(t *testing.T) {
	resetState()

	var buf bytes.Buffer
	Initialize(Config{Level: "debug", Format: "text", Output: &buf})

	GetLogger("process").Debug("Process started", "service_id", 3, "pid", 4242)

	output := buf.String()
	for _, want := range []string{"level=DEBUG", "module=process", "service_id=3", "pid=4242", `msg="Process started"`} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output: %s", want, output)
		}
	}
}

func TestLoggerJSONFormat(t *testing.T) {
	resetState()

	var buf bytes.Buffer
	Initialize(Config{Level: "info", Format: "json", Output: &buf})

	GetLogger("api").Info("Server listening", "port", ":8095")

	output := buf.String()
	if !strings.Contains(output, `"module":"api"`) {
		t.Errorf("expected JSON module field, got %s", output)
	}
	if !strings.Contains(output, `"msg":"Server listening"`) {
		t.Errorf("expected JSON msg field, got %s", output)
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	loggerBefore := GetLogger("process")
	handlerBefore := loggerBefore.Handler()

	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	var buf bytes.Buffer
	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"process": "debug"},
		Output:  &buf,
	})

	// The level var is shared, so handlers held from before see the change
	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger obtained before Initialize should have debug enabled afterwards")
	}

	GetLogger("process").Debug("after initialize")
	if !strings.Contains(buf.String(), "after initialize") {
		t.Errorf("expected output to reach configured writer, got %q", buf.String())
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()

	var buf bytes.Buffer
	Initialize(Config{Level: "info", Format: "text", Output: &buf})

	logger := GetLogger("catalog")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("expected debug disabled at info level")
	}

	if !SetModuleLevel("catalog", "debug") {
		t.Fatal("SetModuleLevel rejected a valid level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug enabled after SetModuleLevel")
	}

	if SetModuleLevel("catalog", "verbose") {
		t.Error("expected SetModuleLevel to reject an unknown level")
	}
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("rejected level must not change the current level")
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")
	logger.Info("info message")

	output := buf.String()
	if count := strings.Count(output, "debug only message"); count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
	if count := strings.Count(output, "info message"); count != 2 {
		t.Errorf("Expected 2 info messages, got %d. Output: %s", count, output)
	}
	if count := strings.Count(output, "module=test"); count != 3 {
		t.Errorf("Expected module attribute on every line, got %d. Output: %s", count, output)
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink unavailable")
}

func TestMultiHandlerContinuesAfterError(t *testing.T) {
	var buf bytes.Buffer
	ok := slog.NewTextHandler(&buf, nil)

	multi := NewMultiHandler(failingHandler{}, ok)
	record := slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)

	err := multi.Handle(context.Background(), record)
	if err == nil {
		t.Error("expected the failing handler's error to be returned")
	}
	if !strings.Contains(buf.String(), "still delivered") {
		t.Error("expected the second handler to receive the record")
	}
}

func TestJournalHandlerFields(t *testing.T) {
	h := NewJournalHandler(slog.LevelInfo).
		WithAttrs([]slog.Attr{slog.String("module", "process")}).(*JournalHandler)

	record := slog.NewRecord(time.Now(), slog.LevelWarn, "Process exited", 0)
	record.AddAttrs(
		slog.Int64("service_id", 7),
		slog.Bool("stopping", false),
		slog.Duration("uptime", 1500*time.Millisecond),
		slog.Group("exit", slog.Int("code", 3)),
	)

	fields := h.fields(record)

	want := map[string]string{
		"SYSLOG_IDENTIFIER": Identifier,
		"MODULE":            "process",
		"SERVICE_ID":        "7",
		"STOPPING":          "false",
		"UPTIME":            "1.5s",
		"EXIT_CODE":         "3",
	}
	for key, value := range want {
		if fields[key] != value {
			t.Errorf("field %s = %q, want %q", key, fields[key], value)
		}
	}
}

func TestJournalHandlerLevel(t *testing.T) {
	levelVar := &slog.LevelVar{}
	levelVar.Set(slog.LevelWarn)
	h := NewJournalHandler(levelVar)

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info disabled at warn level")
	}
	levelVar.Set(slog.LevelDebug)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected handler to follow level var changes")
	}
}

func TestMapLevelToPriority(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  journal.Priority
	}{
		{slog.LevelDebug, journal.PriDebug},
		{slog.LevelInfo, journal.PriInfo},
		{slog.LevelWarn, journal.PriWarning},
		{slog.LevelError, journal.PriErr},
		{slog.LevelError + 4, journal.PriErr},
	}
	for _, tt := range tests {
		if got := mapLevelToPriority(tt.level); got != tt.want {
			t.Errorf("mapLevelToPriority(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{" info ", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
				return
			}
			if got == nil {
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			} else if *got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}
