package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// TestConfig represents a test configuration structure.
type TestConfig struct {
	Config string `help:"Config file path"`

	StringField   string        `toml:"test.string_field" env:"STRING_FIELD"`
	BoolField     bool          `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField      int           `toml:"test.int_field" env:"INT_FIELD"`
	SliceField    []string      `toml:"test.slice_field" env:"SLICE_FIELD"`
	DurationField time.Duration `toml:"test.duration_field" env:"DURATION_FIELD"`

	NestedString string `toml:"nested.value" env:"NESTED_VALUE"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
[test]
string_field = "hello world"
bool_field = true
int_field = 42
slice_field = ["item1", "item2", "item3"]
duration_field = "750ms"

[nested]
value = "nested value"
`)

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "hello world" {
		t.Errorf("Expected StringField to be 'hello world', got '%s'", config.StringField)
	}
	if !config.BoolField {
		t.Errorf("Expected BoolField to be true, got %v", config.BoolField)
	}
	if config.IntField != 42 {
		t.Errorf("Expected IntField to be 42, got %d", config.IntField)
	}
	if want := []string{"item1", "item2", "item3"}; !reflect.DeepEqual(config.SliceField, want) {
		t.Errorf("Expected SliceField to be %v, got %v", want, config.SliceField)
	}
	if config.DurationField != 750*time.Millisecond {
		t.Errorf("Expected DurationField to be 750ms, got %v", config.DurationField)
	}
	if config.NestedString != "nested value" {
		t.Errorf("Expected NestedString to be 'nested value', got '%s'", config.NestedString)
	}
}

func TestLoadConfigDurationSeconds(t *testing.T) {
	path := writeConfig(t, "[test]\nduration_field = 3\n")

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.DurationField != 3*time.Second {
		t.Errorf("Expected 3s, got %v", config.DurationField)
	}
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	path := writeConfig(t, "[test]\nduration_field = \"soon\"\n")

	if err := LoadConfig(&TestConfig{Config: path}, nil); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("SERVICEDECK_STRING_FIELD", "env string")
	t.Setenv("SERVICEDECK_BOOL_FIELD", "false")
	t.Setenv("SERVICEDECK_INT_FIELD", "123")
	t.Setenv("SERVICEDECK_SLICE_FIELD", "a,b,c")
	t.Setenv("SERVICEDECK_DURATION_FIELD", "2s")
	t.Setenv("SERVICEDECK_NESTED_VALUE", "env nested")

	config := &TestConfig{BoolField: true}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "env string" {
		t.Errorf("Expected StringField to be 'env string', got '%s'", config.StringField)
	}
	if config.BoolField {
		t.Errorf("Expected BoolField to be false, got %v", config.BoolField)
	}
	if config.IntField != 123 {
		t.Errorf("Expected IntField to be 123, got %d", config.IntField)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(config.SliceField, want) {
		t.Errorf("Expected SliceField to be %v, got %v", want, config.SliceField)
	}
	if config.DurationField != 2*time.Second {
		t.Errorf("Expected DurationField to be 2s, got %v", config.DurationField)
	}
	if config.NestedString != "env nested" {
		t.Errorf("Expected NestedString to be 'env nested', got '%s'", config.NestedString)
	}
}

func TestLoadConfigInvalidEnvValue(t *testing.T) {
	t.Setenv("SERVICEDECK_INT_FIELD", "many")

	if err := LoadConfig(&TestConfig{}, nil); err == nil {
		t.Fatal("expected error for non-numeric int env var")
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeConfig(t, `
[test]
string_field = "toml value"
bool_field = true
int_field = 100
slice_field = ["toml1", "toml2"]
`)

	t.Setenv("SERVICEDECK_STRING_FIELD", "env override")
	t.Setenv("SERVICEDECK_BOOL_FIELD", "false")

	config := &TestConfig{Config: path}
	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "env override" {
		t.Errorf("Expected StringField to be 'env override', got '%s'", config.StringField)
	}
	if config.BoolField {
		t.Errorf("Expected BoolField to be false (env override), got %v", config.BoolField)
	}
	if config.IntField != 100 {
		t.Errorf("Expected IntField to be 100 (from TOML), got %d", config.IntField)
	}
	if want := []string{"toml1", "toml2"}; !reflect.DeepEqual(config.SliceField, want) {
		t.Errorf("Expected SliceField to be %v (from TOML), got %v", want, config.SliceField)
	}
}

func TestLoadConfigCLIOverridesAll(t *testing.T) {
	path := writeConfig(t, "[test]\nstring_field = \"toml value\"\nint_field = 100\n")
	t.Setenv("SERVICEDECK_STRING_FIELD", "env value")
	t.Setenv("SERVICEDECK_INT_FIELD", "200")

	config := &TestConfig{Config: path}

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&config.StringField, "string-field", "", "")
	cmd.Flags().IntVar(&config.IntField, "int-field", 0, "")
	if err := cmd.Flags().Parse([]string{"--string-field=cli value"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	if err := LoadConfig(config, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.StringField != "cli value" {
		t.Errorf("Expected CLI value to win, got %q", config.StringField)
	}
	if config.IntField != 200 {
		t.Errorf("Expected env value for unchanged flag, got %d", config.IntField)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":              "port",
		"StopTimeout":       "stop-timeout",
		"ServicesFile":      "services-file",
		"FeaturesAutostart": "features-autostart",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{
				"value": "nested_value",
			},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"nonexistent", nil},
		{"level1.nonexistent", nil},
		{"root.deeper", nil},
	}

	for _, test := range tests {
		result := getNestedValue(data, test.path)
		if result != test.expected {
			t.Errorf("getNestedValue(%q) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestSetFieldValue(t *testing.T) {
	type TestStruct struct {
		StringField   string
		BoolField     bool
		IntField      int
		Int64Field    int64
		SliceField    []string
		DurationField time.Duration
	}

	s := &TestStruct{}
	v := reflect.ValueOf(s).Elem()

	mustSet := func(name string, value any) {
		t.Helper()
		if err := setFieldValue(v.FieldByName(name), value); err != nil {
			t.Fatalf("setFieldValue(%s) failed: %v", name, err)
		}
	}

	mustSet("StringField", "test string")
	mustSet("BoolField", true)
	mustSet("IntField", int64(42))
	mustSet("Int64Field", int64(1000))
	mustSet("SliceField", []any{"a", "b", "c"})
	mustSet("DurationField", "1m30s")

	if s.StringField != "test string" {
		t.Errorf("Expected StringField to be 'test string', got '%s'", s.StringField)
	}
	if !s.BoolField {
		t.Errorf("Expected BoolField to be true, got %v", s.BoolField)
	}
	if s.IntField != 42 {
		t.Errorf("Expected IntField to be 42, got %d", s.IntField)
	}
	if s.Int64Field != 1000 {
		t.Errorf("Expected Int64Field to be 1000, got %d", s.Int64Field)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(s.SliceField, want) {
		t.Errorf("Expected SliceField to be %v, got %v", want, s.SliceField)
	}
	if s.DurationField != 90*time.Second {
		t.Errorf("Expected DurationField to be 1m30s, got %v", s.DurationField)
	}

	if err := setFieldValue(v.FieldByName("DurationField"), true); err == nil {
		t.Error("expected error for bool duration")
	}
}

func TestSetFieldValueFromString(t *testing.T) {
	type TestStruct struct {
		StringField string
		BoolField   bool
		IntField    int
		SliceField  []string
	}

	s := &TestStruct{}
	v := reflect.ValueOf(s).Elem()

	if err := setFieldValueFromString(v.FieldByName("StringField"), "test string"); err != nil || s.StringField != "test string" {
		t.Errorf("StringField = %q, err = %v", s.StringField, err)
	}
	if err := setFieldValueFromString(v.FieldByName("BoolField"), "true"); err != nil || !s.BoolField {
		t.Errorf("BoolField = %v, err = %v", s.BoolField, err)
	}
	if err := setFieldValueFromString(v.FieldByName("IntField"), "123"); err != nil || s.IntField != 123 {
		t.Errorf("IntField = %d, err = %v", s.IntField, err)
	}
	if err := setFieldValueFromString(v.FieldByName("BoolField"), "maybe"); err == nil {
		t.Error("expected error for invalid bool")
	}

	_ = setFieldValueFromString(v.FieldByName("SliceField"), " a , b , c ")
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(s.SliceField, want) {
		t.Errorf("Expected SliceField to be %v, got %v", want, s.SliceField)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := &TestConfig{
		Config:      filepath.Join(t.TempDir(), "nonexistent_file.toml"),
		StringField: "default",
	}

	if err := LoadConfig(config, nil); err != nil {
		t.Fatalf("LoadConfig should not fail for missing file: %v", err)
	}
	if config.StringField != "default" {
		t.Errorf("defaults must survive a missing file, got %q", config.StringField)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	path := writeConfig(t, "\n[test\ninvalid toml syntax\n")

	if err := LoadConfig(&TestConfig{Config: path}, nil); err == nil {
		t.Fatalf("LoadConfig should fail for invalid TOML")
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		level   string
		format  string
		modules map[string]string
	}{
		{
			name:    "flat module keys",
			content: "[logging]\nlevel = \"warn\"\nformat = \"json\"\nprocess = \"debug\"\n",
			level:   "warn",
			format:  "json",
			modules: map[string]string{"process": "debug"},
		},
		{
			name:    "modules table",
			content: "[logging]\nlevel = \"info\"\n[logging.modules]\napi = \"error\"\ncatalog = \"debug\"\n",
			level:   "info",
			format:  "text",
			modules: map[string]string{"api": "error", "catalog": "debug"},
		},
		{
			name:    "no logging section",
			content: "port = \":9000\"\n",
			level:   "info",
			format:  "text",
			modules: map[string]string{},
		},
		{
			name:    "invalid file falls back to defaults",
			content: "[logging\n",
			level:   "info",
			format:  "text",
			modules: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadLoggingConfig(writeConfig(t, tt.content))
			if cfg.Level != tt.level {
				t.Errorf("Level = %q, want %q", cfg.Level, tt.level)
			}
			if cfg.Format != tt.format {
				t.Errorf("Format = %q, want %q", cfg.Format, tt.format)
			}
			if !reflect.DeepEqual(cfg.Modules, tt.modules) {
				t.Errorf("Modules = %v, want %v", cfg.Modules, tt.modules)
			}
		})
	}

	if cfg := LoadLoggingConfig(""); cfg.Level != "info" {
		t.Errorf("expected defaults for empty path, got %+v", cfg)
	}
}
