package logging

import (
	"bytes"
	"strings"
	"testing"

	"eepromkv/pkg/primitives"
)

func resetLogger(t *testing.T) {
	t.Helper()
	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestInit_WritesToConfiguredWriter(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelDebug, Writer: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	WithPage(primitives.Page1).Debug("page erased")
	WithVariable(0x12121212).Info("record appended")

	out := buf.String()
	for _, want := range []string{"page=page1", "variable=0x12121212", "page erased"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in log output %q", want, out)
		}
	}
}

func TestInit_Twice(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	if err := Init(Config{Writer: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := Init(Config{Writer: &buf}); err == nil {
		t.Fatal("expected second Init to fail")
	}
}

func TestInit_JSONAndLevelFilter(t *testing.T) {
	resetLogger(t)

	var buf bytes.Buffer
	if err := Init(Config{Level: LevelWarn, Format: "json", Writer: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Info("hidden")
	WithComponent("recovery").Warn("formatting")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message should be filtered at WARN: %q", out)
	}
	if !strings.Contains(out, `"component":"recovery"`) {
		t.Errorf("expected JSON component field, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":  LevelDebug,
		" WARN ": LevelWarn,
		"error":  LevelError,
		"info":   LevelInfo,
		"bogus":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestGetLogger_LazyDefault(t *testing.T) {
	resetLogger(t)
	if GetLogger() == nil {
		t.Fatal("expected a lazily created logger")
	}
}
