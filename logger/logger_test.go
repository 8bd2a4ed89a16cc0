package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, "test", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("expected a JSON log line, got %q: %v", line, err)
	}
	return m
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "invalid-level")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info, got %q", buf.String())
	}
	l.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected info line, got %q", buf.String())
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	if NewFromEnv("env-svc") == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestWithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "debug").WithComponent("dag").WithFields(Fields(FieldStartable, "build"))
	l.Info("started", map[string]interface{}{"attempt": 1})

	m := decodeLine(t, &buf)
	if m[FieldComponent] != "dag" {
		t.Errorf("expected component dag, got %v", m[FieldComponent])
	}
	if m[FieldStartable] != "build" {
		t.Errorf("expected startable build, got %v", m[FieldStartable])
	}
	if m["attempt"] != float64(1) {
		t.Errorf("expected attempt 1, got %v", m["attempt"])
	}
	if m["message"] != "started" {
		t.Errorf("expected message started, got %v", m["message"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithError(errors.New("boom")).Error("failed")
	m := decodeLine(t, &buf)
	if m["error"] != "boom" {
		t.Errorf("expected error boom, got %v", m["error"])
	}
	if m["level"] != "error" {
		t.Errorf("expected level error, got %v", m["level"])
	}
}

func TestWithContextRunID(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithDag(ContextWithRunID(context.Background(), "run-1"), "release")
	jsonLogger(&buf, "info").WithContext(ctx).Info("x")
	m := decodeLine(t, &buf)
	if m[FieldRunID] != "run-1" || m[FieldDag] != "release" {
		t.Errorf("expected run id and dag fields, got %v", m)
	}
	if RunIDFromContext(ctx) != "run-1" {
		t.Errorf("expected run-1 from context")
	}
	if RunIDFromContext(context.Background()) != "" {
		t.Errorf("expected empty run id without value")
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "test", &buf)
	l.Warn("careful", Fields("unit", "git"))
	out := buf.String()
	if !strings.Contains(out, "[WRN]") || !strings.Contains(out, "careful") || !strings.Contains(out, "unit:") {
		t.Errorf("unexpected console output %q", out)
	}
}

func TestNop(t *testing.T) {
	Nop().Error("nothing happens")
}

func TestSetGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	var buf bytes.Buffer
	SetGlobalLogger(jsonLogger(&buf, "info"))
	Info("via package")
	if !strings.Contains(buf.String(), "via package") {
		t.Errorf("expected package-level Info to use global logger, got %q", buf.String())
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if !cfg.Timestamp {
		t.Error("expected timestamp enabled")
	}
}

func TestConfigValidate(t *testing.T) {
	good := Config{Level: "debug", Format: "json", Output: "stdout"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	bad := []Config{
		{Level: "loud", Format: "json", Output: "stdout"},
		{Level: "info", Format: "xml", Output: "stdout"},
		{Level: "info", Format: "json", Output: "/tmp/x"},
	}
	for _, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("expected validation error for %+v", c)
		}
	}
}

func TestRegisterAndGet(t *testing.T) {
	defer Forget()
	l := Nop()
	Register("pinned", l)
	if Get("pinned") != l {
		t.Error("expected registered logger")
	}
	a, b := Get("derived"), Get("derived")
	if a != b {
		t.Error("expected derived logger to be cached")
	}
	Forget()
	if Get("pinned") == l {
		t.Error("expected Forget to drop pinned logger")
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "ignored", "dangling")
	if len(m) != 2 || m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
}

func TestErrorAndDurationFields(t *testing.T) {
	ef := ErrorFields("build", errors.New("x"))
	if ef[FieldStartable] != "build" || ef[FieldError] != "x" {
		t.Errorf("unexpected error fields %v", ef)
	}
	df := DurationFields("build", 1500*time.Millisecond)
	if df[FieldDuration] != int64(1500) {
		t.Errorf("unexpected duration fields %v", df)
	}
	merged := MergeWithDuration(MergeWithError(nil, errors.New("y")), time.Second)
	if merged[FieldError] != "y" || merged[FieldDuration] != int64(1000) {
		t.Errorf("unexpected merged fields %v", merged)
	}
}
