package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func newBufferLogger(level string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLoggerWithWriter(LoggingConfig{Level: level, Format: "json"}, &buf), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLoggerRespectsLevel(t *testing.T) {
	logger, buf := newBufferLogger("warn")

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("shown")

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["level"] != "warn" || lines[1]["level"] != "error" {
		t.Errorf("unexpected levels: %v, %v", lines[0]["level"], lines[1]["level"])
	}
}

func TestLoggerSetLevelAffectsChildren(t *testing.T) {
	logger, buf := newBufferLogger("info")
	child := logger.NewComponentLogger("consumer")

	child.Debug("before")
	logger.SetLevel("debug")
	child.Debug("after")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["message"] != "after" {
		t.Errorf("message = %v", lines[0]["message"])
	}
	if lines[0]["component"] != "consumer" {
		t.Errorf("component = %v", lines[0]["component"])
	}
	if !logger.Enabled(zerolog.DebugLevel) {
		t.Error("expected debug to be enabled after SetLevel")
	}
}

func TestLoggerFields(t *testing.T) {
	logger, buf := newBufferLogger("debug")

	logger.WithCorrelationID("abc123def456").
		WithCommand("ping").
		WithFields(map[string]interface{}{"status": "success"}).
		WithError(errors.New("boom")).
		Info("done")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	for key, want := range map[string]string{
		"correlation_id": "abc123def456",
		"command_name":   "ping",
		"status":         "success",
		"error":          "boom",
	} {
		if line[key] != want {
			t.Errorf("%s = %v, want %q", key, line[key], want)
		}
	}
}

func TestNopLoggerWritesNothing(t *testing.T) {
	logger := NewNopLogger()
	logger.Error("nothing")
	if logger.Enabled(zerolog.ErrorLevel) {
		t.Error("nop logger should not enable any level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"fatal":   zerolog.FatalLevel,
		"unknown": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnabledRespectsGlobalLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	logger, buf := newBufferLogger("debug")
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if logger.Enabled(zerolog.DebugLevel) {
		t.Error("debug should be disabled by the global level")
	}
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %s", buf.String())
	}
}

func TestConfigureGlobalLoggerKeepsLoggerLevels(t *testing.T) {
	prevLevel, prevLogger := zerolog.GlobalLevel(), log.Logger
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prevLevel)
		log.Logger = prevLogger
	})

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	var global bytes.Buffer
	ConfigureGlobalLogger(&global, "warn")

	if zerolog.GlobalLevel() != zerolog.TraceLevel {
		t.Errorf("global level = %v, want trace", zerolog.GlobalLevel())
	}

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")
	if out := global.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("global logger output = %q", out)
	}

	logger, buf := newBufferLogger("debug")
	if !logger.Enabled(zerolog.DebugLevel) {
		t.Error("debug logger should stay enabled")
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug line, got %q", buf.String())
	}
}
