package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	t.Setenv("CAPY_LOGGING_LEVEL", "error")
	t.Setenv("CAPY_PIPELINE_EVENT_LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCommand("test", "none", "today")
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	out, err := execute(t, "stats")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "Bot Statistics") || !strings.Contains(out, "Total Interactions: 11") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestStatsCommandJSON(t *testing.T) {
	out, err := execute(t, "stats", "--json")
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	var summary map[string]interface{}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if summary["total_interactions"] != 11.0 {
		t.Errorf("total_interactions = %v", summary["total_interactions"])
	}
}

func TestConfigValidateCommand(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	if err := os.WriteFile(valid, []byte("pipeline:\n  queue_capacity: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "config", "validate", valid)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("unexpected output: %s", out)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("pipeline:\n  flush_interval: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "config", "validate", invalid); err == nil {
		t.Error("expected validation error")
	}
}

func TestConfigShowCommand(t *testing.T) {
	out, err := execute(t, "config", "show", "--preset", "production")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "exporter: otlp") || !strings.Contains(out, "queue_capacity: 1000") {
		t.Errorf("unexpected output:\n%s", out)
	}

	if _, err := execute(t, "config", "show", "--preset", "staging"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestSimulateCommand(t *testing.T) {
	out, err := execute(t, "simulate",
		"--producers", "2",
		"--interactions", "5",
		"--max-latency", "0",
		"--failure-rate", "0.5",
		"--seed", "7",
		"--json",
	)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	var summary struct {
		TotalInteractions uint64            `json:"total_interactions"`
		CompletionStatus  map[string]uint64 `json:"completion_status"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if summary.TotalInteractions != 10 {
		t.Errorf("total_interactions = %d, want 10", summary.TotalInteractions)
	}
	var completions uint64
	for _, n := range summary.CompletionStatus {
		completions += n
	}
	if completions != 10 {
		t.Errorf("completions = %d, want 10", completions)
	}
}

func TestSimulateRejectsBadFlags(t *testing.T) {
	if _, err := execute(t, "simulate", "--failure-rate", "2"); err == nil {
		t.Error("expected error for failure rate above 1")
	}
	if _, err := execute(t, "simulate", "--producers", "0"); err == nil {
		t.Error("expected error for zero producers")
	}
}
