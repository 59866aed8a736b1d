package utils

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"tracksync/internal/store"
)

// captureStdout runs fn with stdout redirected and returns what it wrote
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	outChan := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		outChan <- buf.String()
	}()

	fnErr := fn()
	w.Close()
	os.Stdout = oldStdout
	return <-outChan, fnErr
}

func TestOutputJSONSyncRun(t *testing.T) {
	completed := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	run := store.SyncRun{
		ID:           "run-1",
		UserID:       "u-1",
		FlowType:     store.FlowProjectTasks,
		TargetID:     "10001",
		TargetName:   "CORE",
		Status:       store.RunCompleted,
		CreatedCount: 3,
		TotalCount:   3,
		StartedAt:    completed.Add(-2 * time.Second),
		CompletedAt:  &completed,
	}

	output, err := captureStdout(t, func() error { return OutputJSON(run) })
	if err != nil {
		t.Fatalf("OutputJSON failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["flow_type"] != store.FlowProjectTasks {
		t.Errorf("flow_type = %v, want %q", decoded["flow_type"], store.FlowProjectTasks)
	}
	if decoded["target_name"] != "CORE" {
		t.Errorf("target_name = %v, want CORE", decoded["target_name"])
	}
	if decoded["created_count"] != float64(3) {
		t.Errorf("created_count = %v, want 3", decoded["created_count"])
	}
	// A completed run has no error message to report
	if _, ok := decoded["error_message"]; ok {
		t.Error("empty error_message should be omitted from the output")
	}
	if !strings.Contains(output, "\n  ") {
		t.Error("output should be indented")
	}
}

func TestOutputJSONRunList(t *testing.T) {
	runs := []store.SyncRun{
		{ID: "run-1", FlowType: store.FlowAllProjects, Status: store.RunCompleted, StartedAt: time.Now()},
		{ID: "run-2", FlowType: store.FlowUserImport, Status: store.RunFailed, ErrorMessage: "boom", StartedAt: time.Now()},
	}

	output, err := captureStdout(t, func() error { return OutputJSON(runs) })
	if err != nil {
		t.Fatalf("OutputJSON failed: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal([]byte(output), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d runs, want 2", len(decoded))
	}
	if decoded[1]["error_message"] != "boom" {
		t.Errorf("error_message = %v, want boom", decoded[1]["error_message"])
	}
}

func TestOutputJSONUnencodableValue(t *testing.T) {
	output, err := captureStdout(t, func() error {
		return OutputJSON(struct{ Fn func() }{Fn: func() {}})
	})
	if err == nil {
		t.Error("expected an error for a value JSON cannot encode")
	}
	if output != "" {
		t.Errorf("nothing should be printed on a marshal failure, got %q", output)
	}
	if !strings.Contains(err.Error(), "failed to marshal JSON") {
		t.Errorf("err = %v, want a marshal JSON error", err)
	}
}

func TestOutputYAMLSettings(t *testing.T) {
	// The shape 'config show' prints: nested sections, secret redacted
	settings := struct {
		Provider struct {
			Name         string `yaml:"name"`
			ClientSecret string `yaml:"client_secret"`
		} `yaml:"provider"`
		Database struct {
			Path string `yaml:"path"`
		} `yaml:"database"`
	}{}
	settings.Provider.Name = "jira"
	settings.Provider.ClientSecret = "********"
	settings.Database.Path = "~/.local/share/tracksync/tracksync.db"

	output, err := captureStdout(t, func() error { return OutputYAML(settings) })
	if err != nil {
		t.Fatalf("OutputYAML failed: %v", err)
	}

	if !strings.Contains(output, "provider:") || !strings.Contains(output, "database:") {
		t.Errorf("output missing section keys:\n%s", output)
	}
	if !strings.Contains(output, "********") {
		t.Errorf("output missing redacted secret:\n%s", output)
	}
	if !strings.Contains(output, "name: jira") {
		t.Errorf("output missing provider name:\n%s", output)
	}
}
