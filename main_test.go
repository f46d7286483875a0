package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sinkscope/sinkscope/pkg/models"
)

const searchDemoGraph = `{
  "schema_version": "1",
  "name": "search-demo",
  "nodes": [
    {"id": "api.search", "kind": "entry_point"},
    {"id": "read_query", "kind": "call", "roles": [{"role": "source"}]},
    {"id": "db.exec", "kind": "sink", "sink": {"kind": "sql"}},
    {"id": "api.render", "kind": "entry_point"},
    {"id": "escape_html", "kind": "call", "roles": [{"role": "sanitizer"}]},
    {"id": "tmpl.write", "kind": "sink", "sink": {"kind": "template"}}
  ],
  "edges": [
    {"from": "api.search", "to": "read_query"},
    {"from": "read_query", "to": "db.exec"},
    {"from": "api.render", "to": "escape_html"},
    {"from": "escape_html", "to": "tmpl.write"}
  ],
  "entry_points": ["api.search", "api.render"]
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestRunWritesJSONReport(t *testing.T) {
	dir := t.TempDir()
	graphFile := writeFixture(t, dir, "graph.json", searchDemoGraph)
	outFile := filepath.Join(dir, "report.json")

	code := run(testLogger(), cliOptions{
		graphFile: graphFile,
		outFile:   outFile,
		format:    "json",
	})
	if code != exitOK {
		t.Fatalf("run exit code = %d, want %d", code, exitOK)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Reading report: %v", err)
	}
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Decoding report: %v", err)
	}

	if report.GraphName != "search-demo" {
		t.Errorf("GraphName = %q, want search-demo", report.GraphName)
	}
	want := models.Summary{
		TotalSinks:     2,
		MustFix:        1,
		FalsePositives: 1,
		TotalPaths:     2,
		LivePaths:      2,
	}
	if report.Summary != want {
		t.Errorf("Summary = %+v, want %+v", report.Summary, want)
	}
}

func TestRunTextReport(t *testing.T) {
	dir := t.TempDir()
	graphFile := writeFixture(t, dir, "graph.json", searchDemoGraph)
	outFile := filepath.Join(dir, "report.txt")

	code := run(testLogger(), cliOptions{
		graphFile: graphFile,
		outFile:   outFile,
		format:    "text",
	})
	if code != exitOK {
		t.Fatalf("run exit code = %d, want %d", code, exitOK)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Reading report: %v", err)
	}
	text := string(data)
	for _, want := range []string{"search-demo", "db.exec [sql]", "MUST_FIX", "FALSE_POSITIVE"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text report missing %q", want)
		}
	}
}

func TestRunSinkFilter(t *testing.T) {
	dir := t.TempDir()
	graphFile := writeFixture(t, dir, "graph.json", searchDemoGraph)
	outFile := filepath.Join(dir, "report.json")

	code := run(testLogger(), cliOptions{
		graphFile: graphFile,
		outFile:   outFile,
		format:    "json",
		sinks:     []string{"db.exec"},
	})
	if code != exitOK {
		t.Fatalf("run exit code = %d, want %d", code, exitOK)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Reading report: %v", err)
	}
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Decoding report: %v", err)
	}
	if len(report.Sinks) != 1 || report.Sinks[0].SinkID != "db.exec" {
		t.Fatalf("Sinks = %+v, want only db.exec", report.Sinks)
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	graphFile := writeFixture(t, dir, "graph.json", searchDemoGraph)

	tests := []struct {
		name string
		opts cliOptions
		want int
	}{
		{
			name: "missing graph file",
			opts: cliOptions{graphFile: filepath.Join(dir, "absent.json"), format: "json"},
			want: exitError,
		},
		{
			name: "malformed graph",
			opts: cliOptions{
				graphFile: writeFixture(t, dir, "bad.json", `{"schema_version": "1", "nodes": []}`),
				format:    "json",
			},
			want: exitBadInput,
		},
		{
			name: "unknown sink in filter",
			opts: cliOptions{
				graphFile: graphFile,
				outFile:   filepath.Join(dir, "unused.json"),
				format:    "json",
				sinks:     []string{"no.such.sink"},
			},
			want: exitBadInput,
		},
		{
			name: "unreadable policy",
			opts: cliOptions{
				graphFile: graphFile,
				format:    "json",
				policy:    filepath.Join(dir, "absent.toml"),
			},
			want: exitBadInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(testLogger(), tt.opts); got != tt.want {
				t.Errorf("run exit code = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRunBankingDemoFixture(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "report.json")

	code := run(testLogger(), cliOptions{
		graphFile: filepath.Join("examples", "banking-demo", "graph.json"),
		outFile:   outFile,
		format:    "json",
	})
	if code != exitOK {
		t.Fatalf("run exit code = %d, want %d", code, exitOK)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("Reading report: %v", err)
	}
	var report models.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("Decoding report: %v", err)
	}

	want := models.Summary{
		TotalSinks:     10,
		MustFix:        1,
		GoodToFix:      1,
		FalsePositives: 6,
		DeadCode:       2,
		TotalPaths:     17,
		LivePaths:      13,
		DeadPaths:      4,
	}
	if report.Summary != want {
		t.Fatalf("Summary = %+v, want %+v", report.Summary, want)
	}

	verdicts := make(map[string]models.SinkVerdict, len(report.Sinks))
	for _, sink := range report.Sinks {
		verdicts[sink.SinkID] = sink.OverallVerdict
	}
	checks := map[string]models.SinkVerdict{
		"db.exec_transfer": models.VerdictMustFix,
		"db.exec_audit":    models.VerdictGoodToFix,
		"db.query_balance": models.VerdictFalsePositive,
		"fs.write_export":  models.VerdictDeadCode,
		"cmd.run_backup":   models.VerdictDeadCode,
	}
	for sinkID, wantVerdict := range checks {
		if got := verdicts[sinkID]; got != wantVerdict {
			t.Errorf("Verdict for %s = %v, want %v", sinkID, got, wantVerdict)
		}
	}

	for _, entry := range report.EntryPoints {
		switch entry.ID {
		case "api.transfer":
			if entry.WorstVerdict != models.VerdictMustFix.String() {
				t.Errorf("api.transfer worst verdict = %q, want MUST_FIX", entry.WorstVerdict)
			}
		case "debug.dump_state":
			if entry.Registered {
				t.Error("debug.dump_state should not be registered")
			}
		}
	}
}

func TestRunPolicyOverride(t *testing.T) {
	dir := t.TempDir()
	graphFile := writeFixture(t, dir, "graph.json", searchDemoGraph)
	policyFile := writeFixture(t, dir, "policy.toml", `
[classification]
weak_validator_neutralizes = false
auth_gate_protects = false

[enumeration]
max_node_revisits = 1
max_paths_per_sink = 100

[graph]
orphaned_sink = "exclude"

[run]
workers = 1
timeout = "30s"
`)
	outFile := filepath.Join(dir, "report.json")

	code := run(testLogger(), cliOptions{
		graphFile: graphFile,
		outFile:   outFile,
		format:    "json",
		policy:    policyFile,
		workers:   2,
	})
	if code != exitOK {
		t.Fatalf("run exit code = %d, want %d", code, exitOK)
	}
	if _, err := os.Stat(outFile); err != nil {
		t.Fatalf("Report file missing: %v", err)
	}
}
