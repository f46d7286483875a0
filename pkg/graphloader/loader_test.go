package graphloader

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
)

const validJSON = `{
  "schema_version": "1",
  "name": "demo",
  "nodes": [
    {"id": "api.get_user", "kind": "entry_point"},
    {"id": "validate_user_id", "kind": "call",
     "roles": [{"role": "validator", "strength": "strict", "protects": "sql-injection"}]},
    {"id": "db.exec", "kind": "sink", "sink": {"kind": "sql"}}
  ],
  "edges": [
    {"from": "api.get_user", "to": "validate_user_id"},
    {"from": "validate_user_id", "to": "db.exec", "condition": "runtime"}
  ],
  "entry_points": ["api.get_user"]
}`

const validYAML = `schema_version: "1"
name: demo
nodes:
  - id: api.get_user
    kind: entry_point
  - id: validate_user_id
    kind: call
    roles:
      - role: validator
        strength: strict
        protects: sql-injection
  - id: db.exec
    kind: sink
    sink:
      kind: sql
edges:
  - from: api.get_user
    to: validate_user_id
  - from: validate_user_id
    to: db.exec
    condition: runtime
entry_points:
  - api.get_user
`

func testLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	return l
}

func writeGraphFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write graph file: %v", err)
	}
	return path
}

func checkDemoGraph(t *testing.T, result *Result) {
	t.Helper()
	g := result.Graph
	if g.Name() != "demo" {
		t.Errorf("Graph name = %q, want demo", g.Name())
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", result.Warnings)
	}

	validator, ok := g.Node("validate_user_id")
	if !ok {
		t.Fatal("validate_user_id missing from graph")
	}
	if validator.Role != models.RoleValidator || validator.Strength != models.StrengthStrict {
		t.Errorf("Validator classified as %s/%s", validator.Role, validator.Strength)
	}
	if validator.Protects != "sql-injection" {
		t.Errorf("Protects = %q", validator.Protects)
	}

	sink, ok := g.Node("db.exec")
	if !ok {
		t.Fatal("db.exec missing from graph")
	}
	if sink.SinkKind != models.SinkSQL {
		t.Errorf("SinkKind = %q, want sql", sink.SinkKind)
	}

	if !g.IsRegistered("api.get_user") {
		t.Error("api.get_user should be registered")
	}
	edges := g.OutEdges("validate_user_id")
	if len(edges) != 1 || edges[0].Condition != models.ConditionRuntime {
		t.Errorf("Unexpected out-edges %v", edges)
	}
}

func TestLoadFromFileJSON(t *testing.T) {
	path := writeGraphFile(t, "graph.json", validJSON)
	result, err := testLoader(t).LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	checkDemoGraph(t, result)
}

func TestLoadFromFileYAML(t *testing.T) {
	path := writeGraphFile(t, "graph.yaml", validYAML)
	result, err := testLoader(t).LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	checkDemoGraph(t, result)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := testLoader(t).LoadFromFile(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("Expected an error for a missing file")
	}
}

func TestLoadRejectsMalformedDocuments(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
	}{
		{
			name:     "invalid JSON syntax",
			filename: "graph.json",
			content:  `{"nodes": [`,
		},
		{
			name:     "missing required sections",
			filename: "graph.json",
			content:  `{"nodes": []}`,
		},
		{
			name:     "unknown node kind",
			filename: "graph.json",
			content: `{"nodes": [{"id": "x", "kind": "lambda"}],
			           "edges": [], "entry_points": []}`,
		},
		{
			name:     "unknown branch condition",
			filename: "graph.json",
			content: `{"nodes": [{"id": "a", "kind": "call"}, {"id": "b", "kind": "sink"}],
			           "edges": [{"from": "a", "to": "b", "condition": "sometimes"}],
			           "entry_points": []}`,
		},
		{
			name:     "unknown top level field",
			filename: "graph.json",
			content:  `{"nodes": [], "edges": [], "entry_points": [], "extra": true}`,
		},
		{
			name:     "unsupported schema version",
			filename: "graph.json",
			content:  `{"schema_version": "9", "nodes": [], "edges": [], "entry_points": []}`,
		},
		{
			name:     "schema applies to YAML too",
			filename: "graph.yaml",
			content:  "nodes:\n  - id: x\n    kind: lambda\nedges: []\nentry_points: []\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeGraphFile(t, tt.filename, tt.content)
			_, err := testLoader(t).LoadFromFile(path)
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Expected ValidationError, got %T: %v", err, err)
			}
			var serr graph.StructuralError
			if !errors.As(err, &serr) {
				t.Errorf("ValidationError should count as structural, got %v", err)
			}
		})
	}
}

func TestLoadStructuralGraphErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "duplicate node id",
			content: `{"nodes": [{"id": "x", "kind": "call"}, {"id": "x", "kind": "call"}],
			           "edges": [], "entry_points": []}`,
		},
		{
			name: "dangling edge",
			content: `{"nodes": [{"id": "a", "kind": "call"}],
			           "edges": [{"from": "a", "to": "ghost"}], "entry_points": []}`,
		},
		{
			name: "unknown registered entry point",
			content: `{"nodes": [{"id": "a", "kind": "call"}],
			           "edges": [], "entry_points": ["ghost"]}`,
		},
		{
			name: "registered node is not an entry point",
			content: `{"nodes": [{"id": "a", "kind": "call"}],
			           "edges": [], "entry_points": ["a"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeGraphFile(t, "graph.json", tt.content)
			_, err := testLoader(t).LoadFromFile(path)
			if err == nil {
				t.Fatal("Expected a structural error")
			}
			var serr graph.StructuralError
			if !errors.As(err, &serr) {
				t.Errorf("Expected a structural error, got %T: %v", err, err)
			}
		})
	}
}

func TestLoadUnknownRoleWarns(t *testing.T) {
	content := `{"nodes": [
	    {"id": "e", "kind": "entry_point"},
	    {"id": "m", "kind": "call", "roles": [{"role": "mystery"}]},
	    {"id": "s", "kind": "sink"}
	  ],
	  "edges": [{"from": "e", "to": "m"}, {"from": "m", "to": "s"}],
	  "entry_points": ["e"]}`

	path := writeGraphFile(t, "graph.json", content)
	result, err := testLoader(t).LoadFromFile(path)
	if err != nil {
		t.Fatalf("Unknown roles must not fail the load: %v", err)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("Expected a warning for the unknown role")
	}
	if result.Warnings[0].NodeID != "m" {
		t.Errorf("Warning node = %q, want m", result.Warnings[0].NodeID)
	}
	node, _ := result.Graph.Node("m")
	if node.Role != models.RoleNone {
		t.Errorf("Unknown role resolved to %s, want none", node.Role)
	}
}

func TestLoadSinkMetadataOnNonSink(t *testing.T) {
	content := `{"nodes": [{"id": "a", "kind": "call", "sink": {"kind": "sql"}}],
	  "edges": [], "entry_points": []}`

	path := writeGraphFile(t, "graph.json", content)
	result, err := testLoader(t).LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Expected one warning, got %v", result.Warnings)
	}
	node, _ := result.Graph.Node("a")
	if node.SinkKind != "" {
		t.Errorf("Sink metadata should be dropped, got %q", node.SinkKind)
	}
}
