package callgraphbridge

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/sinkscope/sinkscope/pkg/analysis/paths"
	"github.com/sinkscope/sinkscope/pkg/analysis/verdict"
	"github.com/sinkscope/sinkscope/pkg/config"
	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func demoAnnotations() *Annotations {
	ann := NewAnnotations()
	ann.MarkEntryPoint("app.HandleTransfer", true)
	ann.AddRole("app.SanitizeMemo", models.RoleSpec{Role: "sanitizer", Protects: "sql-injection"})
	ann.MarkSink("database/sql.Exec", models.SinkSQL)
	ann.SetEdgeCondition("app.HandleTransfer", "app.LegacyTransfer", models.ConditionNever)
	return ann
}

func demoFunctions() []string {
	return []string{
		"app.HandleTransfer",
		"app.LegacyTransfer",
		"app.SanitizeMemo",
		"database/sql.Exec",
	}
}

func demoCalls() []Call {
	return []Call{
		{Caller: "app.HandleTransfer", Callee: "app.LegacyTransfer", Condition: models.ConditionNever},
		{Caller: "app.HandleTransfer", Callee: "app.SanitizeMemo", Condition: models.ConditionAlways},
		{Caller: "app.LegacyTransfer", Callee: "database/sql.Exec", Condition: models.ConditionAlways},
		{Caller: "app.SanitizeMemo", Callee: "database/sql.Exec", Condition: models.ConditionAlways},
	}
}

func TestBuildFromCalls(t *testing.T) {
	g, warnings, err := BuildFromCalls("demo", demoFunctions(), demoCalls(), demoAnnotations(), testLogger())
	if err != nil {
		t.Fatalf("BuildFromCalls failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("Unexpected warnings: %v", warnings)
	}

	entry, ok := g.Node("app.HandleTransfer")
	if !ok || entry.Kind != models.KindEntryPoint {
		t.Errorf("app.HandleTransfer = %+v, want entry point", entry)
	}
	if !g.IsRegistered("app.HandleTransfer") {
		t.Error("app.HandleTransfer should be registered")
	}

	sanitizer, _ := g.Node("app.SanitizeMemo")
	if sanitizer.Role != models.RoleSanitizer || sanitizer.Protects != "sql-injection" {
		t.Errorf("Sanitizer annotation lost: %+v", sanitizer)
	}

	sink, _ := g.Node("database/sql.Exec")
	if sink.Kind != models.KindSink || sink.SinkKind != models.SinkSQL {
		t.Errorf("Sink annotation lost: %+v", sink)
	}

	var legacyEdge *graph.Edge
	for _, e := range g.OutEdges("app.HandleTransfer") {
		if e.To == "app.LegacyTransfer" {
			edge := e
			legacyEdge = &edge
		}
	}
	if legacyEdge == nil || legacyEdge.Condition != models.ConditionNever {
		t.Errorf("Never condition not applied: %+v", legacyEdge)
	}
}

func TestBuildFromCallsUnknownEntryWarns(t *testing.T) {
	ann := NewAnnotations()
	ann.MarkEntryPoint("app.Removed", true)

	g, warnings, err := BuildFromCalls("demo", []string{"app.Main"}, nil, ann, testLogger())
	if err != nil {
		t.Fatalf("BuildFromCalls failed: %v", err)
	}
	if len(warnings) != 1 || warnings[0].NodeID != "app.Removed" {
		t.Errorf("Expected a stale registration warning, got %v", warnings)
	}
	if len(g.EntryPoints()) != 0 {
		t.Errorf("No entry points expected, got %v", g.EntryPoints())
	}
}

func TestBuildFromCallsEntrySinkConflict(t *testing.T) {
	ann := NewAnnotations()
	ann.MarkEntryPoint("app.Confused", false)
	ann.MarkSink("app.Confused", models.SinkSQL)

	g, warnings, err := BuildFromCalls("demo", []string{"app.Confused"}, nil, ann, testLogger())
	if err != nil {
		t.Fatalf("BuildFromCalls failed: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("Expected a conflict warning, got %v", warnings)
	}
	node, _ := g.Node("app.Confused")
	if node.Kind != models.KindEntryPoint {
		t.Errorf("Conflict should resolve to entry point, got %s", node.Kind)
	}
}

func TestBuildFromCallsDanglingCall(t *testing.T) {
	calls := []Call{{Caller: "app.Main", Callee: "app.Ghost", Condition: models.ConditionAlways}}

	_, _, err := BuildFromCalls("demo", []string{"app.Main"}, calls, nil, testLogger())
	if err == nil {
		t.Fatal("Expected an error for a call to an unlisted function")
	}
	var serr graph.StructuralError
	if !errors.As(err, &serr) {
		t.Errorf("Expected a structural error, got %v", err)
	}
}

func TestBridgedGraphClassifies(t *testing.T) {
	g, _, err := BuildFromCalls("demo", demoFunctions(), demoCalls(), demoAnnotations(), testLogger())
	if err != nil {
		t.Fatalf("BuildFromCalls failed: %v", err)
	}

	cfg := &config.Config{
		Classification: config.ClassificationConfig{AuthGateProtects: true},
		Enumeration:    config.EnumerationConfig{MaxNodeRevisits: 1},
	}
	pathList, _ := paths.NewEnumerator(testLogger(), g, cfg).EnumerateAll("database/sql.Exec")
	if len(pathList) != 2 {
		t.Fatalf("Expected 2 paths through the bridged graph, got %d", len(pathList))
	}

	engine := verdict.NewEngine(testLogger(), g, cfg)
	dead := engine.Classify(pathList[0])
	if dead.Verdict != models.PathDead {
		t.Errorf("Legacy path verdict = %s, want DEAD", dead.Verdict)
	}
	sanitized := engine.Classify(pathList[1])
	if sanitized.Verdict != models.PathSanitized {
		t.Errorf("Sanitized path verdict = %s, want SANITIZED", sanitized.Verdict)
	}
}
