// Package callgraphbridge adapts a call graph built by an external front
// end (golang.org/x/tools go/callgraph over SSA) into a classification
// graph. Roles are never inferred from function names: the front end
// attaches explicit annotations keyed by function id, and only those decide
// kinds, roles, and registration.
package callgraphbridge

import (
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"

	"github.com/sinkscope/sinkscope/pkg/analysis/roles"
	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
)

// EdgeKey identifies one caller-callee pair.
type EdgeKey struct {
	Caller string
	Callee string
}

// Call is one deduplicated caller-callee pair extracted from a call graph.
type Call struct {
	Caller    string
	Callee    string
	Condition models.BranchCondition
}

// Annotations carries the explicit metadata a front end attaches to
// functions. Ids not present in the call graph are ignored, except for
// registered entry points, which produce a warning so a stale registration
// list does not go unnoticed.
type Annotations struct {
	entryPoints map[string]bool
	roleTags    map[string][]models.RoleSpec
	sinks       map[string]models.SinkKind
	conditions  map[EdgeKey]models.BranchCondition
}

// NewAnnotations creates an empty annotation set.
func NewAnnotations() *Annotations {
	return &Annotations{
		entryPoints: make(map[string]bool),
		roleTags:    make(map[string][]models.RoleSpec),
		sinks:       make(map[string]models.SinkKind),
		conditions:  make(map[EdgeKey]models.BranchCondition),
	}
}

// MarkEntryPoint declares a function as an entry point, registered or not.
func (a *Annotations) MarkEntryPoint(id string, registered bool) {
	a.entryPoints[id] = registered
}

// AddRole attaches a declared role tag to a function.
func (a *Annotations) AddRole(id string, tag models.RoleSpec) {
	a.roleTags[id] = append(a.roleTags[id], tag)
}

// MarkSink declares a function as a sink of the given kind.
func (a *Annotations) MarkSink(id string, kind models.SinkKind) {
	a.sinks[id] = kind
}

// SetEdgeCondition overrides the branch condition of one call edge. Edges
// without an override are always-taken.
func (a *Annotations) SetEdgeCondition(caller, callee string, condition models.BranchCondition) {
	a.conditions[EdgeKey{Caller: caller, Callee: callee}] = condition
}

// FunctionID derives the stable node id for an SSA function.
func FunctionID(fn *ssa.Function) string {
	if fn.Pkg != nil && fn.Pkg.Pkg != nil {
		return fmt.Sprintf("%s.%s", fn.Pkg.Pkg.Path(), fn.Name())
	}
	return fn.Name()
}

// Build converts a call graph plus annotations into an analysis graph.
// callgraph.Graph holds its nodes in a map, so functions and calls are
// sorted before assembly; repeated builds over the same graph produce the
// same result. Functions whose ids collide are merged into one node.
func Build(name string, cg *callgraph.Graph, ann *Annotations, logger *slog.Logger) (*graph.Graph, []models.Warning, error) {
	return BuildFromCalls(name, Functions(cg), Calls(cg, ann), ann, logger)
}

// Functions extracts the sorted, deduplicated function ids of a call graph.
func Functions(cg *callgraph.Graph) []string {
	seen := make(map[string]bool, len(cg.Nodes))
	ids := make([]string, 0, len(cg.Nodes))
	for fn := range cg.Nodes {
		if fn == nil {
			continue
		}
		id := FunctionID(fn)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Calls extracts the sorted, deduplicated call edges of a call graph with
// any annotated branch conditions applied.
func Calls(cg *callgraph.Graph, ann *Annotations) []Call {
	if ann == nil {
		ann = NewAnnotations()
	}
	seen := make(map[EdgeKey]bool)
	var calls []Call
	for fn, node := range cg.Nodes {
		if fn == nil || node == nil {
			continue
		}
		caller := FunctionID(fn)
		for _, edge := range node.Out {
			if edge.Callee == nil || edge.Callee.Func == nil {
				continue
			}
			key := EdgeKey{Caller: caller, Callee: FunctionID(edge.Callee.Func)}
			if seen[key] {
				continue
			}
			seen[key] = true
			condition := models.ConditionAlways
			if c, ok := ann.conditions[key]; ok {
				condition = c
			}
			calls = append(calls, Call{Caller: key.Caller, Callee: key.Callee, Condition: condition})
		}
	}
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].Caller != calls[j].Caller {
			return calls[i].Caller < calls[j].Caller
		}
		return calls[i].Callee < calls[j].Callee
	})
	return calls
}

// BuildFromCalls assembles the analysis graph from already-extracted
// functions and calls. Functions must be what the calls reference; both are
// consumed in the given order.
func BuildFromCalls(name string, functions []string, calls []Call, ann *Annotations, logger *slog.Logger) (*graph.Graph, []models.Warning, error) {
	if ann == nil {
		ann = NewAnnotations()
	}
	classifier := roles.NewClassifier(logger)
	builder := graph.NewBuilder(name)

	present := make(map[string]bool, len(functions))
	var warnings []models.Warning
	for _, id := range functions {
		present[id] = true

		classification, roleWarnings := classifier.Classify(models.NodeSpec{ID: id, Roles: ann.roleTags[id]})
		warnings = append(warnings, roleWarnings...)

		node := graph.Node{
			ID:       id,
			Kind:     models.KindCall,
			Role:     classification.Role,
			Strength: classification.Strength,
			Protects: classification.Protects,
		}
		sinkKind, isSink := ann.sinks[id]
		_, isEntry := ann.entryPoints[id]
		switch {
		case isEntry && isSink:
			warnings = append(warnings, models.Warning{
				NodeID:  id,
				Message: "annotated as both entry point and sink, treating as entry point",
			})
			node.Kind = models.KindEntryPoint
		case isEntry:
			node.Kind = models.KindEntryPoint
		case isSink:
			node.Kind = models.KindSink
			node.SinkKind = sinkKind
		}

		if err := builder.AddNode(node); err != nil {
			return nil, nil, fmt.Errorf("failed to add function %s: %w", id, err)
		}
	}

	for _, call := range calls {
		if err := builder.AddEdge(call.Caller, call.Callee, call.Condition); err != nil {
			return nil, nil, fmt.Errorf("failed to add call %s->%s: %w", call.Caller, call.Callee, err)
		}
	}

	for _, id := range sortedKeys(ann.entryPoints) {
		if !ann.entryPoints[id] {
			continue
		}
		if !present[id] {
			warnings = append(warnings, models.Warning{
				NodeID:  id,
				Message: "registered entry point not present in call graph",
			})
			continue
		}
		if err := builder.MarkEntryRegistered(id); err != nil {
			return nil, nil, fmt.Errorf("failed to register entry point %s: %w", id, err)
		}
	}

	logger.Debug("Bridged call graph", "name", name,
		"functions", len(functions), "calls", len(calls), "warnings", len(warnings))
	return builder.Build(), warnings, nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
