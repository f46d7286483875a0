// Package paths enumerates entry-to-sink paths over the classified graph.
// Enumeration is deterministic (entry points in declaration order, depth
// first over out-edges in declaration order) and bounded: a node may be
// revisited at most a configured number of times per path, so recursive
// call cycles terminate, and never-taken branches contribute one recorded
// dead path instead of being silently skipped.
package paths

import (
	"iter"
	"log/slog"

	"github.com/sinkscope/sinkscope/pkg/config"
	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
)

// Enumerator produces the paths reaching one sink. It is read-only over the
// graph, so a single Enumerator may serve concurrent callers.
type Enumerator struct {
	logger      *slog.Logger
	graph       *graph.Graph
	maxRevisits int
	maxPaths    int
}

// NewEnumerator creates a path enumerator for a finished graph.
func NewEnumerator(logger *slog.Logger, g *graph.Graph, cfg *config.Config) *Enumerator {
	if cfg == nil {
		// Fall back to the embedded defaults
		cfg, _ = config.DefaultConfig()
		if cfg == nil {
			cfg = &config.Config{}
		}
	}
	return &Enumerator{
		logger:      logger,
		graph:       g,
		maxRevisits: cfg.Enumeration.MaxNodeRevisits,
		maxPaths:    cfg.Enumeration.MaxPathsPerSink,
	}
}

// Enumerate returns a lazy, restartable sequence of every path from an
// entry point to the given sink. Ranging over it again restarts the
// enumeration from the first entry point.
func (e *Enumerator) Enumerate(sinkID string) iter.Seq[models.Path] {
	return func(yield func(models.Path) bool) {
		w := e.newWalker(sinkID, yield)
		w.run()
	}
}

// EnumerateAll collects every path for a sink. The second result reports
// whether the per-sink path budget cut the enumeration short.
func (e *Enumerator) EnumerateAll(sinkID string) ([]models.Path, bool) {
	var paths []models.Path
	w := e.newWalker(sinkID, func(p models.Path) bool {
		paths = append(paths, p)
		return true
	})
	w.run()

	e.logger.Debug("Enumerated paths", "sink_id", sinkID, "paths", len(paths), "budget_hit", w.budgetHit)
	return paths, w.budgetHit
}

func (e *Enumerator) newWalker(sinkID string, yield func(models.Path) bool) *walker {
	return &walker{
		enum:     e,
		sinkID:   sinkID,
		canReach: e.reachableTo(sinkID),
		yield:    yield,
	}
}

// reachableTo marks every node from which the sink is reachable in the raw
// graph, dead regions included. The walk below never leaves this set, so it
// cannot wander through subgraphs that could not contribute a path.
func (e *Enumerator) reachableTo(sinkID string) map[string]bool {
	if _, ok := e.graph.Node(sinkID); !ok {
		return nil
	}
	reach := map[string]bool{sinkID: true}
	queue := []string{sinkID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, edge := range e.graph.InEdges(id) {
			if !reach[edge.From] {
				reach[edge.From] = true
				queue = append(queue, edge.From)
			}
		}
	}
	return reach
}

// walker holds the state of one depth-first enumeration.
type walker struct {
	enum      *Enumerator
	sinkID    string
	canReach  map[string]bool
	yield     func(models.Path) bool
	stopped   bool
	emitted   int
	budgetHit bool

	entry      string
	registered bool

	stack      []string
	conds      []models.BranchCondition
	visits     map[string]int
	neverDepth int
	deadDone   bool
	cuts       int
	cutNodes   []string
}

func (w *walker) run() {
	for _, entry := range w.enum.graph.EntryPoints() {
		if w.stopped {
			return
		}
		if !w.canReach[entry.ID] {
			continue
		}
		w.entry = entry.ID
		w.registered = w.enum.graph.IsRegistered(entry.ID)
		w.stack = w.stack[:0]
		w.conds = w.conds[:0]
		w.visits = make(map[string]int)
		w.neverDepth = 0
		w.deadDone = false
		w.cuts = 0
		w.cutNodes = w.cutNodes[:0]
		w.visit(entry.ID)
	}
}

func (w *walker) visit(id string) {
	w.stack = append(w.stack, id)
	w.visits[id]++
	defer func() {
		w.stack = w.stack[:len(w.stack)-1]
		w.visits[id]--
	}()

	// A path terminates at its first arrival at the sink.
	if id == w.sinkID {
		w.emit()
		return
	}

	savedCuts := w.cuts
	savedCutNodes := len(w.cutNodes)
	for _, edge := range w.enum.graph.OutEdges(id) {
		if w.stopped {
			break
		}
		if w.neverDepth > 0 && w.deadDone {
			// One recorded dead path per never-taken crossing is enough.
			break
		}
		if !w.canReach[edge.To] {
			continue
		}
		if w.visits[edge.To] > w.enum.maxRevisits {
			// Revisit cap reached: record the truncation, keep enumerating.
			w.cuts++
			w.cutNodes = append(w.cutNodes, edge.To)
			continue
		}

		w.conds = append(w.conds, edge.Condition)
		if edge.Condition == models.ConditionNever {
			w.neverDepth++
		}
		w.visit(edge.To)
		if edge.Condition == models.ConditionNever {
			w.neverDepth--
			if w.neverDepth == 0 {
				w.deadDone = false
			}
		}
		w.conds = w.conds[:len(w.conds)-1]
	}
	w.cuts = savedCuts
	w.cutNodes = w.cutNodes[:savedCutNodes]
}

func (w *walker) emit() {
	if w.enum.maxPaths > 0 && w.emitted >= w.enum.maxPaths {
		w.budgetHit = true
		w.stopped = true
		return
	}

	path := models.Path{
		EntryPoint:      w.entry,
		SinkID:          w.sinkID,
		Nodes:           append([]string(nil), w.stack...),
		Conditions:      append([]models.BranchCondition(nil), w.conds...),
		EntryRegistered: w.registered,
	}
	if !w.registered {
		path.DeadReason = models.DeadReasonUnregisteredEntry
	} else if w.neverDepth > 0 {
		path.DeadReason = models.DeadReasonNeverEdge
	}
	if w.cuts > 0 {
		path.Truncated = true
		path.TruncatedAt = w.cutNodes[len(w.cutNodes)-1]
	}

	w.emitted++
	if w.neverDepth > 0 {
		w.deadDone = true
	}
	if !w.yield(path) {
		w.stopped = true
	}
}
