// Package verdict assigns each enumerated path exactly one verdict. The
// rules apply in a fixed precedence: dead paths first, then sanitized, then
// auth-protected, then partially mitigated, with vulnerable as the
// fall-through. Protective roles only count when they sit strictly before
// the sink; a role on the sink node itself protects nothing.
package verdict

import (
	"fmt"
	"log/slog"

	"github.com/sinkscope/sinkscope/pkg/config"
	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
)

// Engine evaluates paths against the classification policy. It is read-only
// over the graph, so a single Engine may serve concurrent callers.
type Engine struct {
	logger          *slog.Logger
	graph           *graph.Graph
	weakNeutralizes bool
	authProtects    bool
}

// NewEngine creates a path verdict engine.
func NewEngine(logger *slog.Logger, g *graph.Graph, cfg *config.Config) *Engine {
	if cfg == nil {
		cfg, _ = config.DefaultConfig()
		if cfg == nil {
			cfg = &config.Config{}
		}
	}
	return &Engine{
		logger:          logger,
		graph:           g,
		weakNeutralizes: cfg.Classification.WeakValidatorNeutralizes,
		authProtects:    cfg.Classification.AuthGateProtects,
	}
}

// Classify evaluates a single path. Evidence is collected for every tagged
// node on the path, including on dead paths, so that a reviewer can see
// which mitigations a path carries even when they do not decide the verdict.
func (e *Engine) Classify(path models.Path) models.PathEvaluation {
	eval := models.PathEvaluation{Path: path}

	var sanitized, weakSeen, authSeen bool
	for _, id := range beforeSink(path.Nodes) {
		node, ok := e.graph.Node(id)
		if !ok {
			continue
		}
		switch node.Role {
		case models.RoleSource:
			eval.Evidence = append(eval.Evidence, fmt.Sprintf("taint source %s on path", id))
		case models.RoleSanitizer:
			sanitized = true
			eval.Evidence = append(eval.Evidence, fmt.Sprintf("sanitizer %s before sink", id))
		case models.RoleValidator:
			if node.Strength == models.StrengthStrict {
				sanitized = true
				eval.Evidence = append(eval.Evidence, fmt.Sprintf("strict validator %s before sink", id))
			} else {
				weakSeen = true
				eval.Evidence = append(eval.Evidence, fmt.Sprintf("weak validator %s before sink", id))
			}
		case models.RoleAuthzGate:
			authSeen = true
			eval.Evidence = append(eval.Evidence, fmt.Sprintf("authorization gate %s before sink", id))
		case models.RoleRateLimiter:
			eval.Evidence = append(eval.Evidence, fmt.Sprintf("rate limiter %s on path", id))
		case models.RoleDeadGuard:
			eval.Evidence = append(eval.Evidence, fmt.Sprintf("dead guard %s on path", id))
		}
	}
	eval.AuthGateSeen = authSeen

	switch {
	case !path.Live():
		eval.Verdict = models.PathDead
		eval.Evidence = append(eval.Evidence, deadEvidence(path))
	case sanitized || (weakSeen && e.weakNeutralizes):
		eval.Verdict = models.PathSanitized
	case authSeen && e.authProtects:
		eval.Verdict = models.PathAuthProtected
	case weakSeen:
		eval.Verdict = models.PathPartiallyMitigated
	default:
		eval.Verdict = models.PathVulnerable
	}

	return eval
}

// ClassifyAll evaluates a batch of paths in order.
func (e *Engine) ClassifyAll(paths []models.Path) []models.PathEvaluation {
	evals := make([]models.PathEvaluation, 0, len(paths))
	for _, p := range paths {
		evals = append(evals, e.Classify(p))
	}
	e.logger.Debug("Classified paths", "paths", len(evals))
	return evals
}

// beforeSink is the span of path nodes eligible to carry protective roles.
func beforeSink(nodes []string) []string {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[:len(nodes)-1]
}

func deadEvidence(p models.Path) string {
	if p.DeadReason == models.DeadReasonUnregisteredEntry {
		return fmt.Sprintf("entry point %s is not registered", p.EntryPoint)
	}
	return "never-taken branch on path"
}
