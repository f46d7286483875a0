// Package aggregate folds path verdicts into per-sink classifications and
// entry point rollups. The worst live path dominates: one unprotected live
// path makes the sink a finding no matter how many other paths are clean.
package aggregate

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
)

// reasonOrder fixes the rendering order of aggregate reasons, worst first.
var reasonOrder = []models.PathVerdict{
	models.PathVulnerable,
	models.PathPartiallyMitigated,
	models.PathSanitized,
	models.PathAuthProtected,
}

// Aggregator combines classified paths into sink and entry point reports.
type Aggregator struct {
	logger *slog.Logger
}

// NewAggregator creates a verdict aggregator.
func NewAggregator(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate resolves the overall verdict for one sink from its path
// evaluations. The result does not depend on path order: only the set of
// live verdict kinds matters. Reasons lists the distinct live verdict kinds
// present, worst first; a sink with no live paths has none.
func (a *Aggregator) Aggregate(evals []models.PathEvaluation) (models.SinkVerdict, []string) {
	counts := make(map[models.PathVerdict]int)
	for _, ev := range evals {
		counts[ev.Verdict]++
	}

	live := len(evals) - counts[models.PathDead]
	if live == 0 {
		return models.VerdictDeadCode, nil
	}

	reasons := make([]string, 0, len(reasonOrder))
	for _, v := range reasonOrder {
		if counts[v] > 0 {
			reasons = append(reasons, v.String())
		}
	}

	switch {
	case counts[models.PathVulnerable] > 0:
		return models.VerdictMustFix, reasons
	case counts[models.PathPartiallyMitigated] > 0:
		return models.VerdictGoodToFix, reasons
	default:
		// Any mix of sanitized and auth-protected live paths is benign.
		return models.VerdictFalsePositive, reasons
	}
}

// BuildSinkReport aggregates one sink's evaluations into its report entry,
// with every path kept as evidence. budgetHit marks an incomplete
// enumeration and lowers confidence.
func (a *Aggregator) BuildSinkReport(sinkID string, sinkKind models.SinkKind, evals []models.PathEvaluation, budgetHit bool) models.SinkReport {
	verdict, reasons := a.Aggregate(evals)

	report := models.SinkReport{
		SinkID:         sinkID,
		SinkKind:       sinkKind,
		OverallVerdict: verdict,
		Reasons:        reasons,
		Paths:          make([]models.PathReport, 0, len(evals)),
	}

	truncated := 0
	for _, ev := range evals {
		if ev.Verdict == models.PathDead {
			report.DeadPaths++
		} else {
			report.LivePaths++
		}
		if ev.Path.Truncated {
			truncated++
		}
		report.Paths = append(report.Paths, models.PathReport{
			Nodes:        ev.Path.Nodes,
			Conditions:   ev.Path.Conditions,
			Verdict:      ev.Verdict,
			AuthGateSeen: ev.AuthGateSeen,
			DeadReason:   ev.Path.DeadReason,
			Evidence:     ev.Evidence,
			Truncated:    ev.Path.Truncated,
		})
	}

	report.Confidence = a.confidence(verdict, reasons, truncated, budgetHit)
	report.Rationale = a.rationale(report, truncated, budgetHit)

	a.logger.Debug("Aggregated sink", "sink_id", sinkID, "verdict", verdict.String(),
		"live_paths", report.LivePaths, "dead_paths", report.DeadPaths)
	return report
}

// BuildEntryPointReports rolls the sink reports up per entry point, in
// declaration order. The worst verdict among an entry point's reachable
// sinks becomes its own.
func (a *Aggregator) BuildEntryPointReports(g *graph.Graph, sinks []models.SinkReport) []models.EntryPointReport {
	reports := make([]models.EntryPointReport, 0)
	for _, entry := range g.EntryPoints() {
		report := models.EntryPointReport{
			ID:         entry.ID,
			Registered: g.IsRegistered(entry.ID),
		}
		worst := models.SinkVerdict(-1)
		for _, sink := range sinks {
			if !sinkReachedFrom(sink, entry.ID) {
				continue
			}
			report.ReachableSinks = append(report.ReachableSinks, sink.SinkID)
			if worst < 0 || sink.OverallVerdict < worst {
				worst = sink.OverallVerdict
			}
		}
		if worst >= 0 {
			report.WorstVerdict = worst.String()
		}
		reports = append(reports, report)
	}
	return reports
}

func sinkReachedFrom(sink models.SinkReport, entryID string) bool {
	for _, p := range sink.Paths {
		if len(p.Nodes) > 0 && p.Nodes[0] == entryID {
			return true
		}
	}
	return false
}

func (a *Aggregator) confidence(verdict models.SinkVerdict, reasons []string, truncated int, budgetHit bool) models.Confidence {
	var c models.Confidence
	switch verdict {
	case models.VerdictMustFix, models.VerdictDeadCode:
		c = models.ConfidenceHigh
	case models.VerdictFalsePositive:
		if len(reasons) == 1 {
			c = models.ConfidenceHigh
		} else {
			c = models.ConfidenceMedium
		}
	default:
		c = models.ConfidenceMedium
	}
	if truncated > 0 || budgetHit {
		c = c.Downgrade()
	}
	return c
}

func (a *Aggregator) rationale(r models.SinkReport, truncated int, budgetHit bool) string {
	var parts []string
	switch r.OverallVerdict {
	case models.VerdictMustFix:
		parts = append(parts, "at least one live path reaches the sink unprotected")
	case models.VerdictGoodToFix:
		parts = append(parts, "live paths are only partially mitigated by weak validation")
	case models.VerdictFalsePositive:
		parts = append(parts, fmt.Sprintf("every live path is protected (%s)", strings.Join(r.Reasons, ", ")))
	case models.VerdictDeadCode:
		parts = append(parts, "no live path reaches the sink")
	}
	parts = append(parts, fmt.Sprintf("%d live and %d dead of %d paths", r.LivePaths, r.DeadPaths, len(r.Paths)))
	if truncated > 0 {
		parts = append(parts, fmt.Sprintf("%d path(s) truncated at the revisit cap", truncated))
	}
	if budgetHit {
		parts = append(parts, "path budget exhausted before full enumeration")
	}
	return strings.Join(parts, "; ")
}
