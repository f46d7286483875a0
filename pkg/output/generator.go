// Package output runs the classification pipeline over a loaded graph and
// renders the resulting report as JSON, YAML, or colored text. Sinks are
// analyzed concurrently; everything rendered is ordered by declaration, so
// repeated runs over the same graph produce identical reports apart from
// the creation metadata.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sinkscope/sinkscope/pkg/analysis/aggregate"
	"github.com/sinkscope/sinkscope/pkg/analysis/paths"
	"github.com/sinkscope/sinkscope/pkg/analysis/verdict"
	"github.com/sinkscope/sinkscope/pkg/config"
	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/models"
	"github.com/sinkscope/sinkscope/pkg/utils"
	"github.com/sinkscope/sinkscope/pkg/version"
)

// ReportVersion is the version of the report document format.
const ReportVersion = "0.1.0"

// ToolName identifies this tool in report creation info.
const ToolName = "sinkscope"

// UnknownSinkError reports a sink filter entry that names no sink node.
// It is a structural input error.
type UnknownSinkError struct {
	SinkID string
}

func (e *UnknownSinkError) Error() string {
	return fmt.Sprintf("unknown sink id %q in filter", e.SinkID)
}

// Structural marks the error as a malformed-input failure.
func (e *UnknownSinkError) Structural() {}

// Options control a single classification run.
type Options struct {
	// GraphFile is recorded in the report creation info.
	GraphFile string
	// SinkIDs restricts analysis to the named sinks. Empty means all.
	SinkIDs []string
}

// ReportGenerator orchestrates enumeration, classification, and aggregation
// for every sink of a graph.
type ReportGenerator struct {
	logger *slog.Logger
	cfg    *config.Config
}

// NewReportGenerator creates a report generator.
func NewReportGenerator(logger *slog.Logger, cfg *config.Config) *ReportGenerator {
	if cfg == nil {
		cfg, _ = config.DefaultConfig()
		if cfg == nil {
			cfg = &config.Config{}
		}
	}
	return &ReportGenerator{logger: logger, cfg: cfg}
}

// Generate runs the full pipeline and returns the report. warnings are
// carried into the report alongside any produced during the run itself.
func (g *ReportGenerator) Generate(ctx context.Context, gr *graph.Graph, warnings []models.Warning, opts Options) (*models.Report, error) {
	if timeout := g.cfg.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	warnings = append([]models.Warning(nil), warnings...)

	sinks, orphanWarnings, err := g.selectSinks(gr, opts.SinkIDs)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, orphanWarnings...)

	started := time.Now()
	sinkReports, err := g.analyzeSinks(ctx, gr, sinks)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("Analysis finished", "sinks", len(sinkReports), "elapsed", time.Since(started).String())

	aggregator := aggregate.NewAggregator(g.logger)
	report := &models.Report{
		ReportVersion: ReportVersion,
		CreationInfo: models.CreationInfo{
			ReportID:    uuid.NewString(),
			Created:     time.Now().UTC().Format(time.RFC3339),
			ToolName:    ToolName,
			ToolVersion: version.GetVersion(),
			GraphFile:   opts.GraphFile,
		},
		GraphName:   gr.Name(),
		Sinks:       sinkReports,
		EntryPoints: aggregator.BuildEntryPointReports(gr, sinkReports),
		Summary:     buildSummary(sinkReports),
		Warnings:    warnings,
	}
	return report, nil
}

// selectSinks resolves the sinks to analyze: the declared sink list, the
// orphaned-sink policy applied, then the optional filter.
func (g *ReportGenerator) selectSinks(gr *graph.Graph, filter []string) ([]graph.Node, []models.Warning, error) {
	orphaned := make(map[string]bool)
	var warnings []models.Warning
	for _, id := range gr.OrphanedSinks() {
		if g.cfg.OrphanedSinkFatal() {
			return nil, nil, fmt.Errorf("malformed graph: %w", &graph.OrphanedSinkError{ID: id})
		}
		orphaned[id] = true
		warnings = append(warnings, models.Warning{
			NodeID:  id,
			Message: "orphaned sink excluded from analysis",
		})
	}

	sinks := make([]graph.Node, 0)
	for _, sink := range gr.Sinks() {
		if !orphaned[sink.ID] {
			sinks = append(sinks, sink)
		}
	}

	if len(filter) == 0 {
		return sinks, warnings, nil
	}

	byID := make(map[string]bool, len(sinks))
	for _, sink := range sinks {
		byID[sink.ID] = true
	}
	wanted := make(map[string]bool, len(filter))
	for _, id := range filter {
		if !byID[id] {
			return nil, nil, &UnknownSinkError{SinkID: id}
		}
		wanted[id] = true
	}

	filtered := make([]graph.Node, 0, len(wanted))
	for _, sink := range sinks {
		if wanted[sink.ID] {
			filtered = append(filtered, sink)
		}
	}
	return filtered, warnings, nil
}

// analyzeSinks fans the per-sink work out over a bounded worker pool. The
// shared analyzers are read-only over the graph, so the workers need no
// locking; each writes only its own slot of the results slice.
func (g *ReportGenerator) analyzeSinks(ctx context.Context, gr *graph.Graph, sinks []graph.Node) ([]models.SinkReport, error) {
	results := make([]models.SinkReport, len(sinks))
	if len(sinks) == 0 {
		return results, nil
	}

	enumerator := paths.NewEnumerator(g.logger, gr, g.cfg)
	engine := verdict.NewEngine(g.logger, gr, g.cfg)
	aggregator := aggregate.NewAggregator(g.logger)

	workers := g.cfg.Run.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(sinks) {
		workers = len(sinks)
	}

	tracker := utils.NewInstrumentation(g.logger).NewProgressTracker("sink classification", len(sinks))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, sink := range sinks {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = g.analyzeSink(enumerator, engine, aggregator, sink)
			tracker.Update(1)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("classification run failed: %w", err)
	}
	tracker.Complete()
	return results, nil
}

// analyzeSink runs one sink through the pipeline. A panic is contained to
// this sink: the report entry carries the failure and, failing closed, a
// worst-case verdict, while the rest of the run proceeds.
func (g *ReportGenerator) analyzeSink(enumerator *paths.Enumerator, engine *verdict.Engine, aggregator *aggregate.Aggregator, sink graph.Node) (report models.SinkReport) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Sink analysis panicked", "sink_id", sink.ID, "panic", r)
			report = models.SinkReport{
				SinkID:         sink.ID,
				SinkKind:       sink.SinkKind,
				OverallVerdict: models.VerdictMustFix,
				Confidence:     models.ConfidenceLow,
				Rationale:      "analysis failed, treating the sink as unresolved",
				Paths:          []models.PathReport{},
				Error:          fmt.Sprintf("analysis failed: %v", r),
			}
		}
	}()

	pathList, budgetHit := enumerator.EnumerateAll(sink.ID)
	evaluations := engine.ClassifyAll(pathList)
	return aggregator.BuildSinkReport(sink.ID, sink.SinkKind, evaluations, budgetHit)
}

func buildSummary(sinks []models.SinkReport) models.Summary {
	summary := models.Summary{TotalSinks: len(sinks)}
	for _, sink := range sinks {
		summary.TotalPaths += len(sink.Paths)
		summary.LivePaths += sink.LivePaths
		summary.DeadPaths += sink.DeadPaths
		if sink.Error != "" {
			summary.AnalysisErrors++
			continue
		}
		switch sink.OverallVerdict {
		case models.VerdictMustFix:
			summary.MustFix++
		case models.VerdictGoodToFix:
			summary.GoodToFix++
		case models.VerdictFalsePositive:
			summary.FalsePositives++
		case models.VerdictDeadCode:
			summary.DeadCode++
		}
	}
	return summary
}
