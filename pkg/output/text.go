package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"github.com/sinkscope/sinkscope/pkg/models"
)

// verdictStyles maps aggregate verdicts to console styles, worst loudest.
var verdictStyles = map[models.SinkVerdict]color.Style{
	models.VerdictMustFix:       color.New(color.FgRed, color.OpBold),
	models.VerdictGoodToFix:     color.New(color.FgYellow, color.OpBold),
	models.VerdictFalsePositive: color.New(color.FgGreen),
	models.VerdictDeadCode:      color.New(color.FgDarkGray),
}

// WriteText renders a human-oriented report with verdicts colored by
// severity. Callers writing to a file should call color.Disable() first so
// no escape codes land on disk.
func WriteText(w io.Writer, report *models.Report) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s classification report\n",
		report.CreationInfo.ToolName, report.CreationInfo.ToolVersion)
	switch {
	case report.GraphName != "" && report.CreationInfo.GraphFile != "":
		fmt.Fprintf(&b, "graph: %s (%s)\n", report.GraphName, report.CreationInfo.GraphFile)
	case report.GraphName != "":
		fmt.Fprintf(&b, "graph: %s\n", report.GraphName)
	case report.CreationInfo.GraphFile != "":
		fmt.Fprintf(&b, "graph: %s\n", report.CreationInfo.GraphFile)
	}
	fmt.Fprintf(&b, "created: %s\n\n", report.CreationInfo.Created)

	s := report.Summary
	fmt.Fprintf(&b, "%d sink(s): %d must fix, %d good to fix, %d false positive, %d dead code\n",
		s.TotalSinks, s.MustFix, s.GoodToFix, s.FalsePositives, s.DeadCode)
	fmt.Fprintf(&b, "%d path(s): %d live, %d dead\n", s.TotalPaths, s.LivePaths, s.DeadPaths)
	if s.AnalysisErrors > 0 {
		fmt.Fprintf(&b, "%d sink(s) failed analysis\n", s.AnalysisErrors)
	}

	for _, sink := range report.Sinks {
		b.WriteString("\n")
		writeSinkText(&b, sink)
	}

	if len(report.EntryPoints) > 0 {
		b.WriteString("\nentry points:\n")
		for _, entry := range report.EntryPoints {
			writeEntryPointText(&b, entry)
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\nwarnings:\n")
		for _, warning := range report.Warnings {
			if warning.NodeID != "" {
				fmt.Fprintf(&b, "  %s: %s\n", warning.NodeID, warning.Message)
			} else {
				fmt.Fprintf(&b, "  %s\n", warning.Message)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeSinkText(b *strings.Builder, sink models.SinkReport) {
	label := sink.SinkID
	if sink.SinkKind != "" {
		label = fmt.Sprintf("%s [%s]", sink.SinkID, sink.SinkKind)
	}
	fmt.Fprintf(b, "%s  %s  confidence %s\n",
		styleFor(sink.OverallVerdict).Sprintf("%-14s", sink.OverallVerdict), label, sink.Confidence)
	if sink.Error != "" {
		fmt.Fprintf(b, "    error: %s\n", sink.Error)
	}
	if sink.Rationale != "" {
		fmt.Fprintf(b, "    %s\n", sink.Rationale)
	}
	for _, path := range sink.Paths {
		var details string
		if path.DeadReason != "" {
			details = fmt.Sprintf(" (%s)", path.DeadReason)
		}
		if path.Truncated {
			details += " (truncated)"
		}
		fmt.Fprintf(b, "    %-19s  %s%s\n", path.Verdict, strings.Join(path.Nodes, " -> "), details)
	}
}

func writeEntryPointText(b *strings.Builder, entry models.EntryPointReport) {
	status := "registered"
	if !entry.Registered {
		status = "unregistered"
	}
	if len(entry.ReachableSinks) == 0 {
		fmt.Fprintf(b, "  %s  %s  reaches no sinks\n", entry.ID, status)
		return
	}
	fmt.Fprintf(b, "  %s  %s  worst %s  sinks: %s\n",
		entry.ID, status, entry.WorstVerdict, strings.Join(entry.ReachableSinks, ", "))
}

func styleFor(v models.SinkVerdict) color.Style {
	if style, ok := verdictStyles[v]; ok {
		return style
	}
	return color.New(color.FgDefault)
}
