package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gookit/color"

	"github.com/sinkscope/sinkscope/pkg/config"
	"github.com/sinkscope/sinkscope/pkg/graph"
	"github.com/sinkscope/sinkscope/pkg/graphloader"
	"github.com/sinkscope/sinkscope/pkg/models"
	"github.com/sinkscope/sinkscope/pkg/output"
	"github.com/sinkscope/sinkscope/pkg/utils"
	"github.com/sinkscope/sinkscope/pkg/version"
)

// Exit codes. Malformed input (bad graph file, bad policy, unknown sink ids)
// exits 2 so callers can tell input problems from analysis failures.
const (
	exitOK       = 0
	exitError    = 1
	exitBadInput = 2
)

type cliOptions struct {
	graphFile string
	outFile   string
	format    string
	policy    string
	sinks     []string
	workers   int
	timeout   time.Duration
}

func main() {
	var (
		graphFile   = flag.String("graph", "", "Path to the call graph file (JSON or YAML)")
		outFile     = flag.String("out", "", "Write the report to this file instead of stdout")
		format      = flag.String("format", "json", "Report format: json, yaml, or text")
		policyFile  = flag.String("policy", "", "Path to a policy file overriding the built-in defaults")
		sinkFilter  = flag.String("sinks", "", "Comma-separated sink ids to analyze (default: all sinks)")
		workers     = flag.Int("workers", 0, "Concurrent sink workers (0 = number of CPUs)")
		timeout     = flag.Duration("timeout", 0, "Abort the run after this duration (0 = policy default)")
		verbose     = flag.Bool("v", false, "Verbose output")
		showVersion = flag.Bool("version", false, "Show version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetFullVersionString())
		os.Exit(exitOK)
	}

	if *graphFile == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: -graph")
		flag.Usage()
		os.Exit(exitBadInput)
	}
	switch *format {
	case "json", "yaml", "text":
	default:
		fmt.Fprintf(os.Stderr, "unknown format %q: expected json, yaml, or text\n", *format)
		os.Exit(exitBadInput)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	os.Exit(run(logger, cliOptions{
		graphFile: *graphFile,
		outFile:   *outFile,
		format:    *format,
		policy:    *policyFile,
		sinks:     utils.ParseCommaDelimited(*sinkFilter),
		workers:   *workers,
		timeout:   *timeout,
	}))
}

func run(logger *slog.Logger, opts cliOptions) int {
	cfg, err := loadPolicy(opts.policy)
	if err != nil {
		logger.Error("Invalid policy", "error", err)
		return exitBadInput
	}
	if opts.workers > 0 {
		cfg.Run.Workers = opts.workers
	}
	if opts.timeout > 0 {
		cfg.Run.Timeout = opts.timeout.String()
	}

	inst := utils.NewInstrumentation(logger)

	loader, err := graphloader.NewLoader(logger)
	if err != nil {
		logger.Error("Failed to initialize graph loader", "error", err)
		return exitError
	}

	var loaded *graphloader.Result
	err = inst.TimedOperation("load graph", func() error {
		var loadErr error
		loaded, loadErr = loader.LoadFromFile(opts.graphFile)
		return loadErr
	})
	if err != nil {
		logger.Error("Failed to load graph", "file", opts.graphFile, "error", err)
		return exitCode(err)
	}

	generator := output.NewReportGenerator(logger, cfg)

	var report *models.Report
	err = inst.TimedOperation("generate report", func() error {
		var genErr error
		report, genErr = generator.Generate(context.Background(), loaded.Graph, loaded.Warnings, output.Options{
			GraphFile: opts.graphFile,
			SinkIDs:   opts.sinks,
		})
		return genErr
	})
	if err != nil {
		logger.Error("Analysis failed", "error", err)
		return exitCode(err)
	}

	if err := writeReport(logger, report, opts.format, opts.outFile); err != nil {
		logger.Error("Failed to write report", "error", err)
		return exitError
	}
	return exitOK
}

// exitCode maps structural input errors to exit 2 and everything else to 1.
func exitCode(err error) int {
	var structural graph.StructuralError
	if errors.As(err, &structural) {
		return exitBadInput
	}
	return exitError
}

func loadPolicy(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig()
	}
	return config.LoadFromFile(path)
}

func writeReport(logger *slog.Logger, report *models.Report, format, outFile string) error {
	var w io.Writer = os.Stdout
	if outFile != "" {
		file, err := utils.SafeCreateFile(outFile)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
		// Color codes belong on terminals, not in files.
		color.Disable()
	}

	var err error
	switch format {
	case "yaml":
		err = output.WriteYAML(w, report)
	case "text":
		err = output.WriteText(w, report)
	default:
		err = output.WriteJSON(w, report)
	}
	if err != nil {
		return err
	}

	if outFile != "" {
		logger.Info("Report written", "file", outFile, "format", format)
	}
	return nil
}
