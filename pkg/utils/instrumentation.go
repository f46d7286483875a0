package utils

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Instrumentation provides lightweight timing and progress reporting around
// pipeline phases. All output goes to the debug level so it stays silent
// unless verbose logging is enabled.
type Instrumentation struct {
	logger *slog.Logger
}

func NewInstrumentation(logger *slog.Logger) *Instrumentation {
	return &Instrumentation{logger: logger}
}

// TimedOperation runs fn and logs its wall clock duration. The error from fn
// is returned unchanged.
func (i *Instrumentation) TimedOperation(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	elapsed := time.Since(started)

	if err != nil {
		i.logger.Debug("operation failed", "operation", name, "duration", elapsed, "error", err)
		return err
	}
	i.logger.Debug("operation completed", "operation", name, "duration", elapsed)
	return nil
}

// NewProgressTracker returns a tracker for a phase consisting of total units
// of work.
func (i *Instrumentation) NewProgressTracker(name string, total int) *ProgressTracker {
	logEvery := int64(total / 10)
	if logEvery < 1 {
		logEvery = 1
	}
	return &ProgressTracker{
		logger:   i.logger,
		name:     name,
		total:    int64(total),
		logEvery: logEvery,
		started:  time.Now(),
	}
}

// ProgressTracker counts completed units of work and logs progress at coarse
// intervals. Safe for concurrent use.
type ProgressTracker struct {
	logger   *slog.Logger
	name     string
	total    int64
	logEvery int64
	started  time.Time
	current  atomic.Int64
}

// Update records n completed units.
func (p *ProgressTracker) Update(n int) {
	done := p.current.Add(int64(n))
	if done%p.logEvery == 0 && done < p.total {
		p.logger.Debug("progress", "phase", p.name, "completed", done, "total", p.total)
	}
}

// Completed returns the number of units recorded so far.
func (p *ProgressTracker) Completed() int {
	return int(p.current.Load())
}

// Complete logs the final tally for the phase.
func (p *ProgressTracker) Complete() {
	p.logger.Debug("phase complete",
		"phase", p.name,
		"completed", p.current.Load(),
		"total", p.total,
		"duration", time.Since(p.started))
}
