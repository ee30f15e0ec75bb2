// Package cli implements the pradreader command-line interface.
//
// The CLI reads proton radiography files in any supported format, fills in
// missing geometry, and writes the PRR intermediate file plus optional
// snapshots and plots. It is built on cobra, with charmbracelet/log for
// logging, lipgloss for styled output, and huh for interactive prompts.
//
// # Commands
//
//   - read: ingest a file and write PRR, snapshot and plot outputs
//   - show: display a record read from any format or snapshot
//   - formats: list the supported input formats
//   - cache: manage the parsed particle table cache
//   - config: inspect the config file
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context so pipeline stages report progress under
// the command's logger.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pradreader/pkg/pipeline"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one pipeline run and logs its outcome with the elapsed
// duration. It is not safe for concurrent use.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time and any structured keyvals, e.g.
// "Pipeline complete (1.234s) format=flash4 shape=200x200".
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(fmt.Sprintf("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond)), keyvals...)
}

// doneResult logs the completed read with the record's format, grid shape,
// total flux and any geometry still missing.
func (p *progress) doneResult(result *pipeline.Result) {
	rec := result.Record
	kv := []any{
		"format", rec.Format.String(),
		"shape", fmt.Sprintf("%dx%d", result.Stats.Rows, result.Stats.Cols),
		"flux", rec.Flux.Sum(),
	}
	if missing := rec.Missing(); len(missing) > 0 {
		kv = append(kv, "missing", strings.Join(missing, ","))
	}
	p.done("Pipeline complete", kv...)
}

// ctxKey is the type for context keys used in this package.
// Using a distinct type prevents collisions with other packages.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
// The logger can be retrieved later with loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
// This ensures commands always have a valid logger even if context setup fails.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
