// Package cli implements the tracelane command-line interface.
//
// The CLI is built with cobra. Commands share a charmbracelet/log logger
// passed through context.Context and a TOML configuration loaded once by the
// root command.
//
// # Commands
//
//   - serve: answer lane-range queries for a PDG export over HTTP
//   - view: browse the timeline interactively in the terminal
//   - render: lay out a window headlessly and write DOT or SVG
//   - lanes: print the lane table
//   - cache: manage the file response cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The view
// command owns the terminal and only logs to --log-file.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time, e.g. "Loaded pdg.json (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
