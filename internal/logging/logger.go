// Copyright (c) 2026 Keymaster Team
// Keymaster - SSH key management system
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging builds the structured logger handed to the orchestrator
// and its collaborators. There is no package-level logger: callers create
// one with New and pass it down explicitly.
package logging

import (
	"io"
	"os"

	clog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

// Logger is the subset of *clog.Logger the rest of the module depends on.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Options controls logger construction.
type Options struct {
	Verbose bool
	// Timestamps adds a time column to every line.
	Timestamps bool
}

// New returns a logger writing to w. Terminals get the colored text
// formatter, everything else (files, pipes, CI) gets logfmt.
func New(w io.Writer, opts Options) *clog.Logger {
	formatter := clog.LogfmtFormatter
	if isTerminal(w) {
		formatter = clog.TextFormatter
	}
	level := clog.InfoLevel
	if opts.Verbose {
		level = clog.DebugLevel
	}
	return clog.NewWithOptions(w, clog.Options{
		Prefix:          "keymaster",
		Level:           level,
		ReportTimestamp: opts.Timestamps,
		Formatter:       formatter,
	})
}

// Discard returns a logger that drops everything.
func Discard() *clog.Logger {
	return clog.New(io.Discard)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
