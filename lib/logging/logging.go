// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process logger for liveplot binaries.
//
// Records go to stderr as text when stderr is a terminal and as JSON
// otherwise, so piped output stays machine-parseable. When an output
// file is configured, every record is also written to it as JSON
// lines through a slog-multi fan-out.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"golang.org/x/term"
)

// Options configures [New].
type Options struct {
	// Level is the minimum level written to every destination.
	Level slog.Level

	// Output is a file path receiving a JSON copy of every record.
	// Opened for append and created if missing. Empty disables it.
	Output string

	// Stderr is the console destination. Nil means os.Stderr.
	Stderr io.Writer
}

// New returns the logger described by options and a close function
// releasing the output file. The close function is never nil.
func New(options Options) (*slog.Logger, func() error, error) {
	stderr := options.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	handlerOptions := &slog.HandlerOptions{Level: options.Level}

	var console slog.Handler
	if isTerminal(stderr) {
		console = slog.NewTextHandler(stderr, handlerOptions)
	} else {
		console = slog.NewJSONHandler(stderr, handlerOptions)
	}

	if options.Output == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	file, err := os.OpenFile(options.Output, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output: %w", err)
	}
	logger := slog.New(slogmulti.Fanout(
		console,
		slog.NewJSONHandler(file, handlerOptions),
	))
	return logger, file.Close, nil
}

// ParseLevel parses debug, info, warn, or error (case-insensitive).
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
