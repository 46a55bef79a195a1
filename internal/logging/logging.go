// Package logging configures the generator's global slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup configures the global slog logger. debug takes priority over
// verbose when both are set (it implies verbose's level and additionally
// turns on source locations); output is always text, matching the
// teacher's non-JSON default, since badgesim has no JSON-log consumer of
// its own diagnostic output — the event stream itself, not log lines, is
// the machine-readable product.
func Setup(verbose, debug bool) {
	var w io.Writer = os.Stderr

	level := slog.LevelWarn
	switch {
	case debug:
		level = slog.LevelDebug
	case verbose:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: debug}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, opts)))
}
