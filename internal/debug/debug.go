// Package debug holds the process-wide verbosity switches and the debug
// logger. Output goes to stderr and is off unless ISSUEBRIDGE_DEBUG is set
// or verbose mode is enabled.
package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	enabled     = os.Getenv("ISSUEBRIDGE_DEBUG") != ""
	verboseMode = false
	quietMode   = false

	logMu  sync.Mutex
	output io.Writer = os.Stderr
	logger *slog.Logger
)

func Enabled() bool {
	return enabled || verboseMode
}

// SetVerbose enables verbose/debug output
func SetVerbose(verbose bool) {
	logMu.Lock()
	defer logMu.Unlock()
	verboseMode = verbose
	logger = nil
}

// SetQuiet enables quiet mode (suppress non-essential output)
func SetQuiet(quiet bool) {
	quietMode = quiet
}

// IsQuiet returns true if quiet mode is enabled
func IsQuiet() bool {
	return quietMode
}

// SetOutput redirects debug output. Used by tests.
func SetOutput(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	output = w
	logger = nil
}

// PrintNormal writes to w unless quiet mode is enabled
func PrintNormal(w io.Writer, format string, args ...interface{}) {
	if !quietMode {
		fmt.Fprintf(w, format, args...)
	}
}

// Logger returns the structured logger. When debug output is disabled it
// discards everything.
func Logger() *slog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	if logger != nil {
		return logger
	}
	if enabled || verboseMode {
		logger = slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		logger = slog.New(slog.DiscardHandler)
	}
	return logger
}
