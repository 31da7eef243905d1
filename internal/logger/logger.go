// Package logger provides leveled logging for merchantsync.
//
// Debug output is suppressed unless verbose mode is enabled via SetVerbose,
// which the CLI wires to its --verbose flag.
package logger

import (
	"log"
	"os"
	"sync/atomic"
)

var (
	verbose atomic.Bool

	std = log.New(os.Stderr, "", log.LstdFlags)
)

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbose reports whether debug output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Debugf logs a debug message. No-op unless verbose mode is enabled.
func Debugf(format string, args ...any) {
	if verbose.Load() {
		std.Printf("DEBUG "+format, args...)
	}
}

// Infof logs an informational message.
func Infof(format string, args ...any) {
	std.Printf(format, args...)
}

// Warnf logs a warning.
func Warnf(format string, args ...any) {
	std.Printf("WARN "+format, args...)
}

// Errorf logs an error.
func Errorf(format string, args ...any) {
	std.Printf("ERROR "+format, args...)
}
