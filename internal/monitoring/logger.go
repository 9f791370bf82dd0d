// Package monitoring holds the diagnostic logger shared by the scan tooling.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests mute it, the CLI tags it with the run ID.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed wraps f so every line starts with "[prefix] ".
// An empty prefix returns f unchanged.
func Prefixed(prefix string, f func(format string, v ...interface{})) func(format string, v ...interface{}) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	if prefix == "" {
		return f
	}
	return func(format string, v ...interface{}) {
		f("["+prefix+"] "+format, v...)
	}
}
