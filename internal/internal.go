// Package internal contains internal implementation details.
package internal

import "github.com/onchipmesh/meshgate"

// NullLogger is a [meshgate.Logger] that does not emit logs.
type NullLogger struct{}

// Debug implements meshgate.Logger.
func (nl *NullLogger) Debug(message string) {
	// nothing
}

// Debugf implements meshgate.Logger.
func (nl *NullLogger) Debugf(format string, v ...any) {
	// nothing
}

// Info implements meshgate.Logger.
func (nl *NullLogger) Info(message string) {
	// nothing
}

// Infof implements meshgate.Logger.
func (nl *NullLogger) Infof(format string, v ...any) {
	// nothing
}

// Warn implements meshgate.Logger.
func (nl *NullLogger) Warn(message string) {
	// nothing
}

// Warnf implements meshgate.Logger.
func (nl *NullLogger) Warnf(format string, v ...any) {
	// nothing
}

var _ meshgate.Logger = &NullLogger{}
