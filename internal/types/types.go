// Package types defines common type-safe enums used across the codebase.
package types

// LogLevel is a log verbosity name as it appears in config files and flags.
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Valid returns true if the LogLevel is a known value. The empty string is
// accepted and means the default (info).
func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true
	}
	return false
}

// OrDefault returns LogLevelInfo for the empty level.
func (l LogLevel) OrDefault() LogLevel {
	if l == "" {
		return LogLevelInfo
	}
	return l
}
