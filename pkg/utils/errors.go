package utils

import (
	"errors"
	"strings"
)

// Sentinel errors for common conditions.
// Use errors.Is() to check for these rather than string matching.
var (
	// ErrInvalidIdentifier indicates a disk identifier failed validation
	ErrInvalidIdentifier = errors.New("invalid disk identifier")

	// ErrHostCommandFailed indicates the host disk tool exited non-zero
	ErrHostCommandFailed = errors.New("host command failed")

	// ErrHostUnavailable indicates the host disk tool could not be executed at all
	ErrHostUnavailable = errors.New("host command unavailable")

	// ErrMalformedOutput indicates the host disk tool produced unparseable output
	ErrMalformedOutput = errors.New("malformed host output")

	// ErrMissingCommands indicates required commands are not resolvable on PATH
	ErrMissingCommands = errors.New("required commands missing")

	// ErrNotPrivileged indicates the process is not running as root
	ErrNotPrivileged = errors.New("insufficient privileges")

	// ErrLogDirUnwritable indicates the log directory cannot be created or written
	ErrLogDirUnwritable = errors.New("log directory unwritable")

	// ErrConflictingModes indicates mutually exclusive run modes were requested
	ErrConflictingModes = errors.New("conflicting run modes")

	// ErrUsage indicates a malformed command line
	ErrUsage = errors.New("invalid usage")

	// ErrInvalidConfig indicates the configuration file or a setting is unusable
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorClass classifies failures by how the run reacts to them
type ErrorClass int

const (
	// ClassStartupFatal aborts the run before any volume is touched
	ClassStartupFatal ErrorClass = iota

	// ClassVolumeRecoverable is logged for manual intervention; the run moves on
	ClassVolumeRecoverable
)

// String returns the class name
func (c ErrorClass) String() string {
	switch c {
	case ClassStartupFatal:
		return "startup-fatal"
	case ClassVolumeRecoverable:
		return "volume-recoverable"
	default:
		return "unknown"
	}
}

// Classify maps an error to the reaction it requires.
// Anything not recognised as a startup precondition is treated as recoverable.
func Classify(err error) ErrorClass {
	switch {
	case errors.Is(err, ErrMissingCommands),
		errors.Is(err, ErrNotPrivileged),
		errors.Is(err, ErrLogDirUnwritable),
		errors.Is(err, ErrConflictingModes),
		errors.Is(err, ErrUsage),
		errors.Is(err, ErrInvalidConfig):
		return ClassStartupFatal
	default:
		return ClassVolumeRecoverable
	}
}

// Diagnostic flattens raw command output into a single log-safe line.
// Output is otherwise kept verbatim so operators see exactly what the tool said.
func Diagnostic(output []byte) string {
	s := strings.TrimSpace(string(output))
	if s == "" {
		return "(no output)"
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\r", "")), " ")
}
