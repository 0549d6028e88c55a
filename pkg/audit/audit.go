package audit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"code.cloudfoundry.org/clock"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

const (
	// TimestampFormat is the per-line timestamp layout
	TimestampFormat = "2006-01-02 15:04:05,000"

	// fileStampFormat names the files of one run
	fileStampFormat = "20060102-150405"

	// SummarySentinel marks the recommendation block in the manual-intervention log
	SummarySentinel = "===== Summary of Recommendations ====="

	// AllClear is written when the run logged no errors
	AllClear = "All disk checks completed without errors."

	// ReviewRequired is written when at least one error was logged
	ReviewRequired = "Some disks encountered issues that require manual intervention. " +
		"Please review the above errors and take appropriate actions."
)

// Level tags an entry
type Level int

const (
	LevelInfo Level = iota
	LevelError
)

// String returns the tag written to the log line
func (l Level) String() string {
	if l == LevelError {
		return "ERROR"
	}
	return "INFO"
}

// levelMapping defines where an entry of a level is written
type levelMapping struct {
	manual  bool
	mirror  func(args ...interface{})
	summary string
}

// levelMap is the routing table for entries
var levelMap = map[Level]levelMapping{
	LevelInfo: {
		manual:  false,
		mirror:  func(args ...interface{}) { klog.V(4).Info(args...) },
		summary: "Summary: No errors detected. All disk checks passed successfully.",
	},
	LevelError: {
		manual:  true,
		mirror:  func(args ...interface{}) { klog.V(2).Info(args...) },
		summary: "Summary: Some errors were encountered during the disk check. Please review the error logs for details.",
	},
}

// Options configures Open
type Options struct {
	// Dir is the log directory, created if missing
	Dir string

	// Clock supplies timestamps; defaults to the real clock
	Clock clock.Clock

	// Console receives every entry; defaults to stdout. Use io.Discard to silence.
	Console io.Writer
}

// Log is the dual-sink audit log of one run. It is safe for concurrent use.
type Log struct {
	// mu serializes every sink write and guards the counters
	mu sync.Mutex

	clock   clock.Clock
	full    *os.File
	manual  *os.File
	console io.Writer

	fullPath   string
	manualPath string

	errorCount int
	finalized  bool
	closed     bool
}

// Open creates the log directory and both log files for a run starting now.
// Failure to do so is startup-fatal and wraps utils.ErrLogDirUnwritable.
func Open(opts Options) (*Log, error) {
	if opts.Clock == nil {
		opts.Clock = clock.NewClock()
	}
	if opts.Console == nil {
		opts.Console = os.Stdout
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", utils.ErrLogDirUnwritable, opts.Dir, err)
	}

	stamp := opts.Clock.Now().Format(fileStampFormat)
	fullPath := filepath.Join(opts.Dir, fmt.Sprintf("diskcheck-%s.log", stamp))
	manualPath := filepath.Join(opts.Dir, fmt.Sprintf("diskcheck-errors-%s.log", stamp))

	full, err := openAppend(fullPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrLogDirUnwritable, err)
	}
	manual, err := openAppend(manualPath)
	if err != nil {
		full.Close()
		return nil, fmt.Errorf("%w: %v", utils.ErrLogDirUnwritable, err)
	}

	klog.V(4).Infof("Audit log opened: full=%s manual=%s", fullPath, manualPath)
	return &Log{
		clock:      opts.Clock,
		full:       full,
		manual:     manual,
		console:    opts.Console,
		fullPath:   fullPath,
		manualPath: manualPath,
	}, nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Info appends an informational entry
func (l *Log) Info(message string) {
	l.write(LevelInfo, message)
}

// Error appends a manual-intervention entry to both files
func (l *Log) Error(message string) {
	l.write(LevelError, message)
}

// Errorf appends a formatted manual-intervention entry
func (l *Log) Errorf(format string, args ...interface{}) {
	l.write(LevelError, fmt.Sprintf(format, args...))
}

func (l *Log) write(level Level, message string) {
	mapping := levelMap[level]
	mapping.mirror(message)

	l.mu.Lock()
	defer l.mu.Unlock()

	line := []byte(fmt.Sprintf("%s - %s - %s\n", l.clock.Now().Format(TimestampFormat), level, message))
	if level == LevelError {
		l.errorCount++
	}

	if l.closed {
		klog.Warningf("Audit log closed, dropping entry: %s", message)
		return
	}
	if _, err := l.full.Write(line); err != nil {
		klog.Errorf("Failed to write full log %s: %v", l.fullPath, err)
	}
	// The summary block stays last in the manual-intervention log
	if mapping.manual && l.finalized {
		klog.V(2).Infof("Entry after summary kept in full log only: %s", message)
	} else if mapping.manual {
		if _, err := l.manual.Write(line); err != nil {
			klog.Errorf("Failed to write manual-intervention log %s: %v", l.manualPath, err)
		}
	}
	if _, err := l.console.Write(line); err != nil {
		klog.V(4).Infof("Console write failed: %v", err)
	}
}

// ErrorCount returns how many manual-intervention entries were logged
func (l *Log) ErrorCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errorCount
}

// FullPath returns the full activity log location
func (l *Log) FullPath() string {
	return l.fullPath
}

// ManualPath returns the manual-intervention log location
func (l *Log) ManualPath() string {
	return l.manualPath
}

// Finalize appends the recommendation block once. Calls after the first, and
// calls against a file that already carries the sentinel, are no-ops. Existing
// entries are never rewritten.
func (l *Log) Finalize() error {
	l.mu.Lock()
	if l.finalized {
		l.mu.Unlock()
		klog.V(4).Info("Summary already written")
		return nil
	}

	present, err := l.hasSentinelLocked()
	if err != nil {
		l.mu.Unlock()
		l.Errorf("Failed to append summary to error log: %v", err)
		return err
	}
	if present {
		l.finalized = true
		l.mu.Unlock()
		return nil
	}

	mapping := levelMap[LevelInfo]
	sentence := AllClear
	if l.errorCount > 0 {
		mapping = levelMap[LevelError]
		sentence = ReviewRequired
	}

	block := fmt.Sprintf("\n%s\n%s\n", SummarySentinel, sentence)
	_, err = l.manual.WriteString(block)
	if err == nil {
		l.finalized = true
	}
	l.mu.Unlock()

	if err != nil {
		l.Errorf("Failed to append summary to error log: %v", err)
		return err
	}

	l.Info(mapping.summary)
	return nil
}

func (l *Log) hasSentinelLocked() (bool, error) {
	if l.closed {
		return false, fmt.Errorf("audit log %s already closed", l.manualPath)
	}
	data, err := os.ReadFile(l.manualPath)
	if err != nil {
		return false, err
	}
	return bytes.Contains(data, []byte(SummarySentinel)), nil
}

// Close flushes and closes both files
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	for _, f := range []*os.File{l.full, l.manual} {
		if err := f.Sync(); err != nil {
			errs = append(errs, err)
		}
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close audit log: %w", err)
	}
	return nil
}
