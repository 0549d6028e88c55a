package mock

import (
	"strings"
	"sync"
)

// Entry is one recorded audit entry
type Entry struct {
	Level   string
	Message string
}

// MockLog is an in-memory audit log for testing
type MockLog struct {
	mu sync.Mutex

	entries   []Entry
	summaries []string

	finalizeErr error
}

// NewMockLog creates an empty mock log
func NewMockLog() *MockLog {
	return &MockLog{}
}

// Info records an INFO entry
func (l *MockLog) Info(message string) {
	l.add("INFO", message)
}

// Error records an ERROR entry
func (l *MockLog) Error(message string) {
	l.add("ERROR", message)
}

func (l *MockLog) add(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{Level: level, Message: message})
}

// ErrorCount returns the number of ERROR entries
func (l *MockLog) ErrorCount() int {
	return len(l.Errors())
}

// Finalize records a summary block once
func (l *MockLog) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finalizeErr != nil {
		return l.finalizeErr
	}
	if len(l.summaries) > 0 {
		return nil
	}

	summary := "all-clear"
	for _, e := range l.entries {
		if e.Level == "ERROR" {
			summary = "review-required"
			break
		}
	}
	l.summaries = append(l.summaries, summary)
	return nil
}

// SetFinalizeError makes Finalize fail
func (l *MockLog) SetFinalizeError(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finalizeErr = err
}

// Test helper methods

// Entries returns every entry in order
func (l *MockLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Messages returns the messages of the given level ("" for all)
func (l *MockLog) Messages(level string) []string {
	var out []string
	for _, e := range l.Entries() {
		if level == "" || e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Errors returns the ERROR messages
func (l *MockLog) Errors() []string {
	return l.Messages("ERROR")
}

// Infos returns the INFO messages
func (l *MockLog) Infos() []string {
	return l.Messages("INFO")
}

// Summaries returns the recorded summary kinds
func (l *MockLog) Summaries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.summaries...)
}

// HasMessage reports whether any entry of level contains substr
func (l *MockLog) HasMessage(level, substr string) bool {
	for _, m := range l.Messages(level) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// CountMessages returns how many entries of level contain substr
func (l *MockLog) CountMessages(level, substr string) int {
	n := 0
	for _, m := range l.Messages(level) {
		if strings.Contains(m, substr) {
			n++
		}
	}
	return n
}
