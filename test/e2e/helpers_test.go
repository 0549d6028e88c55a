package e2e

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"git.srvlab.io/whiskey/diskcheck/pkg/audit"
	"git.srvlab.io/whiskey/diskcheck/pkg/checker"
	"git.srvlab.io/whiskey/diskcheck/pkg/observability"
	"git.srvlab.io/whiskey/diskcheck/pkg/tracker"
	"git.srvlab.io/whiskey/diskcheck/test/mock"
)

// Constants for test configuration
const (
	defaultTimeout = 5 * time.Second
	pollInterval   = 10 * time.Millisecond
)

// env is one fully wired run against a scripted host
type env struct {
	dir     string
	host    *mock.MockHost
	clock   *fakeclock.FakeClock
	console *bytes.Buffer
	log     *audit.Log
	checker *checker.Checker
}

// newEnv wires a checker with real audit files in a temporary directory
func newEnv(host *mock.MockHost) *env {
	if host == nil {
		host = mock.NewMockHost()
	}
	dir := GinkgoT().TempDir()
	clk := fakeclock.NewFakeClock(time.Date(2026, 3, 14, 2, 0, 0, 0, time.Local))
	console := &bytes.Buffer{}

	log, err := audit.Open(audit.Options{Dir: dir, Clock: clk, Console: console})
	Expect(err).NotTo(HaveOccurred(), "Failed to open audit log")
	DeferCleanup(log.Close)

	c, err := checker.New(checker.Config{
		Host:            host,
		Log:             log,
		RunID:           testRunID,
		Clock:           clk,
		Metrics:         observability.NewMetrics(),
		MetricsTextfile: filepath.Join(dir, "diskcheck.prom"),
		StateStore:      tracker.NewFileStore(filepath.Join(dir, tracker.StateFileName), testRunID),
	})
	Expect(err).NotTo(HaveOccurred(), "Failed to create checker")

	return &env{dir: dir, host: host, clock: clk, console: console, log: log, checker: c}
}

// manualLog returns the manual-intervention log contents
func (e *env) manualLog() string {
	data, err := os.ReadFile(e.log.ManualPath())
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

// fullLog returns the full activity log contents
func (e *env) fullLog() string {
	data, err := os.ReadFile(e.log.FullPath())
	Expect(err).NotTo(HaveOccurred())
	return string(data)
}

// messages returns the messages of full-log entries of level, in order
func (e *env) messages(level string) []string {
	var out []string
	marker := " - " + level + " - "
	for _, line := range strings.Split(e.fullLog(), "\n") {
		if i := strings.Index(line, marker); i >= 0 {
			out = append(out, line[i+len(marker):])
		}
	}
	return out
}

// expectSingleSummary asserts one summary block with the given sentence
func (e *env) expectSingleSummary(sentence string) {
	manual := e.manualLog()
	Expect(strings.Count(manual, audit.SummarySentinel)).To(Equal(1), "exactly one summary block")
	Expect(strings.TrimRight(manual, "\n")).To(HaveSuffix(audit.SummarySentinel + "\n" + sentence))
}

// waitForSummary waits for an asynchronous cleanup to finalize the log
func (e *env) waitForSummary() {
	Eventually(func() string {
		return e.manualLog()
	}, defaultTimeout, pollInterval).Should(ContainSubstring(audit.SummarySentinel))
}
