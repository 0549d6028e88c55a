package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"code.cloudfoundry.org/clock"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/audit"
	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
	"git.srvlab.io/whiskey/diskcheck/pkg/observability"
	"git.srvlab.io/whiskey/diskcheck/pkg/orchestrator"
	"git.srvlab.io/whiskey/diskcheck/pkg/policy"
	"git.srvlab.io/whiskey/diskcheck/pkg/tracker"
	"git.srvlab.io/whiskey/diskcheck/pkg/volume"
)

// These will be set via ldflags during build
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// Version returns the build identification
func Version() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildDate)
}

// Log is the audit log as seen by a run
type Log interface {
	orchestrator.Finalizer
}

// Config contains configuration for creating a Checker
type Config struct {
	// Host is the disk capability (required)
	Host diskutil.Host

	// MountProbe cross-checks mount state against the kernel table (optional)
	MountProbe diskutil.MountProbe

	// Log is the opened audit log (required)
	Log Log

	// RunID identifies this run in logs, state and metrics
	RunID string

	// Clock supplies time; defaults to the real clock
	Clock clock.Clock

	// Prometheus metrics (optional, nil to disable)
	Metrics *observability.Metrics

	// MetricsTextfile is written at cleanup when Metrics is set
	MetricsTextfile string

	// StateStore persists the tracked set for crash recovery (optional)
	StateStore *tracker.FileStore
}

// Checker owns the state of one run
type Checker struct {
	runID   string
	clock   clock.Clock
	started time.Time

	log             Log
	metrics         *observability.Metrics
	metricsTextfile string
	store           *tracker.FileStore

	tracker      *tracker.Tracker
	orchestrator *orchestrator.Orchestrator
	cleanup      *orchestrator.Cleanup

	// ctx is cancelled when cleanup starts
	ctx context.Context

	mu   sync.Mutex
	mode string
}

// New creates a Checker
func New(config Config) (*Checker, error) {
	if config.Host == nil {
		return nil, errors.New("host capability is required")
	}
	if config.Log == nil {
		return nil, errors.New("audit log is required")
	}
	if config.Clock == nil {
		config.Clock = clock.NewClock()
	}

	host := config.Host
	var recorder orchestrator.Recorder
	if config.Metrics != nil {
		host = diskutil.Instrument(host, config.Metrics)
		recorder = config.Metrics
	}

	var persister tracker.Persister
	if config.StateStore != nil {
		persister = config.StateStore
	}

	ctx, cancel := context.WithCancel(context.Background())
	tr := tracker.New(config.Clock, persister)

	var policyRecorder policy.Recorder
	if recorder != nil {
		policyRecorder = recorder
	}

	c := &Checker{
		runID:           config.RunID,
		clock:           config.Clock,
		started:         config.Clock.Now(),
		log:             config.Log,
		metrics:         config.Metrics,
		metricsTextfile: config.MetricsTextfile,
		store:           config.StateStore,
		tracker:         tr,
		orchestrator: orchestrator.New(orchestrator.Config{
			Catalog:    volume.NewCatalog(host),
			Classifier: volume.NewClassifier(host, config.MountProbe),
			Mounter:    host,
			Policy:     policy.New(host, config.Log, policyRecorder),
			Tracker:    tr,
			Log:        config.Log,
			Recorder:   recorder,
		}),
		cleanup: orchestrator.NewCleanup(host, tr, config.Log, cancel),
		ctx:     ctx,
		mode:    "none",
	}
	c.cleanup.OnFinish(c.recordRun)

	klog.V(2).Infof("Checker created (run %s, version %s)", c.runID, Version())
	return c, nil
}

// ReportStale logs volumes a previous run left unmounted as manual-intervention
// entries and resets the state file. It returns how many were found.
func (c *Checker) ReportStale() int {
	if c.store == nil {
		return 0
	}

	entries, err := c.store.Load()
	if err != nil {
		c.log.Error(fmt.Sprintf("Unable to read the state left by a previous run: %v", err))
	}
	for _, e := range entries {
		c.log.Error(fmt.Sprintf("%s was left unmounted by a previous run (since %s). Verify it and remount it manually.",
			e.ID, e.UnmountedAt.Format(audit.TimestampFormat)))
	}
	if c.metrics != nil {
		c.metrics.RecordStaleVolumes(len(entries))
	}

	if err := c.store.Reset(); err != nil {
		klog.Warningf("Failed to reset state file %s: %v", c.store.Path(), err)
	}
	return len(entries)
}

// Watch installs the interrupt handler for SIGINT, SIGTERM and SIGHUP. On a
// signal it runs cleanup and calls exit(0).
func (c *Checker) Watch(exit func(code int)) (stop func()) {
	return c.cleanup.Watch(exit, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}

// Start installs the interrupt handler and then reports stale state, so a
// signal during the report still finalizes the audit log.
func (c *Checker) Start(exit func(code int)) (stop func()) {
	stop = c.Watch(exit)
	c.ReportStale()
	return stop
}

// Run checks every candidate volume in mode, then runs cleanup
func (c *Checker) Run(mode policy.Mode) (orchestrator.Report, error) {
	c.mu.Lock()
	c.mode = mode.String()
	c.mu.Unlock()

	report := c.orchestrator.Run(c.ctx, mode)
	err := c.Cleanup("run completed")
	return report, err
}

// Cleanup remounts pending volumes and finalizes the audit log, once
func (c *Checker) Cleanup(reason string) error {
	return c.cleanup.Run(reason)
}

// Tracker returns the remount tracker
func (c *Checker) Tracker() *tracker.Tracker {
	return c.tracker
}

func (c *Checker) recordRun(reason string) {
	if c.metrics == nil {
		return
	}

	c.mu.Lock()
	mode := c.mode
	c.mu.Unlock()

	c.metrics.RecordRun(observability.RunSummary{
		RunID:         c.runID,
		Mode:          mode,
		Reason:        reason,
		Started:       c.started,
		Finished:      c.clock.Now(),
		Stranded:      len(c.tracker.Stranded()),
		ManualEntries: c.log.ErrorCount(),
	})
	if err := c.metrics.WriteTextfile(c.metricsTextfile); err != nil {
		klog.Warningf("Failed to write metrics textfile: %v", err)
	}
}
