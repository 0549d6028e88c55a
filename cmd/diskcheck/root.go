package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/audit"
	"git.srvlab.io/whiskey/diskcheck/pkg/checker"
	"git.srvlab.io/whiskey/diskcheck/pkg/config"
	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
	"git.srvlab.io/whiskey/diskcheck/pkg/observability"
	"git.srvlab.io/whiskey/diskcheck/pkg/policy"
	"git.srvlab.io/whiskey/diskcheck/pkg/preflight"
	"git.srvlab.io/whiskey/diskcheck/pkg/tracker"
	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

// app holds the process-level collaborators of the command
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// exit terminates the process from the interrupt path
	exit func(code int)

	newHost    func(path string) diskutil.Host
	mountProbe diskutil.MountProbe
	env        preflight.Env
	clock      clock.Clock
	newRunID   func() string
}

func newApp() *app {
	return &app{
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		exit:       os.Exit,
		newHost:    diskutil.NewHost,
		mountProbe: diskutil.KernelMountTable,
		clock:      clock.NewClock(),
		newRunID:   uuid.NewString,
	}
}

type options struct {
	dryRun         bool
	nonInteractive bool
	configPath     string
	logDir         string

	// started is set once flag parsing and validation passed
	started bool
}

// execute runs the command line and returns the process exit status
func execute(a *app, args []string) int {
	opts := &options{}
	cmd := a.newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.Execute()
	if err == nil {
		return 0
	}

	// Only command-line mistakes and startup preconditions fail the process
	if opts.started && utils.Classify(err) != utils.ClassStartupFatal {
		klog.Errorf("Run completed with errors: %v", err)
		fmt.Fprintf(a.stderr, "Warning: %v\n", err)
		return 0
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return 1
}

func (a *app) newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diskcheck",
		Short: "Verify and repair filesystems on external volumes",
		Long: `diskcheck verifies the filesystem of every external physical volume, repairs
what verification flags, and writes a full activity log plus a log of the
conditions that need manual intervention.

Without --dry-run or --non-interactive a menu asks how to run.`,
		Version: checker.Version(),
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return fmt.Errorf("%w: %v", utils.ErrUsage, err)
			}
			return nil
		},
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Usage is for flag mistakes only
			cmd.SilenceUsage = true
			opts.started = true
			return a.run(cmd, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", utils.ErrUsage, err)
	})

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Simulate actions without making changes")
	cmd.Flags().BoolVar(&opts.nonInteractive, "non-interactive", false, "Run without any interactive prompts")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "non-interactive")

	cmd.Flags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the YAML config file")
	cmd.Flags().StringVar(&opts.logDir, "log-dir", "", "Directory for the audit logs (overrides log_dir)")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	cmd.Flags().AddGoFlagSet(klogFlags)

	return cmd
}

func (a *app) run(cmd *cobra.Command, opts *options) error {
	mode, interactive, err := policy.ModeFromFlags(opts.dryRun, opts.nonInteractive)
	if err != nil {
		return err
	}

	overrides := map[string]interface{}{}
	if cmd.Flags().Changed("log-dir") {
		overrides[config.KeyLogDir] = opts.logDir
	}
	cfg, err := config.Load(config.Options{
		Path:      opts.configPath,
		Explicit:  cmd.Flags().Changed("config"),
		Overrides: overrides,
	})
	if err != nil {
		return err
	}

	runID := a.newRunID()
	log, err := audit.Open(audit.Options{Dir: cfg.LogDir, Clock: a.clock, Console: a.stdout})
	if err != nil {
		return err
	}
	defer func() {
		if err := log.Close(); err != nil {
			klog.Warningf("Failed to close audit log: %v", err)
		}
	}()

	log.Info(fmt.Sprintf("diskcheck %s, run %s.", checker.Version(), runID))
	log.Info(fmt.Sprintf("Logging to %s and %s.", log.FullPath(), log.ManualPath()))

	pf := preflight.New(log, a.env)
	if err := pf.CheckCommands(cfg.RequiredCommands); err != nil {
		return abort(log, err)
	}
	if err := pf.CheckPrivilege(); err != nil {
		return abort(log, err)
	}

	var metrics *observability.Metrics
	if cfg.MetricsTextfile != "" {
		metrics = observability.NewMetrics()
	}

	c, err := checker.New(checker.Config{
		Host:            a.newHost(cfg.DiskutilPath),
		MountProbe:      a.mountProbe,
		Log:             log,
		RunID:           runID,
		Clock:           a.clock,
		Metrics:         metrics,
		MetricsTextfile: cfg.MetricsTextfile,
		StateStore:      tracker.NewFileStore(cfg.StatePath(), runID),
	})
	if err != nil {
		return abort(log, fmt.Errorf("%w: %v", utils.ErrInvalidConfig, err))
	}

	stop := c.Start(a.exit)
	defer stop()

	if interactive {
		var proceed bool
		mode, proceed, err = promptMode(a.stdin, a.stdout)
		if err != nil {
			klog.Errorf("Menu failed: %v", err)
		}
		if !proceed {
			return c.Cleanup("exit selected")
		}
	}

	report, err := c.Run(mode)
	if err != nil {
		return fmt.Errorf("finalizing audit log: %w", err)
	}

	klog.V(2).Infof("Run %s finished in %s mode: %d volumes, interrupted=%v, %d manual entries",
		runID, report.Mode, len(report.Volumes), report.Interrupted, log.ErrorCount())
	return nil
}

// abort closes a run that failed a startup precondition. The summary block is
// still written so the manual-intervention log explains the failure.
func abort(log *audit.Log, cause error) error {
	if err := log.Finalize(); err != nil {
		klog.Errorf("Failed to finalize audit log: %v", err)
	}
	return cause
}
