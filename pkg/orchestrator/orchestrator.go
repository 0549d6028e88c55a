package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
	"git.srvlab.io/whiskey/diskcheck/pkg/policy"
	"git.srvlab.io/whiskey/diskcheck/pkg/tracker"
	"git.srvlab.io/whiskey/diskcheck/pkg/volume"
)

// Separator is logged before each volume
const Separator = "----------------------------------------"

// Results the orchestrator assigns itself, alongside the policy outcomes
const (
	ResultSkippedSystem      = "skipped-system"
	ResultSkippedUnknownType = "skipped-unknown-type"
	ResultMountStateUnknown  = "mount-state-unknown"
	ResultUnmountFailed      = "unmount-failed"
	ResultInterrupted        = "interrupted"
)

// Catalog lists candidate volumes
type Catalog interface {
	List() ([]volume.Volume, error)
}

// Classifier resolves filesystem kind and mount state
type Classifier interface {
	Classify(id string) (volume.Classification, error)
	MountState(id string) (volume.MountState, error)
}

// Mounter changes mount state on the host
type Mounter interface {
	Unmount(id string) error
	Mount(id string) error
}

// Applier runs the verification policy
type Applier interface {
	Apply(v volume.Volume, mode policy.Mode) policy.Outcome
}

// Recorder receives per-volume results
type Recorder interface {
	RecordOutcome(outcome, kind string)
}

// Config wires the collaborators of an Orchestrator
type Config struct {
	Catalog    Catalog
	Classifier Classifier
	Mounter    Mounter
	Policy     Applier
	Tracker    *tracker.Tracker
	Log        policy.Logger

	// Recorder may be nil
	Recorder Recorder
}

// VolumeResult is what happened to one volume
type VolumeResult struct {
	ID       string
	Kind     volume.FilesystemKind
	Result   string
	Remounts int
}

// Report summarizes a run
type Report struct {
	Mode        policy.Mode
	Volumes     []VolumeResult
	Interrupted bool

	// ListErr is set when the catalog could not be read
	ListErr error
}

// Orchestrator runs the disk check pipeline
type Orchestrator struct {
	catalog    Catalog
	classifier Classifier
	mounter    Mounter
	policy     Applier
	tracker    *tracker.Tracker
	log        policy.Logger
	recorder   Recorder
}

// New creates an Orchestrator
func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		catalog:    cfg.Catalog,
		classifier: cfg.Classifier,
		mounter:    cfg.Mounter,
		policy:     cfg.Policy,
		tracker:    cfg.Tracker,
		log:        cfg.Log,
		recorder:   cfg.Recorder,
	}
}

// Run checks every candidate volume in mode. It stops taking new volumes once
// ctx is cancelled. Cleanup is the caller's responsibility.
func (o *Orchestrator) Run(ctx context.Context, mode policy.Mode) Report {
	report := Report{Mode: mode}
	o.log.Info(fmt.Sprintf("Starting disk checks in '%s' mode.", mode))

	volumes, err := o.catalog.List()
	if err != nil {
		o.log.Error(fmt.Sprintf("Failed to list external physical disks. Error: %s", diskutil.DiagnosticOf(err)))
		report.ListErr = err
		return report
	}

	if len(volumes) == 0 {
		o.log.Info("No external disks found to check.")
		return report
	}

	ids := make([]string, 0, len(volumes))
	for _, v := range volumes {
		ids = append(ids, v.ID)
	}
	o.log.Info(fmt.Sprintf("Found external disks: %s", strings.Join(ids, ", ")))

	for _, v := range volumes {
		if ctx.Err() != nil {
			o.log.Info(fmt.Sprintf("Run interrupted. %s was not checked.", v.ID))
			report.Interrupted = true
			report.Volumes = append(report.Volumes, VolumeResult{ID: v.ID, Result: ResultInterrupted})
			continue
		}

		result := o.checkVolume(ctx, v, mode)
		klog.V(2).Infof("Volume %s: %s", result.ID, result.Result)
		report.Volumes = append(report.Volumes, result)
	}

	if ctx.Err() != nil {
		report.Interrupted = true
		o.log.Info("Disk check interrupted.")
		return report
	}
	o.log.Info("Disk Check Completed.")
	return report
}

func (o *Orchestrator) checkVolume(ctx context.Context, v volume.Volume, mode policy.Mode) VolumeResult {
	o.log.Info(Separator)
	o.log.Info(fmt.Sprintf("Checking %s...", v.ID))
	defer o.log.Info(fmt.Sprintf("Done with %s.", v.ID))

	res := VolumeResult{ID: v.ID, Kind: volume.KindUnknown}

	if v.IsSystem {
		if v.SystemCheckErr != nil {
			o.log.Error(fmt.Sprintf("Failed to determine if %s is a system disk. Error: %s", v.ID, diskutil.DiagnosticOf(v.SystemCheckErr)))
		}
		o.log.Error(fmt.Sprintf("%s appears to be a system disk. Skipping.", v.ID))
		return o.finish(res, ResultSkippedSystem)
	}

	cl, err := o.classifier.Classify(v.ID)
	if err != nil {
		o.log.Error(fmt.Sprintf("Failed to get filesystem info for %s. Error: %s", v.ID, diskutil.DiagnosticOf(err)))
	}
	if cl.Raw == "" {
		o.log.Error(fmt.Sprintf("Unable to determine filesystem type for %s. Skipping verification.", v.ID))
		return o.finish(res, ResultSkippedUnknownType)
	}
	v.Kind, v.RawKind = cl.Kind, cl.Raw
	res.Kind = cl.Kind
	o.log.Info(fmt.Sprintf("Detected filesystem type for %s: %s", v.ID, cl.Raw))

	// Unsupported kinds never change mount state
	if !cl.Kind.Supported() {
		res.Result = o.policy.Apply(v, mode).String()
		return res
	}

	state, err := o.classifier.MountState(v.ID)
	v.MountState = state
	klog.V(4).Infof("Mount state of %s: %s", v.ID, state)

	unmounted := false
	switch state {
	case volume.Mounted:
		if !mode.Mutates() {
			o.log.Info(fmt.Sprintf("Dry run: Would attempt to unmount %s.", v.ID))
			break
		}
		o.log.Info(fmt.Sprintf("%s is mounted. Attempting to unmount...", v.ID))
		if err := o.mounter.Unmount(v.ID); err != nil {
			o.log.Error(fmt.Sprintf("Unable to unmount %s. It may be in use. Skipping verification. Error: %s", v.ID, diskutil.DiagnosticOf(err)))
			return o.finish(res, ResultUnmountFailed)
		}
		o.log.Info(fmt.Sprintf("%s unmounted successfully.", v.ID))
		o.tracker.Register(v.ID)
		unmounted = true
	case volume.Unmounted:
		o.log.Info(fmt.Sprintf("%s is not mounted. No need to unmount.", v.ID))
	default:
		o.log.Error(fmt.Sprintf("Unable to determine whether %s is mounted. Skipping verification. Error: %s", v.ID, diskutil.DiagnosticOf(err)))
		return o.finish(res, ResultMountStateUnknown)
	}

	if ctx.Err() != nil {
		o.log.Info(fmt.Sprintf("Run interrupted. Skipping verification of %s.", v.ID))
		res.Result = ResultInterrupted
	} else {
		res.Result = o.policy.Apply(v, mode).String()
	}

	switch {
	case unmounted:
		if remount(o.mounter, o.tracker, o.log, v.ID) != remountSkipped {
			res.Remounts++
		} else {
			klog.V(4).Infof("%s already handled by cleanup", v.ID)
		}
	case state == volume.Mounted && !mode.Mutates():
		o.log.Info(fmt.Sprintf("Dry run: Would attempt to remount %s.", v.ID))
	}
	return res
}

// finish records a result the policy never saw
func (o *Orchestrator) finish(res VolumeResult, result string) VolumeResult {
	res.Result = result
	if o.recorder != nil {
		o.recorder.RecordOutcome(result, res.Kind.String())
	}
	return res
}

type remountResult int

const (
	remountSkipped remountResult = iota
	remountOK
	remountFailed
)

// remount puts id back and updates the tracker. Only the caller that claims the
// remount issues the host call; failures are never retried.
func remount(m Mounter, t *tracker.Tracker, log policy.Logger, id string) remountResult {
	if !t.BeginRemount(id) {
		return remountSkipped
	}

	log.Info(fmt.Sprintf("Attempting to remount %s...", id))
	if err := m.Mount(id); err != nil {
		log.Error(fmt.Sprintf("Unable to remount %s. You may need to remount it manually. Error: %s", id, diskutil.DiagnosticOf(err)))
		t.MarkStranded(id)
		return remountFailed
	}
	log.Info(fmt.Sprintf("%s remounted successfully.", id))
	t.Release(id)
	return remountOK
}
