package policy

import (
	"fmt"

	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
	"git.srvlab.io/whiskey/diskcheck/pkg/volume"
)

// Outcome is the result of applying the policy to one volume
type Outcome int

const (
	OutcomeVerified Outcome = iota
	OutcomeRepaired
	OutcomeSkipped
	OutcomeSkippedUnsupported
	OutcomeFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeVerified:           "verified",
	OutcomeRepaired:           "repaired",
	OutcomeSkipped:            "skipped",
	OutcomeSkippedUnsupported: "skipped-unsupported",
	OutcomeFailed:             "failed",
}

// String returns the outcome name used in logs and metrics
func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Checker is the part of the host capability the policy uses
type Checker interface {
	Verify(id string) error
	Repair(id string) error
}

// Logger receives audit entries
type Logger interface {
	Info(message string)
	Error(message string)
}

// Recorder receives per-volume outcomes
type Recorder interface {
	RecordOutcome(outcome, kind string)
}

// action handles one volume for a given kind
type action func(p *Policy, v volume.Volume, mode Mode) Outcome

// actions is the dispatch table. Every FilesystemKind has an entry.
var actions = map[volume.FilesystemKind]action{
	volume.KindAPFS:    (*Policy).verifyAndRepair,
	volume.KindHFS:     (*Policy).verifyAndRepair,
	volume.KindHFSPlus: (*Policy).verifyAndRepair,
	volume.KindMSDOS:   (*Policy).verifyAndRepair,
	volume.KindExFAT:   (*Policy).verifyAndRepair,
	volume.KindFAT32:   (*Policy).verifyAndRepair,

	volume.KindUnknown:      (*Policy).skipUnsupported,
	volume.KindNTFS:         (*Policy).skipUnsupported,
	volume.KindExt4:         (*Policy).skipUnsupported,
	volume.KindBtrfs:        (*Policy).skipUnsupported,
	volume.KindXFS:          (*Policy).skipUnsupported,
	volume.KindISO9660:      (*Policy).skipUnsupported,
	volume.KindNetworkShare: (*Policy).skipUnsupported,
	volume.KindFuseBacked:   (*Policy).skipUnsupported,
	volume.KindOther:        (*Policy).skipUnsupported,
}

// Policy verifies and repairs volumes through the host
type Policy struct {
	host     Checker
	log      Logger
	recorder Recorder
}

// New creates a Policy. recorder may be nil.
func New(host Checker, log Logger, recorder Recorder) *Policy {
	return &Policy{host: host, log: log, recorder: recorder}
}

// Apply runs the action for v's kind in mode and returns its outcome
func (p *Policy) Apply(v volume.Volume, mode Mode) Outcome {
	act, ok := actions[v.Kind]
	if !ok {
		act = (*Policy).skipUnsupported
	}

	klog.V(4).Infof("Applying policy to %s (kind=%s, mode=%s)", v.ID, v.Kind, mode)
	outcome := act(p, v, mode)
	klog.V(2).Infof("Policy outcome for %s: %s", v.ID, outcome)

	if p.recorder != nil {
		p.recorder.RecordOutcome(outcome.String(), v.Kind.String())
	}
	return outcome
}

func (p *Policy) skipUnsupported(v volume.Volume, _ Mode) Outcome {
	p.log.Error(fmt.Sprintf("Unsupported filesystem type '%s' for %s. Skipping verification.", v.KindLabel(), v.ID))
	return OutcomeSkippedUnsupported
}

func (p *Policy) verifyAndRepair(v volume.Volume, mode Mode) Outcome {
	kind := v.KindLabel()

	if !mode.Mutates() {
		p.log.Info(fmt.Sprintf("Dry run: Would verify %s with filesystem type %s.", v.ID, kind))
		return OutcomeSkipped
	}

	p.log.Info(fmt.Sprintf("Verifying %s with filesystem type %s...", v.ID, kind))
	err := p.host.Verify(v.ID)
	if err == nil {
		p.log.Info(fmt.Sprintf("%s verification succeeded.", v.ID))
		return OutcomeVerified
	}
	p.log.Error(fmt.Sprintf("%s verification found issues: %s", v.ID, diskutil.DiagnosticOf(err)))

	p.log.Info(fmt.Sprintf("Attempting to repair %s...", v.ID))
	if err := p.host.Repair(v.ID); err != nil {
		p.log.Error(fmt.Sprintf("Error: %s repair failed. Manual intervention may be required: %s", v.ID, diskutil.DiagnosticOf(err)))
		return OutcomeFailed
	}
	p.log.Info(fmt.Sprintf("%s repair succeeded.", v.ID))
	return OutcomeRepaired
}
