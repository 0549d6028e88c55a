package policy

import (
	"fmt"

	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

// Mode is how a run treats the host
type Mode int

const (
	// ModeNormal acts on volumes after the interactive menu
	ModeNormal Mode = iota

	// ModeDryRun reports intended actions without any host mutation
	ModeDryRun

	// ModeNonInteractive acts on volumes like ModeNormal, without the menu
	ModeNonInteractive
)

// String returns the mode name used in logs and metrics
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeDryRun:
		return "dry-run"
	case ModeNonInteractive:
		return "non-interactive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Mutates reports whether the mode may invoke state-changing host operations
func (m Mode) Mutates() bool {
	return m != ModeDryRun
}

// ModeFromFlags resolves the requested mode. interactive is true when neither
// flag was given and the caller must ask the operator.
func ModeFromFlags(dryRun, nonInteractive bool) (mode Mode, interactive bool, err error) {
	switch {
	case dryRun && nonInteractive:
		return ModeNormal, false, fmt.Errorf("%w: --dry-run and --non-interactive cannot be combined", utils.ErrConflictingModes)
	case dryRun:
		return ModeDryRun, false, nil
	case nonInteractive:
		return ModeNonInteractive, false, nil
	default:
		return ModeNormal, true, nil
	}
}
