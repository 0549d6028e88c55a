package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.srvlab.io/whiskey/diskcheck/pkg/volume"
	"git.srvlab.io/whiskey/diskcheck/test/mock"
)

type outcomeRecorder struct {
	outcomes []string
}

func (r *outcomeRecorder) RecordOutcome(outcome, kind string) {
	r.outcomes = append(r.outcomes, outcome+"/"+kind)
}

func TestDispatchTableIsExhaustive(t *testing.T) {
	for kind := volume.KindUnknown; kind <= volume.KindOther; kind++ {
		_, ok := actions[kind]
		assert.True(t, ok, "no action for %s", kind)
	}
}

func TestApply_Verified(t *testing.T) {
	host := mock.NewMockHost().AddExternalVolume("disk4s1", "exfat", false)
	log := mock.NewMockLog()
	rec := &outcomeRecorder{}

	out := New(host, log, rec).Apply(volume.Volume{ID: "disk4s1", Kind: volume.KindExFAT, RawKind: "exfat"}, ModeNormal)

	assert.Equal(t, OutcomeVerified, out)
	assert.Equal(t, []string{mock.OpVerify}, host.CallsFor("disk4s1"))
	assert.Equal(t, []string{
		"Verifying disk4s1 with filesystem type exfat...",
		"disk4s1 verification succeeded.",
	}, log.Infos())
	assert.Empty(t, log.Errors())
	assert.Equal(t, []string{"verified/exfat"}, rec.outcomes)
}

func TestApply_Repaired(t *testing.T) {
	host := mock.NewMockHost().AddExternalVolume("disk2s1", "apfs", false)
	host.Fail(mock.OpVerify, "disk2s1", "error: Invalid B-tree node size\nThe volume disk2s1 could not be verified completely.")
	log := mock.NewMockLog()

	out := New(host, log, nil).Apply(volume.Volume{ID: "disk2s1", Kind: volume.KindAPFS, RawKind: "apfs"}, ModeNonInteractive)

	assert.Equal(t, OutcomeRepaired, out)
	assert.Equal(t, []string{mock.OpVerify, mock.OpRepair}, host.CallsFor("disk2s1"))
	require.Len(t, log.Errors(), 1)
	assert.Equal(t, "disk2s1 verification found issues: error: Invalid B-tree node size The volume disk2s1 could not be verified completely.", log.Errors()[0])
	assert.True(t, log.HasMessage("INFO", "Attempting to repair disk2s1..."))
	assert.True(t, log.HasMessage("INFO", "disk2s1 repair succeeded."))
}

func TestApply_RepairFailed(t *testing.T) {
	host := mock.NewMockHost().AddExternalVolume("disk2s1", "hfs", false)
	host.Fail(mock.OpVerify, "disk2s1", "Invalid volume file count")
	host.Fail(mock.OpRepair, "disk2s1", "The volume disk2s1 could not be repaired")
	log := mock.NewMockLog()
	rec := &outcomeRecorder{}

	out := New(host, log, rec).Apply(volume.Volume{ID: "disk2s1", Kind: volume.KindHFS, RawKind: "hfs"}, ModeNormal)

	assert.Equal(t, OutcomeFailed, out)
	assert.Equal(t, []string{
		"disk2s1 verification found issues: Invalid volume file count",
		"Error: disk2s1 repair failed. Manual intervention may be required: The volume disk2s1 could not be repaired",
	}, log.Errors())
	assert.Equal(t, []string{"failed/hfs"}, rec.outcomes)
}

func TestApply_DryRun(t *testing.T) {
	host := mock.NewMockHost().AddExternalVolume("disk2s1", "apfs", true)
	log := mock.NewMockLog()

	out := New(host, log, nil).Apply(volume.Volume{ID: "disk2s1", Kind: volume.KindAPFS, RawKind: "APFS"}, ModeDryRun)

	assert.Equal(t, OutcomeSkipped, out)
	assert.Empty(t, host.Calls())
	assert.Equal(t, []string{"Dry run: Would verify disk2s1 with filesystem type apfs."}, log.Infos())
}

func TestApply_Unsupported(t *testing.T) {
	tests := []struct {
		name     string
		vol      volume.Volume
		expected string
	}{
		{
			name:     "ntfs",
			vol:      volume.Volume{ID: "disk3s2", Kind: volume.KindNTFS, RawKind: "ntfs"},
			expected: "Unsupported filesystem type 'ntfs' for disk3s2. Skipping verification.",
		},
		{
			name:     "unrecognised type string",
			vol:      volume.Volume{ID: "disk5s1", Kind: volume.KindUnknown, RawKind: "zfs"},
			expected: "Unsupported filesystem type 'zfs' for disk5s1. Skipping verification.",
		},
		{
			name:     "no type string",
			vol:      volume.Volume{ID: "disk6s1", Kind: volume.KindUnknown},
			expected: "Unsupported filesystem type 'unknown' for disk6s1. Skipping verification.",
		},
	}

	for _, tt := range tests {
		for _, mode := range []Mode{ModeNormal, ModeDryRun, ModeNonInteractive} {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				host := mock.NewMockHost()
				log := mock.NewMockLog()

				out := New(host, log, nil).Apply(tt.vol, mode)

				assert.Equal(t, OutcomeSkippedUnsupported, out)
				assert.Empty(t, host.Calls())
				assert.Equal(t, []string{tt.expected}, log.Errors())
				assert.Empty(t, log.Infos())
			})
		}
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "skipped-unsupported", OutcomeSkippedUnsupported.String())
	assert.Equal(t, "Outcome(42)", Outcome(42).String())
}
