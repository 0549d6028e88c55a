package volume

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.srvlab.io/whiskey/diskcheck/test/mock"
)

func TestClassify(t *testing.T) {
	host := mock.NewMockHost().
		AddExternalVolume("disk2s1", "APFS", true).
		AddExternalVolume("disk3s2", "ntfs", true).
		AddExternalVolume("disk4s1", "", false).
		AddExternalVolume("disk5s1", "mysteryfs", false)

	c := NewClassifier(host, nil)

	tests := []struct {
		id       string
		kind     FilesystemKind
		raw      string
		expected bool
	}{
		{id: "disk2s1", kind: KindAPFS, raw: "APFS"},
		{id: "disk3s2", kind: KindNTFS, raw: "ntfs"},
		{id: "disk4s1", kind: KindUnknown, raw: ""},
		{id: "disk5s1", kind: KindUnknown, raw: "mysteryfs"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			cl, err := c.Classify(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, cl.Kind)
			assert.Equal(t, tt.raw, cl.Raw)
		})
	}

	assert.Empty(t, host.MutationCalls(), "classification is read-only")
}

func TestClassifyDescribeFailure(t *testing.T) {
	host := mock.NewMockHost().AddExternalVolume("disk2s1", "apfs", true)
	host.Fail(mock.OpDescribe, "disk2s1", "Could not find disk: disk2s1")

	cl, err := NewClassifier(host, nil).Classify("disk2s1")
	require.Error(t, err)
	assert.Equal(t, KindUnknown, cl.Kind)
	assert.Empty(t, cl.Raw)
}

func TestMountState(t *testing.T) {
	tests := []struct {
		name     string
		mounted  bool
		probe    func(string) (bool, error)
		expected MountState
	}{
		{name: "diskutil says mounted", mounted: true, expected: Mounted},
		{name: "diskutil says unmounted", mounted: false, expected: Unmounted},
		{
			name:     "mount table upgrades to mounted",
			mounted:  false,
			probe:    func(string) (bool, error) { return true, nil },
			expected: Mounted,
		},
		{
			name:     "mount table failure falls back to diskutil",
			mounted:  false,
			probe:    func(string) (bool, error) { return false, errors.New("getfsstat failed") },
			expected: Unmounted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := mock.NewMockHost().AddExternalVolume("disk2s1", "apfs", tt.mounted)
			state, err := NewClassifier(host, tt.probe).MountState("disk2s1")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, state)
		})
	}
}

func TestMountStateDescribeFailure(t *testing.T) {
	host := mock.NewMockHost().AddExternalVolume("disk2s1", "apfs", true)
	host.SetError(mock.OpDescribe, "disk2s1", errors.New("boom"))

	state, err := NewClassifier(host, nil).MountState("disk2s1")
	require.Error(t, err)
	assert.Equal(t, MountUnknown, state)
}
