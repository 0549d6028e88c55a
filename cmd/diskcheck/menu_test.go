package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.srvlab.io/whiskey/diskcheck/pkg/policy"
)

func TestPromptMode(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMode    policy.Mode
		wantProceed bool
		wantInvalid int
	}{
		{name: "run normally", input: "1\n", wantMode: policy.ModeNormal, wantProceed: true},
		{name: "dry run", input: "2\n", wantMode: policy.ModeDryRun, wantProceed: true},
		{name: "non-interactive", input: "3\n", wantMode: policy.ModeNonInteractive, wantProceed: true},
		{name: "exit", input: "4\n", wantProceed: false},
		{name: "whitespace tolerated", input: "  2 \n", wantMode: policy.ModeDryRun, wantProceed: true},
		{name: "invalid choices re-prompt", input: "9\nabc\n\n3\n", wantMode: policy.ModeNonInteractive, wantProceed: true, wantInvalid: 3},
		{name: "closed stdin exits", input: "", wantProceed: false},
		{name: "closed stdin after invalid", input: "0\n", wantProceed: false, wantInvalid: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			mode, proceed, err := promptMode(strings.NewReader(tt.input), out)
			require.NoError(t, err)

			assert.Equal(t, tt.wantProceed, proceed)
			if tt.wantProceed {
				assert.Equal(t, tt.wantMode, mode)
			} else {
				assert.Contains(t, out.String(), "Exiting.")
			}
			assert.Equal(t, tt.wantInvalid, strings.Count(out.String(), "Invalid choice."))
			assert.Equal(t, tt.wantInvalid+1, strings.Count(out.String(), "Enter your choice [1-4]: "))
		})
	}
}
