package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDiskIdentifier(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		expectErr bool
	}{
		{name: "whole disk", id: "disk2", expectErr: false},
		{name: "partition", id: "disk2s1", expectErr: false},
		{name: "device node", id: "/dev/disk4s2", expectErr: false},
		{name: "raw device node", id: "/dev/rdisk3", expectErr: false},
		{name: "snapshot slice", id: "disk5s1s1", expectErr: false},
		{name: "empty", id: "", expectErr: true},
		{name: "command injection", id: "disk2; rm -rf /", expectErr: true},
		{name: "command substitution", id: "disk$(id)", expectErr: true},
		{name: "path traversal", id: "/dev/../etc/passwd", expectErr: true},
		{name: "linux device", id: "/dev/sda1", expectErr: true},
		{name: "trailing space", id: "disk2 ", expectErr: true},
		{name: "too many slices", id: "disk1s1s1s1s1", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDiskIdentifier(tt.id)
			if tt.expectErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidIdentifier))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestBareIdentifierAndDeviceNode(t *testing.T) {
	assert.Equal(t, "disk2s1", BareIdentifier("/dev/disk2s1"))
	assert.Equal(t, "disk2s1", BareIdentifier("disk2s1"))
	assert.Equal(t, "/dev/disk2s1", DeviceNode("disk2s1"))
	assert.Equal(t, "/dev/disk2s1", DeviceNode("/dev/disk2s1"))
}

func TestValidateCommandName(t *testing.T) {
	tests := []struct {
		name      string
		command   string
		expectErr bool
	}{
		{name: "bare name", command: "diskutil", expectErr: false},
		{name: "absolute path", command: "/usr/sbin/diskutil", expectErr: false},
		{name: "empty", command: "", expectErr: true},
		{name: "argument smuggling", command: "diskutil list", expectErr: true},
		{name: "command chaining", command: "diskutil;id", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCommandName(tt.command)
			if tt.expectErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
				return
			}
			assert.NoError(t, err)
		})
	}
}
