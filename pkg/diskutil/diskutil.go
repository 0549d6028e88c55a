package diskutil

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"howett.net/plist"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

// DefaultPath is where diskutil lives on macOS
const DefaultPath = "/usr/sbin/diskutil"

// Host is the disk-management capability the checker delegates to
type Host interface {
	// ListExternal lists externally attached, physically backed disks
	ListExternal() (*Listing, error)

	// ListAll lists every disk known to the host, including internal boot media
	ListAll() (*Listing, error)

	// Describe returns the description of a single volume
	Describe(id string) (*DiskInfo, error)

	// Unmount unmounts a volume
	Unmount(id string) error

	// Mount mounts a volume
	Mount(id string) error

	// Verify checks a volume's filesystem without modifying it
	Verify(id string) error

	// Repair repairs a volume's filesystem
	Repair(id string) error
}

// CommandError is returned when a diskutil invocation fails.
// Output holds everything the tool printed and is meant to be logged verbatim.
type CommandError struct {
	Op         string
	Identifier string
	Output     []byte
	Err        error
}

// Error implements the error interface
func (e *CommandError) Error() string {
	target := e.Identifier
	if target == "" {
		target = "(all)"
	}
	return fmt.Sprintf("diskutil %s %s failed: %v, output: %s", e.Op, target, e.Err, utils.Diagnostic(e.Output))
}

// Unwrap exposes both the exec error and the matching sentinel
func (e *CommandError) Unwrap() []error {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return []error{utils.ErrHostCommandFailed, e.Err}
	}
	return []error{utils.ErrHostUnavailable, e.Err}
}

// Diagnostic returns the tool output flattened to one line
func (e *CommandError) Diagnostic() string {
	return utils.Diagnostic(e.Output)
}

// DiagnosticOf extracts the host diagnostic from err, falling back to err's text
func DiagnosticOf(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Diagnostic()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// diskutil implements Host by running the diskutil binary
type diskutil struct {
	path        string
	execCommand func(name string, args ...string) *exec.Cmd
}

// NewHost creates a Host backed by the diskutil binary at path
func NewHost(path string) Host {
	if path == "" {
		path = DefaultPath
	}
	return &diskutil{
		path:        path,
		execCommand: exec.Command,
	}
}

// ListExternal runs "diskutil list -plist external physical"
func (d *diskutil) ListExternal() (*Listing, error) {
	return d.list("external", "physical")
}

// ListAll runs "diskutil list -plist"
func (d *diskutil) ListAll() (*Listing, error) {
	return d.list()
}

func (d *diskutil) list(filter ...string) (*Listing, error) {
	args := append([]string{"list", "-plist"}, filter...)
	output, err := d.query("list", "", args...)
	if err != nil {
		return nil, err
	}

	var listing Listing
	if _, err := plist.Unmarshal(output, &listing); err != nil {
		return nil, fmt.Errorf("%w: decoding diskutil list: %v", utils.ErrMalformedOutput, err)
	}

	klog.V(4).Infof("diskutil list %v returned %d disks", filter, len(listing.AllDisksAndPartitions))
	return &listing, nil
}

// Describe runs "diskutil info -plist <id>"
func (d *diskutil) Describe(id string) (*DiskInfo, error) {
	if err := utils.ValidateDiskIdentifier(id); err != nil {
		return nil, err
	}

	klog.V(4).Infof("Describing %s", id)
	output, err := d.query("info", id, "info", "-plist", id)
	if err != nil {
		return nil, err
	}

	var info DiskInfo
	if _, err := plist.Unmarshal(output, &info); err != nil {
		return nil, fmt.Errorf("%w: decoding diskutil info %s: %v", utils.ErrMalformedOutput, id, err)
	}
	return &info, nil
}

// Unmount runs "diskutil unmount <id>"
func (d *diskutil) Unmount(id string) error {
	return d.mutate("unmount", id)
}

// Mount runs "diskutil mount <id>"
func (d *diskutil) Mount(id string) error {
	return d.mutate("mount", id)
}

// Verify runs "diskutil verifyVolume <id>"
func (d *diskutil) Verify(id string) error {
	return d.mutate("verifyVolume", id)
}

// Repair runs "diskutil repairVolume <id>"
func (d *diskutil) Repair(id string) error {
	return d.mutate("repairVolume", id)
}

// mutate runs a state-changing verb and captures combined output for diagnostics
func (d *diskutil) mutate(verb, id string) error {
	if err := utils.ValidateDiskIdentifier(id); err != nil {
		return err
	}

	klog.V(5).Infof("Executing: %s %s %s", d.path, verb, id)
	cmd := d.execCommand(d.path, verb, id)
	output, err := cmd.CombinedOutput()
	klog.V(5).Infof("diskutil %s output: %s", verb, string(output))
	if err != nil {
		return &CommandError{Op: verb, Identifier: id, Output: output, Err: err}
	}

	klog.V(2).Infof("diskutil %s %s succeeded", verb, id)
	return nil
}

// query runs a read-only verb. Stdout is kept clean for plist decoding and
// stderr is folded into the error on failure.
func (d *diskutil) query(op, id string, args ...string) ([]byte, error) {
	klog.V(5).Infof("Executing: %s %s", d.path, strings.Join(args, " "))
	cmd := d.execCommand(d.path, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		combined := append(output, stderr.Bytes()...)
		return nil, &CommandError{Op: op, Identifier: id, Output: combined, Err: err}
	}

	klog.V(5).Infof("diskutil %s output: %d bytes", op, len(output))
	return output, nil
}
