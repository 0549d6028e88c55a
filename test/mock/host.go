package mock

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
)

// Host operation names, matching the diskutil verbs
const (
	OpListExternal = "list-external"
	OpListAll      = "list-all"
	OpDescribe     = "info"
	OpUnmount      = "unmount"
	OpMount        = "mount"
	OpVerify       = "verifyVolume"
	OpRepair       = "repairVolume"
)

// Call records a single host invocation
type Call struct {
	Op string
	ID string
}

// MockDisk is the simulated state of one volume
type MockDisk struct {
	ID       string
	FSType   string
	Mounted  bool
	External bool
	System   bool
}

// MockHost is a scripted implementation of diskutil.Host for testing
type MockHost struct {
	mu sync.RWMutex

	// Volumes in host enumeration order
	order []string
	disks map[string]*MockDisk

	// Error injection keyed by op then identifier ("" for listings)
	errs map[string]map[string]error

	// Call tracking
	calls []Call

	// hook runs after every recorded call, outside the lock
	hook func(Call)
}

// NewMockHost creates an empty mock host
func NewMockHost() *MockHost {
	return &MockHost{
		disks: make(map[string]*MockDisk),
		errs:  make(map[string]map[string]error),
	}
}

// AddExternalVolume adds an external volume in enumeration order
func (m *MockHost) AddExternalVolume(id, fsType string, mounted bool) *MockHost {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(&MockDisk{ID: id, FSType: fsType, Mounted: mounted, External: true})
	return m
}

// AddInternalSystemVolume adds a boot volume that only the full listing reports
func (m *MockHost) AddInternalSystemVolume(id string) *MockHost {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLocked(&MockDisk{ID: id, FSType: "apfs", Mounted: true, System: true})
	return m
}

// MarkSystem makes an already added external volume appear on internal boot media
// in the full listing, as a misreported external listing would.
func (m *MockHost) MarkSystem(id string) *MockHost {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.disks[id]; ok {
		d.System = true
	}
	return m
}

func (m *MockHost) addLocked(d *MockDisk) {
	if _, exists := m.disks[d.ID]; !exists {
		m.order = append(m.order, d.ID)
	}
	m.disks[d.ID] = d
}

// SetError injects err for op on id. Use "" as id for listing operations.
func (m *MockHost) SetError(op, id string, err error) *MockHost {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errs[op] == nil {
		m.errs[op] = make(map[string]error)
	}
	m.errs[op][id] = err
	return m
}

// Fail injects a diskutil.CommandError carrying output for op on id
func (m *MockHost) Fail(op, id, output string) *MockHost {
	return m.SetError(op, id, &diskutil.CommandError{
		Op:         op,
		Identifier: id,
		Output:     []byte(output),
		Err:        errors.New("exit status 1"),
	})
}

// ClearError removes injected errors for op on id
func (m *MockHost) ClearError(op, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.errs[op], id)
}

// SetHook installs a function called after every host call
func (m *MockHost) SetHook(hook func(Call)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// record tracks a call and returns the injected error, if any
func (m *MockHost) record(op, id string) error {
	m.mu.Lock()
	call := Call{Op: op, ID: id}
	m.calls = append(m.calls, call)
	err := m.errs[op][id]
	hook := m.hook
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return err
}

// ListExternal implements diskutil.Host
func (m *MockHost) ListExternal() (*diskutil.Listing, error) {
	if err := m.record(OpListExternal, ""); err != nil {
		return nil, err
	}
	return m.listing(false), nil
}

// ListAll implements diskutil.Host
func (m *MockHost) ListAll() (*diskutil.Listing, error) {
	if err := m.record(OpListAll, ""); err != nil {
		return nil, err
	}
	return m.listing(true), nil
}

// listing renders the selected volumes the way diskutil lays them out: APFS volumes
// inside a synthesized container, everything else as partitions of a whole disk.
// System volumes are placed on an internal whole disk in the full listing.
func (m *MockHost) listing(full bool) *diskutil.Listing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	listing := &diskutil.Listing{}
	for _, id := range m.order {
		d := m.disks[id]
		if !full && !d.External {
			continue
		}

		whole := wholeDiskOf(id)
		mountPoint := ""
		if d.Mounted {
			mountPoint = "/Volumes/" + id
		}

		part := diskutil.DiskPart{DeviceIdentifier: whole, OSInternal: d.System && full}

		if strings.EqualFold(d.FSType, "apfs") {
			part.Content = "EF57347C-0000-11AA-AA11-00306543ECAC"
			part.APFSVolumes = []diskutil.APFSVolume{{DeviceIdentifier: id, MountPoint: mountPoint, OSInternal: part.OSInternal}}
		} else {
			content := "Microsoft Basic Data"
			if part.OSInternal {
				content = "Apple_HFS"
			}
			part.Content = "GUID_partition_scheme"
			part.Partitions = []diskutil.Partition{{DeviceIdentifier: id, Content: content, MountPoint: mountPoint}}
		}

		listing.WholeDisks = append(listing.WholeDisks, whole)
		listing.AllDisks = append(listing.AllDisks, whole, id)
		listing.AllDisksAndPartitions = append(listing.AllDisksAndPartitions, part)
	}
	return listing
}

// Describe implements diskutil.Host
func (m *MockHost) Describe(id string) (*diskutil.DiskInfo, error) {
	if err := m.record(OpDescribe, id); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.disks[id]
	if !ok {
		return nil, fmt.Errorf("could not find disk: %s", id)
	}

	info := &diskutil.DiskInfo{
		DeviceIdentifier: id,
		DeviceNode:       "/dev/" + id,
		FilesystemType:   d.FSType,
		Internal:         !d.External,
		ParentWholeDisk:  wholeDiskOf(id),
	}
	if d.Mounted {
		info.MountPoint = "/Volumes/" + id
	}
	return info, nil
}

// Unmount implements diskutil.Host
func (m *MockHost) Unmount(id string) error {
	if err := m.record(OpUnmount, id); err != nil {
		return err
	}
	return m.setMounted(id, false)
}

// Mount implements diskutil.Host
func (m *MockHost) Mount(id string) error {
	if err := m.record(OpMount, id); err != nil {
		return err
	}
	return m.setMounted(id, true)
}

// Verify implements diskutil.Host
func (m *MockHost) Verify(id string) error {
	return m.record(OpVerify, id)
}

// Repair implements diskutil.Host
func (m *MockHost) Repair(id string) error {
	return m.record(OpRepair, id)
}

func (m *MockHost) setMounted(id string, mounted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disks[id]
	if !ok {
		return fmt.Errorf("could not find disk: %s", id)
	}
	d.Mounted = mounted
	return nil
}

// Test helper methods

// Calls returns the history of host calls
func (m *MockHost) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	calls := make([]Call, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallsFor returns the operations invoked for one identifier, in order
func (m *MockHost) CallsFor(id string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ops []string
	for _, c := range m.calls {
		if c.ID == id {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// MutationCalls returns the state-changing calls (unmount, mount, verify, repair)
func (m *MockHost) MutationCalls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []Call
	for _, c := range m.calls {
		switch c.Op {
		case OpUnmount, OpMount, OpVerify, OpRepair:
			calls = append(calls, c)
		}
	}
	return calls
}

// CountCalls returns how many times op ran against id
func (m *MockHost) CountCalls(op, id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.calls {
		if c.Op == op && c.ID == id {
			n++
		}
	}
	return n
}

// IsMounted reports the simulated mount state of id
func (m *MockHost) IsMounted(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.disks[id]
	return ok && d.Mounted
}

// Reset clears call history and injected errors, keeping the volumes
func (m *MockHost) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.errs = make(map[string]map[string]error)
	m.hook = nil
}

// wholeDiskOf returns "disk2" for "disk2s1"
func wholeDiskOf(id string) string {
	id = strings.TrimPrefix(id, "/dev/")
	if i := strings.IndexByte(id[min(len(id), len("disk")):], 's'); i >= 0 {
		return id[:len("disk")+i]
	}
	return id
}
