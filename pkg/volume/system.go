package volume

import (
	"strings"
	"sync"

	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

// inventory caches the host's full listing for the lifetime of a run
type inventory struct {
	host diskutil.Host

	once    sync.Once
	listing *diskutil.Listing
	err     error
}

func (inv *inventory) get() (*diskutil.Listing, error) {
	inv.once.Do(func() {
		inv.listing, inv.err = inv.host.ListAll()
	})
	return inv.listing, inv.err
}

// SystemDetector decides whether a volume belongs to internal boot media
type SystemDetector struct {
	inv *inventory

	once      sync.Once
	systemIDs []string
	err       error
}

func newSystemDetector(inv *inventory) *SystemDetector {
	return &SystemDetector{inv: inv}
}

// IsSystem reports whether id textually prefixes an identifier that hosts an
// Apple-managed partition on internal media. When the listing cannot be read the
// answer is true together with the error.
func (s *SystemDetector) IsSystem(id string) (bool, error) {
	s.once.Do(s.load)
	if s.err != nil {
		return true, s.err
	}

	bare := utils.BareIdentifier(id)
	for _, sysID := range s.systemIDs {
		if strings.HasPrefix(sysID, bare) {
			klog.V(4).Infof("%s matches system identifier %s", id, sysID)
			return true, nil
		}
	}
	return false, nil
}

func (s *SystemDetector) load() {
	listing, err := s.inv.get()
	if err != nil {
		s.err = err
		return
	}

	internalWhole := make(map[string]bool)
	for _, d := range listing.AllDisksAndPartitions {
		if d.OSInternal {
			internalWhole[d.DeviceIdentifier] = true
		}
	}

	for _, d := range listing.AllDisksAndPartitions {
		if !onInternalMedia(d, internalWhole) {
			for _, v := range d.APFSVolumes {
				if v.OSInternal {
					s.systemIDs = append(s.systemIDs, v.DeviceIdentifier)
				}
			}
			continue
		}

		appleManaged := len(d.APFSVolumes) > 0
		for _, p := range d.Partitions {
			if isAppleContent(p.Content) {
				s.systemIDs = append(s.systemIDs, p.DeviceIdentifier)
				appleManaged = true
			}
		}
		for _, v := range d.APFSVolumes {
			s.systemIDs = append(s.systemIDs, v.DeviceIdentifier)
		}
		if appleManaged {
			s.systemIDs = append(s.systemIDs, d.DeviceIdentifier)
		}
	}

	klog.V(4).Infof("System identifiers: %v", s.systemIDs)
}

// onInternalMedia reports whether a disk or APFS container lives on internal media
func onInternalMedia(d diskutil.DiskPart, internalWhole map[string]bool) bool {
	if d.OSInternal {
		return true
	}
	for _, store := range d.APFSPhysicalStores {
		if internalWhole[WholeDiskOf(store.DeviceIdentifier)] {
			return true
		}
	}
	return false
}

func isAppleContent(content string) bool {
	return strings.HasPrefix(content, "Apple_APFS") ||
		strings.HasPrefix(content, "Apple_HFS") ||
		content == "Apple_Boot"
}

// WholeDiskOf returns the whole-disk identifier for a slice ("disk2s1" -> "disk2")
func WholeDiskOf(id string) string {
	bare := utils.BareIdentifier(id)
	if !strings.HasPrefix(bare, "disk") {
		return bare
	}
	if i := strings.IndexByte(bare[len("disk"):], 's'); i >= 0 {
		return bare[:len("disk")+i]
	}
	return bare
}
