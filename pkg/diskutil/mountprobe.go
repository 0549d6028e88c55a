package diskutil

import (
	"github.com/moby/sys/mountinfo"
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/utils"
)

// MountProbe reports whether a device node is present in the kernel mount table
type MountProbe func(id string) (bool, error)

// KernelMountTable is the production MountProbe backed by the mount table
// (getfsstat on darwin, /proc/self/mountinfo on linux).
func KernelMountTable(id string) (bool, error) {
	device := utils.DeviceNode(id)
	mounts, err := mountinfo.GetMounts(func(m *mountinfo.Info) (skip, stop bool) {
		return m.Source != device, false
	})
	if err != nil {
		return false, err
	}

	for _, m := range mounts {
		klog.V(5).Infof("Mount table: %s mounted at %s (%s)", m.Source, m.Mountpoint, m.FSType)
	}
	return len(mounts) > 0, nil
}
