package volume

import (
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
)

// containerContent lists partition contents that are never checked directly
var containerContent = map[string]bool{
	"EFI":                 true,
	"Apple_Boot":          true,
	"Apple_APFS":          true,
	"Apple_APFS_ISC":      true,
	"Apple_APFS_Recovery": true,
	"Apple_partition_map": true,
	"Apple_Free":          true,
}

// Catalog enumerates candidate external volumes
type Catalog struct {
	host   diskutil.Host
	inv    *inventory
	system *SystemDetector
}

// NewCatalog creates a Catalog that shares one full host listing with its
// system detector
func NewCatalog(host diskutil.Host) *Catalog {
	inv := &inventory{host: host}
	return &Catalog{
		host:   host,
		inv:    inv,
		system: newSystemDetector(inv),
	}
}

// List returns the external, physically backed volumes in host order without
// duplicates. No volumes is an empty slice, not an error.
func (c *Catalog) List() ([]Volume, error) {
	listing, err := c.host.ListExternal()
	if err != nil {
		return nil, err
	}

	var ids []string
	unresolved := make(map[string]error)
	seen := make(map[string]bool)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}

	for _, d := range listing.AllDisksAndPartitions {
		if len(d.APFSVolumes) > 0 {
			for _, v := range d.APFSVolumes {
				add(v.DeviceIdentifier)
			}
			continue
		}

		if len(d.Partitions) == 0 {
			if d.Content != "" && !containerContent[d.Content] {
				add(d.DeviceIdentifier)
			}
			continue
		}

		for _, p := range d.Partitions {
			switch {
			case p.Content == "Apple_APFS":
				vols, err := c.containerVolumes(p.DeviceIdentifier)
				if err != nil {
					// Kept as an untouchable placeholder so the failure reaches the audit log
					klog.Warningf("Cannot resolve APFS container on %s: %v", p.DeviceIdentifier, err)
					unresolved[p.DeviceIdentifier] = err
					add(p.DeviceIdentifier)
					continue
				}
				for _, id := range vols {
					add(id)
				}
			case containerContent[p.Content]:
				klog.V(4).Infof("Skipping container partition %s (%s)", p.DeviceIdentifier, p.Content)
			default:
				add(p.DeviceIdentifier)
			}
		}
	}

	volumes := make([]Volume, 0, len(ids))
	for _, id := range ids {
		v := Volume{ID: id, Kind: KindUnknown, MountState: MountUnknown}
		if err, ok := unresolved[id]; ok {
			v.IsSystem, v.SystemCheckErr = true, err
		} else {
			v.IsSystem, v.SystemCheckErr = c.system.IsSystem(id)
		}
		volumes = append(volumes, v)
	}

	klog.V(2).Infof("Catalog found %d candidate volumes", len(volumes))
	return volumes, nil
}

// containerVolumes resolves the APFS volumes of the container backed by store
func (c *Catalog) containerVolumes(store string) ([]string, error) {
	all, err := c.inv.get()
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, d := range all.AllDisksAndPartitions {
		for _, s := range d.APFSPhysicalStores {
			if s.DeviceIdentifier != store {
				continue
			}
			for _, v := range d.APFSVolumes {
				ids = append(ids, v.DeviceIdentifier)
			}
		}
	}
	return ids, nil
}
