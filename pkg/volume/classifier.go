package volume

import (
	"k8s.io/klog/v2"

	"git.srvlab.io/whiskey/diskcheck/pkg/diskutil"
)

// Classification is the result of describing a volume
type Classification struct {
	Kind FilesystemKind

	// Raw is the host's type string; empty means no kind could be resolved at all
	Raw string
}

// Classifier maps volume identifiers to filesystem kinds and mount states.
// It only issues read-only host calls.
type Classifier struct {
	host  diskutil.Host
	probe diskutil.MountProbe
}

// NewClassifier creates a Classifier. probe may be nil to rely on diskutil alone.
func NewClassifier(host diskutil.Host, probe diskutil.MountProbe) *Classifier {
	return &Classifier{host: host, probe: probe}
}

// Classify describes the volume and extracts its filesystem type
func (c *Classifier) Classify(id string) (Classification, error) {
	info, err := c.host.Describe(id)
	if err != nil {
		return Classification{Kind: KindUnknown}, err
	}

	raw := info.FilesystemType
	if raw == "" {
		raw = info.FilesystemName
	}

	kind := ParseKind(raw)
	klog.V(4).Infof("Classified %s as %s (host type %q)", id, kind, raw)
	return Classification{Kind: kind, Raw: raw}, nil
}

// MountState queries whether the volume is currently mounted.
// The kernel mount table can only upgrade the answer to Mounted, so a volume is
// never reported unmounted while it still appears there.
func (c *Classifier) MountState(id string) (MountState, error) {
	info, err := c.host.Describe(id)
	if err != nil {
		return MountUnknown, err
	}

	if info.Mounted() {
		return Mounted, nil
	}

	if c.probe != nil {
		mounted, err := c.probe(id)
		if err != nil {
			klog.V(4).Infof("Mount table probe for %s failed, trusting diskutil: %v", id, err)
		} else if mounted {
			klog.V(2).Infof("%s has no diskutil mount point but is in the mount table", id)
			return Mounted, nil
		}
	}

	return Unmounted, nil
}
