package volume

import (
	"fmt"
	"strings"
)

// FilesystemKind is the closed set of filesystem tags the checker reasons about
type FilesystemKind int

const (
	// KindUnknown is used when the host reports nothing usable
	KindUnknown FilesystemKind = iota

	// Supported kinds: eligible for verify and repair
	KindAPFS
	KindHFS
	KindHFSPlus
	KindMSDOS
	KindExFAT
	KindFAT32

	// Unsupported kinds: logged, never acted on
	KindNTFS
	KindExt4
	KindBtrfs
	KindXFS
	KindISO9660
	KindNetworkShare
	KindFuseBacked
	KindOther
)

var kindNames = map[FilesystemKind]string{
	KindUnknown:      "unknown",
	KindAPFS:         "apfs",
	KindHFS:          "hfs",
	KindHFSPlus:      "hfsplus",
	KindMSDOS:        "msdos",
	KindExFAT:        "exfat",
	KindFAT32:        "fat32",
	KindNTFS:         "ntfs",
	KindExt4:         "ext4",
	KindBtrfs:        "btrfs",
	KindXFS:          "xfs",
	KindISO9660:      "iso9660",
	KindNetworkShare: "network-share",
	KindFuseBacked:   "fuse-backed",
	KindOther:        "other",
}

// kindAliases maps lowercased host type strings to kinds
var kindAliases = map[string]FilesystemKind{
	"apfs":                        KindAPFS,
	"hfs":                         KindHFS,
	"hfsplus":                     KindHFSPlus,
	"hfs+":                        KindHFSPlus,
	"journaled hfs+":              KindHFSPlus,
	"mac os extended":             KindHFSPlus,
	"mac os extended (journaled)": KindHFSPlus,
	"msdos":                       KindMSDOS,
	"ms-dos":                      KindMSDOS,
	"ms-dos fat16":                KindMSDOS,
	"exfat":                       KindExFAT,
	"fat32":                       KindFAT32,
	"fat":                         KindFAT32,
	"vfat":                        KindFAT32,
	"ms-dos fat32":                KindFAT32,
	"ntfs":                        KindNTFS,
	"windows nt filesystem":       KindNTFS,
	"ext4":                        KindExt4,
	"btrfs":                       KindBtrfs,
	"xfs":                         KindXFS,
	"iso9660":                     KindISO9660,
	"cd9660":                      KindISO9660,
	"smbfs":                       KindNetworkShare,
	"nfs":                         KindNetworkShare,
	"afpfs":                       KindNetworkShare,
	"webdav":                      KindNetworkShare,
	"davfs2":                      KindNetworkShare,
	"fuse":                        KindFuseBacked,
	"fuseblk":                     KindFuseBacked,
	"macfuse":                     KindFuseBacked,
	"osxfuse":                     KindFuseBacked,
	"udf":                         KindOther,
	"ufs":                         KindOther,
}

// ParseKind maps a host filesystem type string to a kind, case-insensitively.
// Empty or unrecognised strings yield KindUnknown.
func ParseKind(raw string) FilesystemKind {
	key := strings.ToLower(strings.TrimSpace(raw))
	if kind, ok := kindAliases[key]; ok {
		return kind
	}
	return KindUnknown
}

// String returns the canonical tag
func (k FilesystemKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("FilesystemKind(%d)", int(k))
}

// Supported reports whether the kind is eligible for verify/repair
func (k FilesystemKind) Supported() bool {
	switch k {
	case KindAPFS, KindHFS, KindHFSPlus, KindMSDOS, KindExFAT, KindFAT32:
		return true
	case KindUnknown, KindNTFS, KindExt4, KindBtrfs, KindXFS, KindISO9660,
		KindNetworkShare, KindFuseBacked, KindOther:
		return false
	default:
		return false
	}
}

// MountState is what the host reports about a volume's mount status
type MountState int

const (
	MountUnknown MountState = iota
	Mounted
	Unmounted
)

// String returns the state name
func (s MountState) String() string {
	switch s {
	case Mounted:
		return "mounted"
	case Unmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// Volume is an addressable partition or filesystem instance
type Volume struct {
	// ID is the host identifier (e.g. disk2s1)
	ID string

	// Kind is the classified filesystem kind
	Kind FilesystemKind

	// RawKind is the type string the host reported; empty when none was resolvable
	RawKind string

	// MountState is the last known mount status
	MountState MountState

	// IsSystem marks volumes that must never be touched
	IsSystem bool

	// SystemCheckErr is set when IsSystem was forced because the check itself failed
	SystemCheckErr error
}

// KindLabel returns the reported type string, or the kind tag when none was reported
func (v Volume) KindLabel() string {
	if v.RawKind != "" {
		return strings.ToLower(v.RawKind)
	}
	return v.Kind.String()
}
