package diskutil

// Listing mirrors the output of "diskutil list -plist [filter]".
type Listing struct {
	AllDisks              []string   `plist:"AllDisks"`
	AllDisksAndPartitions []DiskPart `plist:"AllDisksAndPartitions"`
	VolumesFromDisks      []string   `plist:"VolumesFromDisks"`
	WholeDisks            []string   `plist:"WholeDisks"`
}

// DiskPart is a whole disk (or APFS container) with its partitions and volumes.
type DiskPart struct {
	APFSPhysicalStores []PhysicalStore `plist:"APFSPhysicalStores"`
	APFSVolumes        []APFSVolume    `plist:"APFSVolumes"`
	Content            string          `plist:"Content"`
	DeviceIdentifier   string          `plist:"DeviceIdentifier"`
	OSInternal         bool            `plist:"OSInternal"`
	Partitions         []Partition     `plist:"Partitions"`
	Size               uint64          `plist:"Size"`
	MountPoint         string          `plist:"MountPoint"`
	VolumeName         string          `plist:"VolumeName"`
}

// PhysicalStore names the partition backing a synthesized APFS container.
type PhysicalStore struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
}

// Partition is a slice of a whole disk.
type Partition struct {
	Content          string `plist:"Content"`
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	MountPoint       string `plist:"MountPoint"`
	Size             uint64 `plist:"Size"`
	VolumeName       string `plist:"VolumeName"`
}

// APFSVolume is a volume inside an APFS container.
type APFSVolume struct {
	DeviceIdentifier string `plist:"DeviceIdentifier"`
	MountPoint       string `plist:"MountPoint"`
	OSInternal       bool   `plist:"OSInternal"`
	Size             uint64 `plist:"Size"`
	VolumeName       string `plist:"VolumeName"`
}

// DiskInfo mirrors the fields of "diskutil info -plist <id>" that the checker reads.
type DiskInfo struct {
	Content                        string          `plist:"Content"`
	DeviceIdentifier               string          `plist:"DeviceIdentifier"`
	DeviceNode                     string          `plist:"DeviceNode"`
	FilesystemName                 string          `plist:"FilesystemName"`
	FilesystemType                 string          `plist:"FilesystemType"`
	FilesystemUserVisibleName      string          `plist:"FilesystemUserVisibleName"`
	Internal                       bool            `plist:"Internal"`
	MountPoint                     string          `plist:"MountPoint"`
	OSInternalMedia                bool            `plist:"OSInternalMedia"`
	ParentWholeDisk                string          `plist:"ParentWholeDisk"`
	RemovableMediaOrExternalDevice bool            `plist:"RemovableMediaOrExternalDevice"`
	VirtualOrPhysical              string          `plist:"VirtualOrPhysical"`
	VolumeName                     string          `plist:"VolumeName"`
	WholeDisk                      bool            `plist:"WholeDisk"`
	APFSPhysicalStores             []PhysicalStore `plist:"APFSPhysicalStores"`
}

// Mounted reports whether diskutil considers the volume mounted.
func (i *DiskInfo) Mounted() bool {
	return i != nil && i.MountPoint != ""
}
