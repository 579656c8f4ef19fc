package domain

// DevType enumerates the holder/device kinds the probe and holders
// engine reason about (spec.md §3 "Holder tree" and §4.3 priority list).
type DevType string

const (
	DevDisk      DevType = "disk"
	DevPartition DevType = "partition"
	DevLVMVG     DevType = "lvm-vg"
	DevLVMLV     DevType = "lvm-lv"
	DevCrypt     DevType = "crypt"
	DevRAID      DevType = "raid"
	DevBcache    DevType = "bcache"
	DevMpath     DevType = "mpath"
	DevMount     DevType = "mount"
)

// teardownPriority orders dev types within the same holder-tree level,
// highest first, per spec.md §4.3:
// "mount > bcache > raid > lvm-lv > lvm-vg > lvm-pv > crypt > mpath > partition > disk".
// There is no lvm-pv DevType, so rank 4 is unused and a PV is ranked by
// the type of the device it sits on.
var teardownPriority = map[DevType]int{
	DevMount:     9,
	DevBcache:    8,
	DevRAID:      7,
	DevLVMLV:     6,
	DevLVMVG:     5,
	DevCrypt:     3,
	DevMpath:     2,
	DevPartition: 1,
	DevDisk:      0,
}

// TeardownPriority returns the dev-type tie-break rank used by the
// holders-engine planner; higher values shut down first.
func TeardownPriority(t DevType) int {
	if p, ok := teardownPriority[t]; ok {
		return p
	}
	return -1
}

// BlockDevice is one node in a probe snapshot: the record kept for every
// kname discovered under /sys/class/block plus the tool-derived metadata
// layered on top of it (spec.md §4.1).
type BlockDevice struct {
	KName      string // e.g. "sda1"
	SysPath    string // /sys/class/block/<kname>
	DevPath    string // /dev/<kname>
	DevType    DevType
	Size       uint64
	ReadOnly   bool
	FsType     string
	FsUUID     string
	FsLabel    string
	PtableType string // msdos|gpt|vtoc, disk nodes only
	Serial     string
	WWN        string
	Parents    []string // kname of devices this one depends on
	Children   []string // kname of devices depending on this one (holders)

	// Offset and PartitionNumber are populated for partition devices only,
	// read from sysfs's "start" (sectors) and "partition" files. Offset is
	// the byte offset from the start of the parent disk — the identity
	// v2 partition diffing keys on (spec.md §4.2 v2, §8 "v2 partition
	// identity") since declaration order and "number" are not stable
	// across edits.
	Offset          uint64
	PartitionNumber int
}

// HolderNode is one node of the lazy holder tree rooted at a target
// device (spec.md §3 "Holder tree"). Children is the set of holders of
// this device — the nodes that must be torn down before this one.
type HolderNode struct {
	KName    string
	SysPath  string
	DevType  DevType
	Children []*HolderNode
}

// PlanStep is one entry of the ordered clear-holders execution plan
// (spec.md §4.3 "Planning algorithm").
type PlanStep struct {
	KName   string
	SysPath string
	DevType DevType
	Level   int // depth below the target device; 0 == the target itself
}

// HolderState is the per-node state machine the holders engine drives
// every device through (spec.md §4.3).
type HolderState int

const (
	StateDiscovered HolderState = iota
	StateQuiesced
	StateTornDown
	StateGone
)

func (s HolderState) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateQuiesced:
		return "quiesced"
	case StateTornDown:
		return "torn-down"
	case StateGone:
		return "gone"
	default:
		return "unknown"
	}
}

// Snapshot is the full keyed probe result: kname -> record. Components
// never mutate a Snapshot in place; a fresh one is built after every
// mutating action (spec.md §4.1, §5).
type Snapshot struct {
	Devices map[string]*BlockDevice
	// Mounts holds the parsed contents of /proc/self/mountinfo at probe
	// time, keyed by mount point.
	Mounts map[string]MountInfo

	// index is built lazily by ChildrenOf and cached for the lifetime of
	// this snapshot; a fresh Probe() produces a fresh Snapshot, so there
	// is nothing to invalidate.
	index *childIndex
}

// MountInfo is the subset of a mountinfo(5) record the engine needs.
type MountInfo struct {
	MountPoint string
	Source     string
	FSType     string
	Options    string
}
