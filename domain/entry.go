package domain

// EntryType is the closed set of config entry types (spec.md §3).
type EntryType string

const (
	TypeDASD           EntryType = "dasd"
	TypeDisk           EntryType = "disk"
	TypePartition      EntryType = "partition"
	TypeFormat         EntryType = "format"
	TypeMount          EntryType = "mount"
	TypeLVMVolgroup    EntryType = "lvm_volgroup"
	TypeLVMPartition   EntryType = "lvm_partition"
	TypeDMCrypt        EntryType = "dm_crypt"
	TypeRAID           EntryType = "raid"
	TypeBcache         EntryType = "bcache"
	TypeZpool          EntryType = "zpool"
	TypeZFS            EntryType = "zfs"
	TypeNVMeController EntryType = "nvme_controller"
	TypeDevice         EntryType = "device"
)

// ValidTypes is used by the schema loader to reject unrecognized types.
var ValidTypes = map[EntryType]bool{
	TypeDASD: true, TypeDisk: true, TypePartition: true, TypeFormat: true,
	TypeMount: true, TypeLVMVolgroup: true, TypeLVMPartition: true,
	TypeDMCrypt: true, TypeRAID: true, TypeBcache: true, TypeZpool: true,
	TypeZFS: true, TypeNVMeController: true, TypeDevice: true,
}

// Common carries the cross-cutting keys every entry type accepts,
// mirroring the teacher's HandlerBase shared-fields pattern.
type Common struct {
	ID       string    `yaml:"id"`
	Type     EntryType `yaml:"type"`
	Preserve bool      `yaml:"preserve,omitempty"`
	Wipe     string    `yaml:"wipe,omitempty"`

	// Discovered/back-filled by executors at runtime; never read from config.
	ResolvedPath string `yaml:"-"`
}

// Entry is implemented by every concrete config-entry type. The loader
// decodes each YAML map into the concrete type matching its "type" field
// and stores it behind this interface, giving the planner and executors
// exhaustive type-switch dispatch instead of string-keyed lookups.
type Entry interface {
	GetCommon() *Common
	GetID() string
	GetType() EntryType
	// DependsOn returns the ids of other entries this entry's fields
	// reference (disk, volume, volgroup, devices, spare_devices,
	// backing_device, cache_device, vdevs, pool, nvme_controller).
	DependsOn() []string
}

func (c *Common) GetCommon() *Common { return c }
func (c *Common) GetID() string      { return c.ID }
func (c *Common) GetType() EntryType { return c.Type }

// DASDEntry: s390x ECKD low-level format (spec.md §4.5 dasd).
type DASDEntry struct {
	Common     `yaml:",inline"`
	DeviceID   string `yaml:"device_id"`
	DiskLayout string `yaml:"disk_layout,omitempty"` // cdl|ldl
	Blocksize  int    `yaml:"blocksize,omitempty"`
	Label      string `yaml:"label,omitempty"`
	Mode       string `yaml:"mode,omitempty"` // quick|full|expand
}

func (e *DASDEntry) DependsOn() []string { return nil }

// DiskEntry: physical disk identity + optional partition table creation.
type DiskEntry struct {
	Common         `yaml:",inline"`
	Serial         string `yaml:"serial,omitempty"`
	WWN            string `yaml:"wwn,omitempty"`
	Path           string `yaml:"path,omitempty"`
	Multipath      string `yaml:"multipath,omitempty"`
	ISCSI          string `yaml:"iscsi,omitempty"`
	NVMeController string `yaml:"nvme_controller,omitempty"`
	Ptable         string `yaml:"ptable,omitempty"` // msdos|gpt|vtoc
	GrubDevice     bool   `yaml:"grub_device,omitempty"`
}

func (e *DiskEntry) DependsOn() []string {
	if e.NVMeController != "" {
		return []string{e.NVMeController}
	}
	return nil
}

// PartitionEntry: one partition on a disk/raid device.
type PartitionEntry struct {
	Common        `yaml:",inline"`
	Device        string `yaml:"device"`
	Number        int    `yaml:"number,omitempty"`
	Size          string `yaml:"size,omitempty"`
	Offset        string `yaml:"offset,omitempty"`
	Flag          string `yaml:"flag,omitempty"`
	PartitionType string `yaml:"partition_type,omitempty"`
	PartitionName string `yaml:"partition_name,omitempty"`
	UUID          string `yaml:"uuid,omitempty"`
	Resize        bool   `yaml:"resize,omitempty"`
}

func (e *PartitionEntry) DependsOn() []string { return []string{e.Device} }

// FormatEntry: mkfs.<fstype> invocation against a device-producing entry.
type FormatEntry struct {
	Common       `yaml:",inline"`
	Volume       string   `yaml:"volume"`
	Fstype       string   `yaml:"fstype"`
	Label        string   `yaml:"label,omitempty"`
	UUID         string   `yaml:"uuid,omitempty"`
	ExtraOptions []string `yaml:"extra_options,omitempty"`
	ZfsRoot      bool     `yaml:"-"` // set by planner when synthesizing zpool+zfs
}

func (e *FormatEntry) DependsOn() []string { return []string{e.Volume} }

// MountEntry: fstab record + bind mount of a format (or raw spec).
type MountEntry struct {
	Common  `yaml:",inline"`
	Device  string `yaml:"device,omitempty"`
	Spec    string `yaml:"spec,omitempty"`
	Path    string `yaml:"path,omitempty"`
	Options string `yaml:"options,omitempty"`
	// NoMount marks a planner-synthesized fstab-only entry (a swap
	// partition): an fstab record is emitted but nothing is bind-mounted.
	NoMount bool `yaml:"-"`
}

func (e *MountEntry) DependsOn() []string {
	if e.Device != "" {
		return []string{e.Device}
	}
	return nil
}

// LVMVolgroupEntry: pvcreate + vgcreate over a set of member devices.
type LVMVolgroupEntry struct {
	Common  `yaml:",inline"`
	Name    string   `yaml:"name"`
	Devices []string `yaml:"devices"`
}

func (e *LVMVolgroupEntry) DependsOn() []string { return e.Devices }

// LVMPartitionEntry: lvcreate of a logical volume inside a volume group.
type LVMPartitionEntry struct {
	Common   `yaml:",inline"`
	Name     string `yaml:"name"`
	Volgroup string `yaml:"volgroup"`
	Size     string `yaml:"size,omitempty"`
}

func (e *LVMPartitionEntry) DependsOn() []string { return []string{e.Volgroup} }

// DMCryptEntry: LUKS container over a single backing device.
type DMCryptEntry struct {
	Common  `yaml:",inline"`
	Volume  string `yaml:"volume"`
	Key     string `yaml:"key,omitempty"`
	Keyfile string `yaml:"keyfile,omitempty"`
	Options string `yaml:"options,omitempty"`
	DMName  string `yaml:"dm_name,omitempty"`
}

func (e *DMCryptEntry) DependsOn() []string { return []string{e.Volume} }

// RAIDEntry: mdadm array assembled from member + spare devices.
type RAIDEntry struct {
	Common       `yaml:",inline"`
	Name         string   `yaml:"name,omitempty"`
	RaidLevel    int      `yaml:"raidlevel"`
	Devices      []string `yaml:"devices"`
	SpareDevices []string `yaml:"spare_devices,omitempty"`
	MetadataVer  string   `yaml:"metadata,omitempty"`
	Ptable       string   `yaml:"ptable,omitempty"`
}

func (e *RAIDEntry) DependsOn() []string {
	out := append([]string{}, e.Devices...)
	out = append(out, e.SpareDevices...)
	return out
}

// BcacheEntry: backing + cache device pairing.
type BcacheEntry struct {
	Common        `yaml:",inline"`
	BackingDevice string `yaml:"backing_device"`
	CacheDevice   string `yaml:"cache_device,omitempty"`
	CacheMode     string `yaml:"cache_mode,omitempty"`
}

func (e *BcacheEntry) DependsOn() []string {
	out := []string{e.BackingDevice}
	if e.CacheDevice != "" {
		out = append(out, e.CacheDevice)
	}
	return out
}

// ZpoolEntry: zpool create over a set of vdevs.
type ZpoolEntry struct {
	Common          `yaml:",inline"`
	Pool            string            `yaml:"pool"`
	Vdevs           []string          `yaml:"vdevs"`
	PoolProperties  map[string]string `yaml:"pool_properties,omitempty"`
	FSProperties    map[string]string `yaml:"fs_properties,omitempty"`
	EncryptionStyle string            `yaml:"encryption_style,omitempty"`
	KeyfilePath     string            `yaml:"keyfile,omitempty"`
}

func (e *ZpoolEntry) DependsOn() []string { return e.Vdevs }

// ZFSEntry: zfs create of a dataset within a pool.
type ZFSEntry struct {
	Common     `yaml:",inline"`
	Pool       string            `yaml:"pool"`
	Volume     string            `yaml:"volume"`
	Properties map[string]string `yaml:"properties,omitempty"`
}

func (e *ZFSEntry) DependsOn() []string { return []string{e.Pool} }

// NVMeControllerEntry: transport annotation consumed by disk entries and
// by persistence (to emit a connect unit for tcp-attached controllers).
type NVMeControllerEntry struct {
	Common    `yaml:",inline"`
	Transport string `yaml:"transport"` // pcie|tcp
	TCPAddr   string `yaml:"tcp_addr,omitempty"`
	TCPPort   int    `yaml:"tcp_port,omitempty"`
}

func (e *NVMeControllerEntry) DependsOn() []string { return nil }

// DeviceEntry: pass-through reference to an externally managed block
// device that may still be partitioned.
type DeviceEntry struct {
	Common `yaml:",inline"`
	Path   string `yaml:"path"`
}

func (e *DeviceEntry) DependsOn() []string { return nil }
