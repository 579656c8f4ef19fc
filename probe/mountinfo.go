package probe

import (
	"github.com/moby/sys/mountinfo"

	"github.com/canonical/curtin-storage-engine/domain"
)

// readMountinfo parses /proc/self/mountinfo via moby/sys/mountinfo,
// keyed by mount point, giving the holders engine and the mount executor
// a reliable view of currently-mounted filesystems (spec.md §4.3 "mount"
// dev_type; §4.5 "mount" idempotency).
func readMountinfo() (map[string]domain.MountInfo, error) {
	mounts, err := mountinfo.GetMounts(nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.MountInfo, len(mounts))
	for _, m := range mounts {
		out[m.Mountpoint] = domain.MountInfo{
			MountPoint: m.Mountpoint,
			Source:     m.Source,
			FSType:     m.FSType,
			Options:    m.Options,
		}
	}
	return out, nil
}
