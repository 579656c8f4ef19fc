package planner

import "github.com/canonical/curtin-storage-engine/domain"

// zfsRootFstype is the sentinel fstype (spec.md §4.4) that turns a format
// entry into a zpool+zfs pair instead of an mkfs invocation.
const zfsRootFstype = "zfsroot"

// expandZfsRoot replaces a `format` entry whose fstype is "zfsroot" with
// the zpool + zfs action pair it denotes, rooted at the format's declared
// volume (spec.md §4.4 "zfsroot on a format expands into zpool + zfs
// actions against the parent disk"). The dataset keeps the original
// entry's id so any mount entry referencing it still resolves.
func expandZfsRoot(fe *domain.FormatEntry) (*domain.ZpoolEntry, *domain.ZFSEntry) {
	pool := &domain.ZpoolEntry{
		Common: domain.Common{
			ID:   fe.ID + "-pool",
			Type: domain.TypeZpool,
		},
		Pool:  fe.ID,
		Vdevs: []string{fe.Volume},
	}
	ds := &domain.ZFSEntry{
		Common: domain.Common{
			ID:       fe.ID,
			Type:     domain.TypeZFS,
			Preserve: fe.Preserve,
		},
		Pool:   pool.Pool,
		Volume: "ROOT",
	}
	return pool, ds
}

// swapFstabEntry synthesizes the fstab-only mount entry for a partition
// flagged swap (spec.md §4.4 "injects an fstab entry but no mount").
func swapFstabEntry(pe *domain.PartitionEntry) *domain.MountEntry {
	return &domain.MountEntry{
		Common: domain.Common{
			ID:   pe.ID + "-swap",
			Type: domain.TypeMount,
		},
		Device:  pe.ID,
		Path:    "none",
		Options: "sw",
		NoMount: true,
	}
}
