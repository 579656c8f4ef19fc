package config

import (
	"sort"

	"github.com/canonical/curtin-storage-engine/domain"
)

// NormalizedPartition is a partition entry with its size/offset resolved
// to byte counts, used by both the v1 sequential path and the v2
// diff-against-existing-table path (spec.md §4.2).
type NormalizedPartition struct {
	Entry  *domain.PartitionEntry
	Size   uint64 // 0 if unset (v1: grows to fill remaining space)
	Offset uint64 // 0 if unset (v1: computed sequentially)
}

// PartitionsForDisk returns every partition entry in doc whose "device"
// is diskID itself (no indirection through other entries is followed),
// normalized and — for v2 — ordered by offset so that deletion
// identification (spec.md §8 "v2 partition identity") is a stable,
// position-based diff rather than one keyed by declaration order.
func PartitionsForDisk(doc *Document, diskID string) ([]NormalizedPartition, error) {
	var out []NormalizedPartition
	for _, e := range doc.Entries {
		p, ok := e.(*domain.PartitionEntry)
		if !ok || p.Device != diskID {
			continue
		}
		np := NormalizedPartition{Entry: p}
		if p.Size != "" {
			sz, err := ParseSize(p.Size)
			if err != nil {
				return nil, err
			}
			np.Size = sz
		}
		if p.Offset != "" {
			off, err := ParseSize(p.Offset)
			if err != nil {
				return nil, err
			}
			np.Offset = off
		}
		out = append(out, np)
	}

	if doc.Version == 2 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	}
	return out, nil
}

// StalePartitions returns the existing on-disk partitions of diskKName
// that have no counterpart in desired, identified by offset rather than
// partition number (spec.md §4.2 v2 "a diff against the existing table
// decides creates/keeps/deletes"; §8 "the action with offset: O is
// treated as deletion iff no config action matches offset O"). Deleting
// these before the create pass is what lets the remaining logicals keep
// their content while the table renumbers around the gap.
//
// Candidates come from snap.ChildrenOf, an indexed lookup (domain/index.go)
// rather than a linear scan of every device in the snapshot — disks with
// many stale logicals stay cheap to diff.
func StalePartitions(diskKName string, desired []NormalizedPartition, snap *domain.Snapshot) []*domain.BlockDevice {
	wantOffsets := make(map[uint64]bool, len(desired))
	for _, np := range desired {
		if np.Offset > 0 {
			wantOffsets[np.Offset] = true
		}
	}

	var stale []*domain.BlockDevice
	for _, dev := range snap.ChildrenOf(diskKName) {
		if dev.DevType != domain.DevPartition {
			continue
		}
		if !wantOffsets[dev.Offset] {
			stale = append(stale, dev)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].Offset < stale[j].Offset })
	return stale
}
