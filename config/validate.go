package config

import (
	"fmt"
	"sort"

	"github.com/canonical/curtin-storage-engine/domain"
)

var validRaidLevels = map[int]bool{0: true, 1: true, 5: true, 6: true, 10: true}

// Validate enforces the structural rules of spec.md §4.2 and the
// invariants of §3 that can be checked without touching hardware:
// type-specific required fields, acyclicity, and per-disk partition
// table limits. References are not checked for existence here (see
// validateEntry).
// It must run to completion before any device is touched (taxonomy #1).
func Validate(doc *Document) error {
	ids := make(map[string]domain.Entry, len(doc.Entries))
	for _, e := range doc.Entries {
		ids[e.GetID()] = e
	}

	for _, e := range doc.Entries {
		if err := validateEntry(e, ids); err != nil {
			return &domain.SchemaError{Entry: e.GetID(), Msg: err.Error()}
		}
	}

	g := domain.NewGraph(doc.Entries)
	if g.HasCycle() {
		return &domain.SchemaError{Msg: "action graph contains a cycle"}
	}

	if err := validatePartitionTables(doc, ids); err != nil {
		return err
	}

	return nil
}

// validatePartitionTables enforces the per-disk partition invariants that
// are checkable without touching hardware: msdos primary/extended limits
// (invariant #4) and, for v2, that declared offset+size extents don't
// overlap (invariant #7; the fits-within-the-disk half needs a probed
// disk size and is enforced at execution time).
func validatePartitionTables(doc *Document, ids map[string]domain.Entry) error {
	byDisk := make(map[string][]*domain.PartitionEntry)
	var diskOrder []string
	for _, e := range doc.Entries {
		p, ok := e.(*domain.PartitionEntry)
		if !ok {
			continue
		}
		if _, seen := byDisk[p.Device]; !seen {
			diskOrder = append(diskOrder, p.Device)
		}
		byDisk[p.Device] = append(byDisk[p.Device], p)
	}

	for _, diskID := range diskOrder {
		parts := byDisk[diskID]

		var ptable string
		if d, ok := ids[diskID].(*domain.DiskEntry); ok {
			ptable = d.Ptable
		}
		if ptable == "msdos" {
			slots, extendeds := 0, 0
			for _, p := range parts {
				switch p.Flag {
				case "logical":
				case "extended":
					extendeds++
					slots++
				default:
					slots++
				}
			}
			if extendeds > 1 {
				return &domain.SchemaError{Entry: diskID, Msg: "msdos table allows at most one extended partition"}
			}
			if slots > 4 {
				return &domain.SchemaError{Entry: diskID, Msg: fmt.Sprintf("msdos table allows at most 4 primary/extended entries, got %d", slots)}
			}
			if extendeds == 0 {
				for _, p := range parts {
					if p.Flag == "logical" {
						return &domain.SchemaError{Entry: p.ID, Msg: "logical partition requires an extended partition on the same disk"}
					}
				}
			}
		}

		if doc.Version == 2 {
			if err := checkOverlap(parts, false); err != nil {
				return err
			}
			// Logicals live inside the extended extent, so they only
			// overlap-check against each other.
			if err := checkOverlap(parts, true); err != nil {
				return err
			}
		}
	}
	return nil
}

type extent struct {
	id         string
	start, end uint64
}

func checkOverlap(parts []*domain.PartitionEntry, logical bool) error {
	var extents []extent
	for _, p := range parts {
		if (p.Flag == "logical") != logical || p.Offset == "" || p.Size == "" {
			continue
		}
		off, err := ParseSize(p.Offset)
		if err != nil {
			return &domain.SchemaError{Entry: p.ID, Msg: err.Error()}
		}
		sz, err := ParseSize(p.Size)
		if err != nil {
			return &domain.SchemaError{Entry: p.ID, Msg: err.Error()}
		}
		extents = append(extents, extent{id: p.ID, start: off, end: off + sz})
	}
	sort.Slice(extents, func(i, j int) bool { return extents[i].start < extents[j].start })
	for i := 1; i < len(extents); i++ {
		if extents[i-1].end > extents[i].start {
			return &domain.SchemaError{
				Entry: extents[i].id,
				Msg:   fmt.Sprintf("partition overlaps %q (starts at %d, previous ends at %d)", extents[i-1].id, extents[i].start, extents[i-1].end),
			}
		}
	}
	return nil
}

func validateEntry(e domain.Entry, ids map[string]domain.Entry) error {
	// invariant #2: an edge target either exists in this configuration or
	// names an already-materialized physical device; the latter can only
	// be resolved against the live host at probe time, so no existence
	// check happens here.
	switch v := e.(type) {
	case *domain.RAIDEntry:
		if len(v.Devices) == 0 {
			return fmt.Errorf("raid requires a non-empty \"devices\" list")
		}
		if !validRaidLevels[v.RaidLevel] {
			return fmt.Errorf("raid requires raidlevel in {0,1,5,6,10}, got %d", v.RaidLevel)
		}

	case *domain.DMCryptEntry:
		hasKey := v.Key != ""
		hasKeyfile := v.Keyfile != ""
		if hasKey == hasKeyfile {
			return fmt.Errorf("dm_crypt requires exactly one of \"key\" or \"keyfile\"")
		}

	case *domain.LVMVolgroupEntry:
		if v.Name == "" {
			return fmt.Errorf("lvm_volgroup requires \"name\"")
		}
		if len(v.Devices) == 0 {
			return fmt.Errorf("lvm_volgroup requires a non-empty \"devices\" list")
		}

	case *domain.LVMPartitionEntry:
		if v.Name == "" {
			return fmt.Errorf("lvm_partition requires \"name\"")
		}
		if v.Volgroup == "" {
			return fmt.Errorf("lvm_partition requires \"volgroup\"")
		}

	case *domain.FormatEntry:
		if v.Fstype == "" {
			return fmt.Errorf("format requires \"fstype\"")
		}
		if v.Volume == "" {
			return fmt.Errorf("format requires \"volume\"")
		}

	case *domain.MountEntry:
		// invariant #3: a mount references exactly one format, or a
		// literal spec with no device for special filesystems.
		if v.Device == "" && v.Spec == "" {
			return fmt.Errorf("mount requires either \"device\" or \"spec\"")
		}
		if v.Device != "" && v.Spec != "" {
			return fmt.Errorf("mount must not set both \"device\" and \"spec\"")
		}

	case *domain.BcacheEntry:
		if v.BackingDevice == "" {
			return fmt.Errorf("bcache requires \"backing_device\"")
		}
		if v.CacheMode != "" {
			switch v.CacheMode {
			case "writethrough", "writeback", "writearound", "none":
			default:
				return fmt.Errorf("bcache cache_mode must be one of writethrough, writeback, writearound, none")
			}
		}

	case *domain.ZpoolEntry:
		if v.Pool == "" {
			return fmt.Errorf("zpool requires \"pool\"")
		}
		if len(v.Vdevs) == 0 {
			return fmt.Errorf("zpool requires a non-empty \"vdevs\" list")
		}

	case *domain.ZFSEntry:
		if v.Pool == "" {
			return fmt.Errorf("zfs requires \"pool\"")
		}
		if v.Volume == "" {
			return fmt.Errorf("zfs requires \"volume\"")
		}

	case *domain.PartitionEntry:
		if v.Device == "" {
			return fmt.Errorf("partition requires \"device\"")
		}
		if v.Flag == "bios_grub" {
			// invariant #5: bios_grub partitions are exactly 1 MiB,
			// unformatted, at disk start; enforced precisely by the
			// partition executor once offsets are known, but a size
			// override here is already a contradiction.
			if v.Size != "" && v.Size != "1M" {
				return fmt.Errorf("bios_grub partitions must be 1M, got %q", v.Size)
			}
		}

	case *domain.DASDEntry:
		if v.DiskLayout != "" && v.DiskLayout != "cdl" && v.DiskLayout != "ldl" {
			return fmt.Errorf("dasd disk_layout must be cdl or ldl")
		}
		if v.Mode != "" {
			switch v.Mode {
			case "quick", "full", "expand":
			default:
				return fmt.Errorf("dasd mode must be one of quick, full, expand")
			}
		}
		if err := validateDASDLabel(v.Label); err != nil {
			return err
		}

	case *domain.NVMeControllerEntry:
		if v.Transport != "pcie" && v.Transport != "tcp" {
			return fmt.Errorf("nvme_controller transport must be pcie or tcp")
		}
		if v.Transport == "tcp" && (v.TCPAddr == "" || v.TCPPort == 0) {
			return fmt.Errorf("nvme_controller transport tcp requires tcp_addr and tcp_port")
		}
	}

	return nil
}

var reservedDASDLabels = map[string]bool{
	"MIGRAT": true, "SCRTCH": true, "PRIVAT": true,
}

func validateDASDLabel(label string) error {
	if label == "" {
		return nil
	}
	if len(label) != 6 {
		return fmt.Errorf("dasd label must be exactly 6 characters, got %d", len(label))
	}
	for _, r := range label {
		if r > 127 {
			return fmt.Errorf("dasd label must be ASCII (converted to EBCDIC at format time)")
		}
	}
	if reservedDASDLabels[label] {
		return fmt.Errorf("dasd label %q is reserved", label)
	}
	// "L?????" (L followed by five wildcard-looking placeholders) is
	// reserved regardless of the remaining characters.
	if label[0] == 'L' {
		return fmt.Errorf("dasd label starting with 'L' is reserved")
	}
	return nil
}
