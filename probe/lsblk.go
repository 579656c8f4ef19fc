package probe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

type lsblkDevice struct {
	Name       string        `json:"name"`
	KName      string        `json:"kname"`
	Type       string        `json:"type"`
	FsType     string        `json:"fstype"`
	UUID       string        `json:"uuid"`
	Label      string        `json:"label"`
	MountPoint string        `json:"mountpoint"`
	PtType     string        `json:"pttype"`
	Serial     string        `json:"serial"`
	WWN        string        `json:"wwn"`
	Children   []lsblkDevice `json:"children"`
}

// annotateFromLsblk enriches the sysfs-derived snapshot with filesystem,
// partition-table, and identity metadata lsblk surfaces more reliably
// than direct sysfs reads (spec.md §4.1 inputs: "lsblk").
func (s *Service) annotateFromLsblk(ctx context.Context, snap *domain.Snapshot) error {
	if s.runner == nil {
		return nil
	}

	stdout, _, err := s.runner.Run(ctx, []string{
		"lsblk", "--json", "--bytes",
		"-o", "NAME,KNAME,TYPE,FSTYPE,UUID,LABEL,MOUNTPOINT,PTTYPE,SERIAL,WWN",
	}, tooldriver.TimeoutDefault)
	if err != nil {
		return fmt.Errorf("lsblk: %w", err)
	}

	var out lsblkOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		return fmt.Errorf("lsblk: parsing JSON: %w", err)
	}

	var walk func(d lsblkDevice)
	walk = func(d lsblkDevice) {
		if dev, ok := snap.Devices[d.KName]; ok {
			dev.FsType = d.FsType
			dev.FsUUID = d.UUID
			dev.FsLabel = d.Label
			dev.Serial = d.Serial
			dev.WWN = d.WWN
			if d.PtType != "" {
				dev.PtableType = normalizePtType(d.PtType)
			}
			switch d.Type {
			case "part":
				dev.DevType = domain.DevPartition
			case "disk":
				dev.DevType = domain.DevDisk
			case "raid0", "raid1", "raid4", "raid5", "raid6", "raid10":
				dev.DevType = domain.DevRAID
			case "lvm":
				dev.DevType = domain.DevLVMLV
			case "crypt":
				dev.DevType = domain.DevCrypt
			case "mpath":
				dev.DevType = domain.DevMpath
			}
		}
		for _, c := range d.Children {
			walk(c)
		}
	}
	for _, d := range out.BlockDevices {
		walk(d)
	}

	return nil
}

func normalizePtType(pttype string) string {
	switch pttype {
	case "dos":
		return "msdos"
	case "gpt":
		return "gpt"
	default:
		return pttype
	}
}
