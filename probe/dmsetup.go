package probe

import (
	"context"
	"strings"

	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// annotateDMTargets refines dm-N nodes from the default "lvm-lv" guess
// into "crypt" when dmsetup reports a crypt target, using `dmsetup info
// -c --noheadings -o name,uuid` (spec.md §4.1 inputs: "dmsetup").
func (s *Service) annotateDMTargets(snap *domain.Snapshot) {
	stdout, _, err := s.runner.Run(context.Background(),
		[]string{"dmsetup", "info", "-c", "--noheadings", "-o", "name,uuid"},
		tooldriver.TimeoutDefault)
	if err != nil {
		return
	}

	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		name, uuid := fields[0], fields[1]
		kname := s.resolveDMName(snap, name)
		if kname == "" {
			continue
		}
		dev := snap.Devices[kname]
		if dev == nil {
			continue
		}
		switch {
		case strings.HasPrefix(uuid, "CRYPT-"):
			dev.DevType = domain.DevCrypt
		case strings.HasPrefix(uuid, "LVM-"):
			dev.DevType = domain.DevLVMLV
		}
	}
}

// resolveDMName maps a dm target's mapper name to its dm-N kname by
// scanning /sys/class/block/dm-*/dm/name (falls back to a direct kname
// match for tests that stub devices by dm-name directly).
func (s *Service) resolveDMName(snap *domain.Snapshot, name string) string {
	if _, ok := snap.Devices[name]; ok {
		return name
	}
	for kname := range snap.Devices {
		if !strings.HasPrefix(kname, "dm-") {
			continue
		}
		data, err := afero.ReadFile(s.fs, sysClassBlock+"/"+kname+"/dm/name")
		if err == nil && strings.TrimSpace(string(data)) == name {
			return kname
		}
	}
	return ""
}
