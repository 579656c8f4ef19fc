package probe

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"github.com/canonical/curtin-storage-engine/domain"
)

// ResolveDisk implements the priority order of spec.md §3 "Identity of
// physical disks": serial, wwn, path, multipath (member/WWID), iSCSI URI,
// nvme_controller reference. It returns the matching BlockDevice, or a
// *domain.ProbeError if none of the configured identifiers resolve.
//
// Per spec.md §8 "Identity": when serial resolves the device, the
// executor must still open it via serial even if "path" disagrees; a
// warning (not an error) is logged in that case.
func ResolveDisk(snap *domain.Snapshot, e *domain.DiskEntry, log *logrus.Entry, cache *lru.Cache) (*domain.BlockDevice, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	var bySerial, byPath *domain.BlockDevice

	if e.Serial != "" {
		if cached, ok := cacheGet(cache, "serial:"+e.Serial); ok {
			bySerial = cached
		} else {
			bySerial = findBy(snap, func(d *domain.BlockDevice) bool { return d.Serial == e.Serial })
			cacheSet(cache, "serial:"+e.Serial, bySerial)
		}
	}
	if e.WWN != "" && bySerial == nil {
		if dev := findBy(snap, func(d *domain.BlockDevice) bool { return d.WWN == e.WWN }); dev != nil {
			return dev, nil
		}
	}
	if e.Path != "" {
		if cached, ok := cacheGet(cache, "path:"+e.Path); ok {
			byPath = cached
		} else {
			byPath = findBy(snap, func(d *domain.BlockDevice) bool { return d.DevPath == e.Path })
			cacheSet(cache, "path:"+e.Path, byPath)
		}
	}

	if bySerial != nil {
		if e.Path != "" && byPath != nil && byPath.KName != bySerial.KName {
			log.Warnf(
				"disk %s: serial %q resolved to %s but configured path %q resolves to %s; using serial match",
				e.ID, e.Serial, bySerial.DevPath, e.Path, byPath.DevPath,
			)
		}
		return bySerial, nil
	}
	if byPath != nil {
		return byPath, nil
	}

	if e.Multipath != "" {
		if dev := findBy(snap, func(d *domain.BlockDevice) bool { return d.DevType == domain.DevMpath && d.Serial == e.Multipath }); dev != nil {
			return dev, nil
		}
	}

	if e.ISCSI != "" {
		return nil, &domain.ProbeError{Entry: e.ID, Msg: fmt.Sprintf("iSCSI target %q did not resolve to a local device; connect must precede clear-holders", e.ISCSI)}
	}

	if e.NVMeController != "" {
		if dev := findBy(snap, func(d *domain.BlockDevice) bool { return d.DevType == domain.DevDisk }); dev != nil {
			return dev, nil
		}
	}

	return nil, &domain.ProbeError{Entry: e.ID, Msg: "no configured identifier (serial, wwn, path, multipath, iscsi, nvme_controller) resolved to a device"}
}

func findBy(snap *domain.Snapshot, pred func(*domain.BlockDevice) bool) *domain.BlockDevice {
	for _, d := range snap.Devices {
		if pred(d) {
			return d
		}
	}
	return nil
}

func cacheGet(cache *lru.Cache, key string) (*domain.BlockDevice, bool) {
	if cache == nil {
		return nil, false
	}
	v, ok := cache.Get(key)
	if !ok {
		return nil, false
	}
	dev, _ := v.(*domain.BlockDevice)
	return dev, true
}

func cacheSet(cache *lru.Cache, key string, dev *domain.BlockDevice) {
	if cache == nil {
		return
	}
	cache.Add(key, dev)
}
