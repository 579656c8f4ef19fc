package probe

import (
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/sirupsen/logrus"

	"github.com/canonical/curtin-storage-engine/domain"
)

// populateByID walks /dev/disk/by-id and /dev/disk/by-path on the real
// filesystem (godirwalk, not the afero.Fs abstraction the rest of this
// package uses for /sys/class/block, since /dev/disk is a tree of symlinks
// godirwalk is built to walk quickly) and fills in Serial/WWN for any
// device spec.md §3's identity resolution still needs it for. A missing
// /dev/disk tree (containers, some test hosts) is a warning, not a probe
// failure — identity still has path/multipath/iscsi/nvme_controller to
// fall back on.
func populateByID(snap *domain.Snapshot, log *logrus.Entry) {
	for _, dir := range []string{"/dev/disk/by-id", "/dev/disk/by-path"} {
		walkByIDDir(dir, snap, log)
	}
}

func walkByIDDir(dir string, snap *domain.Snapshot, log *logrus.Entry) {
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == dir {
				return nil
			}
			if !de.IsSymlink() {
				return nil
			}
			target, err := filepath.EvalSymlinks(osPathname)
			if err != nil {
				return nil
			}
			dev, ok := snap.Devices[filepath.Base(target)]
			if !ok {
				return nil
			}
			name := filepath.Base(osPathname)
			switch {
			case dev.WWN == "" && strings.HasPrefix(name, "wwn-"):
				dev.WWN = strings.TrimPrefix(name, "wwn-")
			case dev.Serial == "" && (strings.HasPrefix(name, "scsi-") || strings.HasPrefix(name, "ata-")):
				dev.Serial = name
			}
			return nil
		},
	})
	if err != nil {
		log.WithError(err).WithField("dir", dir).Debug("probe: by-id/by-path walk unavailable")
	}
}
