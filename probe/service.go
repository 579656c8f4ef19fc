// Package probe builds a consistent snapshot of the current block
// topology from sysfs, lsblk, dmsetup, the /dev/disk symlink trees and
// mountinfo; mdadm --detail, vgs/lvs, multipath -ll and zpool list are
// queried on demand by this package's helpers. It never caches across
// calls: every mutating action forces a fresh Probe() (spec.md §5).
package probe

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
)

const sysClassBlock = "/sys/class/block"

// Service implements domain.Prober. fs abstracts sysfs reads (afero.Fs,
// real OsFs in production, MemMapFs in tests); runner abstracts the
// supplementary tool invocations.
type Service struct {
	fs     afero.Fs
	runner domain.ToolRunner
	log    *logrus.Entry

	// byIDCache is a fresh LRU built on every Probe() call and never
	// carried forward, honoring "no caching across action boundaries"
	// (spec.md §4.1). Nothing reads it: populateByID does not consult it,
	// and every ResolveDisk caller passes a nil cache.
	byIDCache *lru.Cache
}

func NewService(fs afero.Fs, runner domain.ToolRunner, log *logrus.Entry) *Service {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{fs: fs, runner: runner, log: log}
}

// Probe rebuilds the full snapshot from scratch.
func (s *Service) Probe(ctx context.Context) (*domain.Snapshot, error) {
	cache, err := lru.New(256)
	if err != nil {
		return nil, err
	}
	s.byIDCache = cache

	knames, err := listBlockDevices(s.fs)
	if err != nil {
		return nil, fmt.Errorf("probe: listing %s: %w", sysClassBlock, err)
	}

	snap := &domain.Snapshot{Devices: make(map[string]*domain.BlockDevice, len(knames))}

	for _, kname := range knames {
		dev, err := s.readDevice(kname)
		if err != nil {
			// Per spec.md §4.1: probe errors on individual tools are
			// warnings unless a subsequent action depends on the output.
			s.log.WithError(err).WithField("kname", kname).Warn("probe: failed to read device, skipping")
			continue
		}
		snap.Devices[kname] = dev
	}

	linkPartitions(snap)

	if err := s.annotateFromLsblk(ctx, snap); err != nil {
		s.log.WithError(err).Warn("probe: lsblk annotation failed")
	}
	if err := s.annotateHolders(snap); err != nil {
		s.log.WithError(err).Warn("probe: holder-graph annotation failed")
	}
	populateByID(snap, s.log)

	mounts, err := readMountinfo()
	if err != nil {
		s.log.WithError(err).Warn("probe: failed to read mountinfo")
		mounts = map[string]domain.MountInfo{}
	}
	snap.Mounts = mounts

	return snap, nil
}

func listBlockDevices(fs afero.Fs) ([]string, error) {
	entries, err := afero.ReadDir(fs, sysClassBlock)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *Service) readDevice(kname string) (*domain.BlockDevice, error) {
	sysPath := sysClassBlock + "/" + kname
	dev := &domain.BlockDevice{
		KName:   kname,
		SysPath: sysPath,
		DevPath: "/dev/" + kname,
		DevType: domain.DevDisk,
	}

	if size, err := readUintFile(s.fs, sysPath+"/size"); err == nil {
		dev.Size = size * 512
	}
	if ro, err := readUintFile(s.fs, sysPath+"/ro"); err == nil {
		dev.ReadOnly = ro != 0
	}

	if exists(s.fs, sysPath+"/partition") {
		dev.DevType = domain.DevPartition
		if n, err := readUintFile(s.fs, sysPath+"/partition"); err == nil {
			dev.PartitionNumber = int(n)
		}
		if start, err := readUintFile(s.fs, sysPath+"/start"); err == nil {
			dev.Offset = start * 512
		}
	}

	if parents, err := afero.ReadDir(s.fs, sysPath+"/slaves"); err == nil {
		for _, p := range parents {
			dev.Parents = append(dev.Parents, p.Name())
		}
	}
	if children, err := afero.ReadDir(s.fs, sysPath+"/holders"); err == nil {
		for _, c := range children {
			dev.Children = append(dev.Children, c.Name())
		}
	}

	return dev, nil
}

func exists(fs afero.Fs, path string) bool {
	ok, _ := afero.Exists(fs, path)
	return ok
}

func readUintFile(fs afero.Fs, path string) (uint64, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return 0, err
	}
	var v uint64
	_, err = fmt.Sscanf(string(data), "%d", &v)
	return v, err
}

// annotateHolders derives DevType for constructed devices (raid, lvm,
// crypt, bcache, mpath) from dm/md naming conventions and sysfs markers
// that listBlockDevices/readDevice alone can't distinguish from a plain
// partition. Real disambiguation for dm targets additionally consults
// dmsetup (see annotateDMTargets in dmsetup.go, called from here).
func (s *Service) annotateHolders(snap *domain.Snapshot) error {
	for kname, dev := range snap.Devices {
		switch {
		case hasPrefix(kname, "md"):
			dev.DevType = domain.DevRAID
		case hasPrefix(kname, "dm-"):
			dev.DevType = domain.DevLVMLV // refined by annotateDMTargets via dmsetup
		case hasPrefix(kname, "bcache"):
			dev.DevType = domain.DevBcache
		}
	}
	if s.runner != nil {
		s.annotateDMTargets(snap)
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// linkPartitions wires partition<->disk edges. sysfs expresses this
// relation by directory nesting (/sys/class/block/sda/sda1), not via the
// slaves/holders symlinks used for dm/md devices, so the per-device read
// pass never sees it.
func linkPartitions(snap *domain.Snapshot) {
	for kname, dev := range snap.Devices {
		if dev.DevType != domain.DevPartition || len(dev.Parents) > 0 {
			continue
		}
		parent := partitionParent(snap, kname)
		if parent == "" {
			continue
		}
		dev.Parents = append(dev.Parents, parent)
		p := snap.Devices[parent]
		if !containsKName(p.Children, kname) {
			p.Children = append(p.Children, kname)
		}
	}
}

// partitionParent strips the trailing partition number (and the 'p'
// separator nvme/mmcblk/loop names carry) off kname and returns the
// resulting parent if it exists in the snapshot.
func partitionParent(snap *domain.Snapshot, kname string) string {
	i := len(kname)
	for i > 0 && kname[i-1] >= '0' && kname[i-1] <= '9' {
		i--
	}
	if i == len(kname) || i == 0 {
		return ""
	}
	trimmed := kname[:i]
	if len(trimmed) > 1 && trimmed[len(trimmed)-1] == 'p' {
		base := trimmed[:len(trimmed)-1]
		if last := base[len(base)-1]; last >= '0' && last <= '9' {
			if _, ok := snap.Devices[base]; ok {
				return base
			}
		}
	}
	if _, ok := snap.Devices[trimmed]; ok {
		return trimmed
	}
	return ""
}

func containsKName(list []string, kname string) bool {
	for _, k := range list {
		if k == kname {
			return true
		}
	}
	return false
}
