package actions

import (
	"context"
	"fmt"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// fallbackNodevFstypes is only consulted when /proc/filesystems cannot be
// read (spec.md §9: the passno fstype set is probed at runtime, not
// hard-coded; this list covers the no-procfs test environment).
var fallbackNodevFstypes = map[string]bool{
	"tmpfs": true, "proc": true, "sysfs": true, "devpts": true,
	"overlay": true, "nfs": true, "nfs4": true, "cifs": true,
}

// MountExecutor computes an fstab record for a format/device/raw spec and,
// unless the entry is a fstab-only synthetic swap entry, bind-mounts the
// device under the target (spec.md §4.5 "mount").
type MountExecutor struct {
	Runner domain.ToolRunner
	FS     afero.Fs
}

func NewMountExecutor(runner domain.ToolRunner, fs afero.Fs) *MountExecutor {
	return &MountExecutor{Runner: runner, FS: fs}
}

func (x *MountExecutor) Type() domain.EntryType { return domain.TypeMount }

func (x *MountExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.MountEntry)
	if !ok {
		return nil, fmt.Errorf("mount executor: unexpected entry type %T", req.Entry)
	}

	spec, fstype, netdev, err := x.identify(req, e)
	if err != nil {
		return nil, err
	}

	opts := e.Options
	if opts == "" {
		opts = "defaults"
	}
	if netdev {
		opts += ",_netdev"
	}

	passno := 1
	if x.nodevSet()[fstype] {
		passno = 0
	}

	path := e.Path
	if path == "" {
		path = "none"
	}

	req.Fstab.Add(domain.FstabRecord{
		Spec:    spec,
		Path:    path,
		FsType:  fstype,
		Options: opts,
		Freq:    0,
		Passno:  passno,
		Depth:   pathDepth(path),
	})

	if e.NoMount || path == "none" {
		return &domain.ExecResult{DevPath: spec}, nil
	}

	// path comes from the config document, not from anything the target
	// filesystem controls, but SecureJoin still keeps a "../../etc" style
	// mount path from escaping the target root (spec.md §4.5 "mount").
	target, err := securejoin.SecureJoin(req.Target, path)
	if err != nil {
		return nil, fmt.Errorf("mount %q: resolving target path: %w", e.ID, err)
	}
	if _, _, err := run(ctx, req, x.Runner, []string{"mkdir", "-p", target}, tooldriver.TimeoutDefault); err != nil {
		return nil, err
	}
	if _, _, err := run(ctx, req, x.Runner, []string{"mount", "--bind", spec, target}, tooldriver.TimeoutDefault); err != nil {
		return nil, err
	}

	return &domain.ExecResult{DevPath: spec}, nil
}

// nodevSet reads the "nodev" rows out of /proc/filesystems; those
// filesystems never get an fsck pass, so they take passno 0 (spec.md §4.5
// "mount", §9: this set is probed at runtime, never hard-coded).
func (x *MountExecutor) nodevSet() map[string]bool {
	if x.FS == nil {
		return fallbackNodevFstypes
	}
	data, err := afero.ReadFile(x.FS, "/proc/filesystems")
	if err != nil {
		return fallbackNodevFstypes
	}
	set := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[0] == "nodev" {
			set[fields[1]] = true
		}
	}
	if len(set) == 0 {
		return fallbackNodevFstypes
	}
	return set
}

// identify picks the most reliable fstab identifier (spec.md §4.5
// "mount"): filesystem UUID for partitions, a device path for
// constructed devices (raid/lvm), or the literal spec otherwise.
func (x *MountExecutor) identify(req *domain.ExecRequest, e *domain.MountEntry) (spec, fstype string, netdev bool, err error) {
	if e.Device == "" {
		return e.Spec, "", false, nil
	}

	dep, ok := req.Graph.Lookup(e.Device)
	if !ok {
		path, rerr := resolve(req, e.Device)
		return path, "", false, rerr
	}

	path := dep.GetCommon().ResolvedPath
	if path == "" {
		return "", "", false, fmt.Errorf("mount %q: dependency %q has not been resolved yet", e.ID, e.Device)
	}

	dev, known := req.Snapshot.Devices[baseName(path)]
	if dev != nil {
		fstype = dev.FsType
	}

	netdev = iscsiBacked(req.Graph, e.Device)

	// A mount normally references a format entry; the identifier choice
	// depends on what the format sits on, so unwrap to the volume entry.
	eff := dep
	if fe, isFormat := dep.(*domain.FormatEntry); isFormat {
		if under, found := req.Graph.Lookup(fe.Volume); found {
			eff = under
		}
	}

	if eff.GetType() == domain.TypePartition && known && dev.FsUUID != "" {
		return "UUID=" + dev.FsUUID, fstype, netdev, nil
	}
	return path, fstype, netdev, nil
}

// iscsiBacked reports whether any disk in the dependency chain below id
// is iSCSI-attached; such mounts gain _netdev so they are deferred until
// networking is up (spec.md §4.5 "mount", §8 "iSCSI entries contain
// _netdev").
func iscsiBacked(g *domain.Graph, id string) bool {
	seen := make(map[string]bool)
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] {
			continue
		}
		seen[cur] = true
		e, ok := g.Lookup(cur)
		if !ok {
			continue
		}
		if d, ok := e.(*domain.DiskEntry); ok && d.ISCSI != "" {
			return true
		}
		queue = append(queue, e.DependsOn()...)
	}
	return false
}

func pathDepth(path string) int {
	depth := 0
	for _, r := range path {
		if r == '/' {
			depth++
		}
	}
	return depth
}
