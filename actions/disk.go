package actions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// DiskExecutor resolves a disk entry's identity and, unless preserved,
// wipes and partitions it (spec.md §4.5 "disk").
type DiskExecutor struct {
	Runner domain.ToolRunner
	Log    *logrus.Entry
}

func NewDiskExecutor(runner domain.ToolRunner, log *logrus.Entry) *DiskExecutor {
	return &DiskExecutor{Runner: runner, Log: log}
}

func (x *DiskExecutor) Type() domain.EntryType { return domain.TypeDisk }

func (x *DiskExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.DiskEntry)
	if !ok {
		return nil, fmt.Errorf("disk executor: unexpected entry type %T", req.Entry)
	}

	dev, err := probe.ResolveDisk(req.Snapshot, e, x.Log, nil)
	if err != nil {
		return nil, err
	}
	e.ResolvedPath = dev.DevPath

	if e.Preserve {
		return &domain.ExecResult{DevPath: dev.DevPath}, nil
	}

	if err := x.wipe(ctx, req, dev, e.Wipe); err != nil {
		return nil, err
	}

	if e.Ptable != "" {
		argv := []string{"parted", "-s", dev.DevPath, "mklabel", e.Ptable}
		if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutDefault); err != nil {
			return nil, err
		}
	}

	return &domain.ExecResult{DevPath: dev.DevPath, Reprobe: true}, nil
}

// wipe implements the five wipe policies of spec.md §4.5 "disk".
func (x *DiskExecutor) wipe(ctx context.Context, req *domain.ExecRequest, dev *domain.BlockDevice, mode string) error {
	switch mode {
	case "", "superblock":
		return x.wipeSuperblock(ctx, req, dev)
	case "superblock-recursive":
		// Member signatures discovered beneath the disk are cleared
		// before the disk's own metadata windows (spec.md §8 "wipe
		// semantics").
		for _, child := range dev.Children {
			if _, _, err := run(ctx, req, x.Runner, []string{"wipefs", "-a", "/dev/" + child}, tooldriver.TimeoutWipeZero); err != nil {
				return err
			}
		}
		return x.wipeSuperblock(ctx, req, dev)
	case "pvremove":
		_, _, err := run(ctx, req, x.Runner, []string{"pvremove", "-ff", "-y", dev.DevPath}, tooldriver.TimeoutLVM)
		return err
	case "zero":
		_, _, err := run(ctx, req, x.Runner, []string{"dd", "if=/dev/zero", "of=" + dev.DevPath, "bs=1M"}, tooldriver.TimeoutWipeZero)
		return err
	case "random":
		_, _, err := run(ctx, req, x.Runner, []string{"dd", "if=/dev/urandom", "of=" + dev.DevPath, "bs=1M"}, tooldriver.TimeoutWipeZero)
		return err
	default:
		return &domain.SchemaError{Entry: req.Entry.GetID(), Msg: fmt.Sprintf("unknown wipe mode %q", mode)}
	}
}

// wipeSuperblock zaps the metadata windows at both ends of the device:
// sgdisk for an existing GPT, whose backup header lives at the device
// tail, otherwise zeros over the first and last 1 MiB (spec.md §6
// tool-protocol surface).
func (x *DiskExecutor) wipeSuperblock(ctx context.Context, req *domain.ExecRequest, dev *domain.BlockDevice) error {
	if dev.PtableType == "gpt" {
		_, _, err := run(ctx, req, x.Runner, []string{"sgdisk", "--zap-all", dev.DevPath}, tooldriver.TimeoutWipeZero)
		return err
	}
	if _, _, err := run(ctx, req, x.Runner,
		[]string{"dd", "if=/dev/zero", "of=" + dev.DevPath, "bs=1M", "count=1"}, tooldriver.TimeoutWipeZero); err != nil {
		return err
	}
	if dev.Size > 1<<20 {
		seek := dev.Size/(1<<20) - 1
		if _, _, err := run(ctx, req, x.Runner,
			[]string{"dd", "if=/dev/zero", "of=" + dev.DevPath, "bs=1M", "count=1",
				"seek=" + strconv.FormatUint(seek, 10)}, tooldriver.TimeoutWipeZero); err != nil {
			return err
		}
	}
	return nil
}

func (x *DiskExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.DiskEntry)
	dev, err := probe.ResolveDisk(req.Snapshot, e, x.Log, nil)
	if err != nil {
		return err
	}
	if e.Ptable != "" && dev.PtableType != e.Ptable {
		return &domain.VerificationError{Entry: e.ID, Field: "ptable", Expected: e.Ptable, Observed: dev.PtableType}
	}
	return nil
}
