package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// FormatExecutor invokes mkfs.<fstype> against a resolved volume
// (spec.md §4.5 "format"). A zfsroot-marked entry never reaches this
// executor: the planner expands it into zpool + zfs actions first.
type FormatExecutor struct {
	Runner domain.ToolRunner
}

func NewFormatExecutor(runner domain.ToolRunner) *FormatExecutor {
	return &FormatExecutor{Runner: runner}
}

func (x *FormatExecutor) Type() domain.EntryType { return domain.TypeFormat }

func (x *FormatExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.FormatEntry)
	if !ok {
		return nil, fmt.Errorf("format executor: unexpected entry type %T", req.Entry)
	}

	volPath, err := resolve(req, e.Volume)
	if err != nil {
		return nil, err
	}

	e.ResolvedPath = volPath

	if e.Preserve {
		return &domain.ExecResult{DevPath: volPath}, nil
	}

	argv := []string{"mkfs." + e.Fstype}
	switch e.Fstype {
	case "fat12", "fat16", "fat32", "vfat":
		argv = append(argv, "-F", fatTableSize(e.Fstype))
		if e.Label != "" {
			argv = append(argv, "-n", e.Label)
		}
	case "ext2", "ext3", "ext4":
		if e.Label != "" {
			argv = append(argv, "-L", e.Label)
		}
		if e.UUID != "" {
			argv = append(argv, "-U", e.UUID)
		}
	default:
		// unknown fstype: mkfs.<fstype> is invoked verbatim, label ignored
		// (spec.md §4.5 "format").
	}
	argv = append(argv, e.ExtraOptions...)
	argv = append(argv, volPath)

	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutMkfs); err != nil {
		return nil, err
	}

	return &domain.ExecResult{DevPath: volPath, Reprobe: true}, nil
}

func fatTableSize(fstype string) string {
	switch fstype {
	case "fat12":
		return "12"
	case "fat16":
		return "16"
	default:
		return "32"
	}
}

func (x *FormatExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.FormatEntry)
	volPath, err := resolve(req, e.Volume)
	if err != nil {
		return err
	}
	dev, ok := req.Snapshot.Devices[baseName(volPath)]
	if !ok {
		return &domain.VerificationError{Entry: e.ID, Field: "existence", Expected: "present", Observed: "absent"}
	}
	if dev.FsType != e.Fstype {
		return &domain.VerificationError{Entry: e.ID, Field: "fstype", Expected: e.Fstype, Observed: dev.FsType}
	}
	if e.UUID != "" && dev.FsUUID != e.UUID {
		return &domain.VerificationError{Entry: e.ID, Field: "uuid", Expected: e.UUID, Observed: dev.FsUUID}
	}
	if e.Label != "" && dev.FsLabel != e.Label {
		return &domain.VerificationError{Entry: e.ID, Field: "label", Expected: e.Label, Observed: dev.FsLabel}
	}
	return nil
}
