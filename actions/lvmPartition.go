package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/config"
	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// LVMPartitionExecutor runs lvcreate inside an existing volume group
// (spec.md §4.5 "lvm_partition").
type LVMPartitionExecutor struct {
	Runner domain.ToolRunner
}

func NewLVMPartitionExecutor(runner domain.ToolRunner) *LVMPartitionExecutor {
	return &LVMPartitionExecutor{Runner: runner}
}

func (x *LVMPartitionExecutor) Type() domain.EntryType { return domain.TypeLVMPartition }

func (x *LVMPartitionExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.LVMPartitionEntry)
	if !ok {
		return nil, fmt.Errorf("lvm_partition executor: unexpected entry type %T", req.Entry)
	}

	vg, err := resolve(req, e.Volgroup)
	if err != nil {
		return nil, err
	}
	vgName := baseName(vg)
	path := fmt.Sprintf("/dev/%s/%s", vgName, e.Name)

	if e.Preserve {
		e.ResolvedPath = path
		return &domain.ExecResult{DevPath: path}, nil
	}

	argv := []string{"lvcreate", "-n", e.Name}
	if e.Size != "" {
		argv = append(argv, "-L", e.Size)
	} else {
		argv = append(argv, "-l", "100%FREE")
	}
	argv = append(argv, vgName)
	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutLVM); err != nil {
		return nil, err
	}

	e.ResolvedPath = path
	return &domain.ExecResult{DevPath: path, Reprobe: true}, nil
}

func (x *LVMPartitionExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.LVMPartitionEntry)
	vg, err := resolve(req, e.Volgroup)
	if err != nil {
		return err
	}
	exists, err := probe.LVExists(ctx, x.Runner, baseName(vg), e.Name)
	if err != nil {
		return err
	}
	if !exists {
		return &domain.VerificationError{Entry: e.ID, Field: "existence", Expected: "present", Observed: "absent"}
	}
	if e.Size != "" {
		want, err := config.ParseSize(e.Size)
		if err == nil {
			if dev, ok := req.Snapshot.Devices[baseName(e.ResolvedPath)]; ok && dev.Size != 0 && dev.Size != want {
				return &domain.VerificationError{Entry: e.ID, Field: "size", Expected: e.Size, Observed: config.FormatSize(dev.Size)}
			}
		}
	}
	return nil
}
