package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// DASDExecutor performs the s390x ECKD low-level format ahead of any disk
// entry referencing the same device_id (spec.md §4.5 "dasd"). Label and
// layout validity are enforced by the schema loader before this ever
// runs; see config/validate.go.
type DASDExecutor struct {
	Runner domain.ToolRunner
}

func NewDASDExecutor(runner domain.ToolRunner) *DASDExecutor {
	return &DASDExecutor{Runner: runner}
}

func (x *DASDExecutor) Type() domain.EntryType { return domain.TypeDASD }

func (x *DASDExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.DASDEntry)
	if !ok {
		return nil, fmt.Errorf("dasd executor: unexpected entry type %T", req.Entry)
	}

	path := "/dev/disk/by-path/ccw-" + e.DeviceID

	argv := []string{"dasdfmt", "-y", "-b", blocksizeArg(e.Blocksize), "-d", layoutArg(e.DiskLayout)}
	if e.Label != "" {
		argv = append(argv, "--label", e.Label)
	}
	switch e.Mode {
	case "quick":
		argv = append(argv, "-m", "1")
	case "expand":
		argv = append(argv, "--keep_volser")
	}
	argv = append(argv, path)

	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutDefault); err != nil {
		return nil, err
	}

	e.ResolvedPath = path
	return &domain.ExecResult{DevPath: path, Reprobe: true}, nil
}

func blocksizeArg(n int) string {
	if n == 0 {
		return "4096"
	}
	return fmt.Sprintf("%d", n)
}

func layoutArg(layout string) string {
	if layout == "" {
		return "cdl"
	}
	return layout
}
