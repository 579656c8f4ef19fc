package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// BcacheExecutor pairs a backing device with an optional cache device
// (spec.md §4.5 "bcache").
type BcacheExecutor struct {
	Runner domain.ToolRunner
}

func NewBcacheExecutor(runner domain.ToolRunner) *BcacheExecutor {
	return &BcacheExecutor{Runner: runner}
}

func (x *BcacheExecutor) Type() domain.EntryType { return domain.TypeBcache }

func (x *BcacheExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.BcacheEntry)
	if !ok {
		return nil, fmt.Errorf("bcache executor: unexpected entry type %T", req.Entry)
	}

	backing, err := resolve(req, e.BackingDevice)
	if err != nil {
		return nil, err
	}

	path := "/dev/bcache0"
	if e.Preserve {
		e.ResolvedPath = path
		return &domain.ExecResult{DevPath: path}, nil
	}

	argv := []string{"make-bcache", "-B", backing}
	if e.CacheDevice != "" {
		cache, err := resolve(req, e.CacheDevice)
		if err != nil {
			return nil, err
		}
		argv = append(argv, "-C", cache)
	}
	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutDefault); err != nil {
		return nil, err
	}

	if e.CacheMode != "" {
		modeArgv := []string{"bash", "-c", fmt.Sprintf("echo %s > /sys/block/bcache0/bcache/cache_mode", e.CacheMode)}
		if _, _, err := run(ctx, req, x.Runner, modeArgv, tooldriver.TimeoutDefault); err != nil {
			return nil, err
		}
	}

	e.ResolvedPath = path
	return &domain.ExecResult{DevPath: path, Reprobe: true}, nil
}

func (x *BcacheExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.BcacheEntry)
	dev, ok := req.Snapshot.Devices["bcache0"]
	if !ok {
		return &domain.VerificationError{Entry: e.ID, Field: "existence", Expected: "present", Observed: "absent"}
	}
	backing, err := resolve(req, e.BackingDevice)
	if err != nil {
		return err
	}
	found := false
	for _, p := range dev.Parents {
		if p == baseName(backing) {
			found = true
		}
	}
	if !found {
		return &domain.VerificationError{Entry: e.ID, Field: "backing_device", Expected: backing, Observed: fmt.Sprintf("%v", dev.Parents)}
	}
	return nil
}
