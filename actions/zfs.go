package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// ZFSExecutor creates one dataset within a pool (spec.md §4.5 "zfs").
type ZFSExecutor struct {
	Runner domain.ToolRunner
}

func NewZFSExecutor(runner domain.ToolRunner) *ZFSExecutor {
	return &ZFSExecutor{Runner: runner}
}

func (x *ZFSExecutor) Type() domain.EntryType { return domain.TypeZFS }

func (x *ZFSExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.ZFSEntry)
	if !ok {
		return nil, fmt.Errorf("zfs executor: unexpected entry type %T", req.Entry)
	}

	dataset := e.Pool + "/" + e.Volume
	path := "/" + dataset

	if e.Preserve {
		e.ResolvedPath = path
		return &domain.ExecResult{DevPath: path}, nil
	}

	argv := []string{"zfs", "create"}
	for k, v := range e.Properties {
		argv = append(argv, "-o", k+"="+v)
	}
	argv = append(argv, dataset)

	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutZpool); err != nil {
		return nil, err
	}

	e.ResolvedPath = path
	return &domain.ExecResult{DevPath: path, Reprobe: true}, nil
}
