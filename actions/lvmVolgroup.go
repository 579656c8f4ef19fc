package actions

import (
	"context"
	"fmt"
	"sort"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// LVMVolgroupExecutor runs pvcreate over each member device then vgcreate
// (spec.md §4.5 "lvm_volgroup").
type LVMVolgroupExecutor struct {
	Runner domain.ToolRunner
}

func NewLVMVolgroupExecutor(runner domain.ToolRunner) *LVMVolgroupExecutor {
	return &LVMVolgroupExecutor{Runner: runner}
}

func (x *LVMVolgroupExecutor) Type() domain.EntryType { return domain.TypeLVMVolgroup }

func (x *LVMVolgroupExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.LVMVolgroupEntry)
	if !ok {
		return nil, fmt.Errorf("lvm_volgroup executor: unexpected entry type %T", req.Entry)
	}

	members, err := resolveAll(req, e.Devices)
	if err != nil {
		return nil, err
	}

	path := "/dev/" + e.Name

	if e.Preserve {
		e.ResolvedPath = path
		return &domain.ExecResult{DevPath: path}, nil
	}

	for _, m := range members {
		if _, _, err := run(ctx, req, x.Runner, []string{"pvcreate", "-ff", "-y", m}, tooldriver.TimeoutLVM); err != nil {
			return nil, err
		}
	}

	argv := append([]string{"vgcreate", e.Name}, members...)
	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutLVM); err != nil {
		return nil, err
	}

	e.ResolvedPath = path
	return &domain.ExecResult{DevPath: path, Reprobe: true}, nil
}

func (x *LVMVolgroupExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.LVMVolgroupEntry)
	detail, err := probe.DetailVG(ctx, x.Runner, e.Name)
	if err != nil {
		return err
	}
	if len(detail.PVs) == 0 {
		return &domain.VerificationError{Entry: e.ID, Field: "existence", Expected: "present", Observed: "absent"}
	}

	members, err := resolveAll(req, e.Devices)
	if err != nil {
		return err
	}
	want := append([]string{}, members...)
	got := append([]string{}, detail.PVs...)
	sort.Strings(want)
	sort.Strings(got)
	if !equalStrings(want, got) {
		return &domain.VerificationError{
			Entry: e.ID, Field: "devices",
			Expected: fmt.Sprintf("%v", want), Observed: fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func resolveAll(req *domain.ExecRequest, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		p, err := resolve(req, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
