package actions

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// RAIDExecutor assembles an mdadm array and, if ptable is set, a
// partition table on top of it (spec.md §4.5 "raid").
type RAIDExecutor struct {
	Runner domain.ToolRunner
}

func NewRAIDExecutor(runner domain.ToolRunner) *RAIDExecutor {
	return &RAIDExecutor{Runner: runner}
}

func (x *RAIDExecutor) Type() domain.EntryType { return domain.TypeRAID }

func (x *RAIDExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.RAIDEntry)
	if !ok {
		return nil, fmt.Errorf("raid executor: unexpected entry type %T", req.Entry)
	}

	name := e.Name
	if name == "" {
		name = e.ID
	}
	path := "/dev/" + name

	members, err := resolveAll(req, e.Devices)
	if err != nil {
		return nil, err
	}
	spares, err := resolveAll(req, e.SpareDevices)
	if err != nil {
		return nil, err
	}

	if e.Preserve {
		e.ResolvedPath = path
		return &domain.ExecResult{DevPath: path}, nil
	}

	argv := []string{"mdadm", "--create", path,
		"--level=" + strconv.Itoa(e.RaidLevel),
		"-n", strconv.Itoa(len(members)),
		"--assume-clean",
	}
	if e.MetadataVer != "" {
		argv = append(argv, "--metadata="+e.MetadataVer)
	}
	argv = append(argv, members...)
	if len(spares) > 0 {
		argv = append(argv, "--spare-devices="+strconv.Itoa(len(spares)))
		argv = append(argv, spares...)
	}

	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutMdadm); err != nil {
		return nil, err
	}

	if e.Ptable != "" {
		if _, _, err := run(ctx, req, x.Runner, []string{"parted", "-s", path, "mklabel", e.Ptable}, tooldriver.TimeoutDefault); err != nil {
			return nil, err
		}
	}

	e.ResolvedPath = path
	return &domain.ExecResult{DevPath: path, Reprobe: true}, nil
}

func (x *RAIDExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.RAIDEntry)
	name := e.Name
	if name == "" {
		name = e.ID
	}
	path := "/dev/" + name

	detail, err := probe.DetailRaid(ctx, x.Runner, path)
	if err != nil {
		return err
	}
	if detail.RaidLevel != e.RaidLevel {
		return &domain.VerificationError{Entry: e.ID, Field: "raidlevel", Expected: strconv.Itoa(e.RaidLevel), Observed: strconv.Itoa(detail.RaidLevel)}
	}

	members, err := resolveAll(req, e.Devices)
	if err != nil {
		return err
	}
	want := append([]string{}, members...)
	got := append([]string{}, detail.Devices...)
	sort.Strings(want)
	sort.Strings(got)
	if !equalStrings(want, got) {
		return &domain.VerificationError{Entry: e.ID, Field: "devices", Expected: fmt.Sprintf("%v", want), Observed: fmt.Sprintf("%v", got)}
	}
	return nil
}
