package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// DMCryptExecutor runs cryptsetup luksFormat then open, recording a
// crypttab line (spec.md §4.5 "dm_crypt").
type DMCryptExecutor struct {
	Runner domain.ToolRunner
}

func NewDMCryptExecutor(runner domain.ToolRunner) *DMCryptExecutor {
	return &DMCryptExecutor{Runner: runner}
}

func (x *DMCryptExecutor) Type() domain.EntryType { return domain.TypeDMCrypt }

func (x *DMCryptExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.DMCryptEntry)
	if !ok {
		return nil, fmt.Errorf("dm_crypt executor: unexpected entry type %T", req.Entry)
	}
	if (e.Key == "") == (e.Keyfile == "") {
		return nil, &domain.SchemaError{Entry: e.ID, Msg: "exactly one of key or keyfile must be provided"}
	}

	volPath, err := resolve(req, e.Volume)
	if err != nil {
		return nil, err
	}

	dmName := e.DMName
	if dmName == "" {
		dmName = e.ID
	}
	path := "/dev/mapper/" + dmName

	keySpec := e.Keyfile
	if keySpec == "" {
		keySpec = "none"
	}

	if e.Preserve {
		e.ResolvedPath = path
		req.Crypttab.Add(domain.CrypttabRecord{DMName: dmName, Volume: volPath, KeySpec: keySpec, Options: e.Options})
		return &domain.ExecResult{DevPath: path}, nil
	}

	formatArgv := []string{"cryptsetup", "luksFormat", volPath}
	if e.Keyfile != "" {
		formatArgv = append(formatArgv, e.Keyfile)
	}
	if _, _, err := run(ctx, req, x.Runner, formatArgv, tooldriver.TimeoutCryptsetup); err != nil {
		return nil, err
	}

	openArgv := []string{"cryptsetup", "open", volPath, dmName}
	if e.Keyfile != "" {
		openArgv = append(openArgv, "--key-file", e.Keyfile)
	}
	if _, _, err := run(ctx, req, x.Runner, openArgv, tooldriver.TimeoutCryptsetup); err != nil {
		return nil, err
	}

	opts := e.Options
	if opts == "" {
		opts = "luks"
	}
	req.Crypttab.Add(domain.CrypttabRecord{DMName: dmName, Volume: volPath, KeySpec: keySpec, Options: opts})

	e.ResolvedPath = path
	return &domain.ExecResult{DevPath: path, Reprobe: true}, nil
}

func (x *DMCryptExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.DMCryptEntry)
	volPath, err := resolve(req, e.Volume)
	if err != nil {
		return err
	}
	dmName := e.DMName
	if dmName == "" {
		dmName = e.ID
	}
	dev, ok := req.Snapshot.Devices[dmName]
	if !ok {
		return &domain.VerificationError{Entry: e.ID, Field: "existence", Expected: "present", Observed: "absent"}
	}
	if len(dev.Parents) == 0 || baseName(volPath) != dev.Parents[0] {
		return &domain.VerificationError{Entry: e.ID, Field: "volume", Expected: volPath, Observed: fmt.Sprintf("%v", dev.Parents)}
	}
	return nil
}
