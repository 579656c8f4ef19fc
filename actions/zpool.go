package actions

import (
	"context"
	"fmt"
	"sort"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// Default zpool create properties (spec.md §6 tool-protocol surface:
// "zpool create -o ashift=12 -O atime=off -O canmount=off
// -O normalization=formD ... with overrides from config").
var defaultPoolProperties = map[string]string{
	"ashift": "12",
}

var defaultFSProperties = map[string]string{
	"atime":         "off",
	"canmount":      "off",
	"normalization": "formD",
}

// mergeProperties overlays config-supplied properties on the defaults
// and renders the union as sorted k=v strings, so the emitted argv is
// stable across runs.
func mergeProperties(defaults, overrides map[string]string) []string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

// ZpoolExecutor runs zpool create over a set of vdevs (spec.md §4.5
// "zpool"). `encryption_style: luks_keystore` writes 32 random bytes to a
// keyfile ahead of pool creation and passes that file as the pool's raw
// key (keylocation=file://...); no LUKS container or key dataset is
// created.
type ZpoolExecutor struct {
	Runner domain.ToolRunner
}

func NewZpoolExecutor(runner domain.ToolRunner) *ZpoolExecutor {
	return &ZpoolExecutor{Runner: runner}
}

func (x *ZpoolExecutor) Type() domain.EntryType { return domain.TypeZpool }

func (x *ZpoolExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.ZpoolEntry)
	if !ok {
		return nil, fmt.Errorf("zpool executor: unexpected entry type %T", req.Entry)
	}

	vdevs, err := resolveAll(req, e.Vdevs)
	if err != nil {
		return nil, err
	}

	if e.Preserve {
		e.ResolvedPath = e.Pool
		return &domain.ExecResult{DevPath: e.Pool}, nil
	}

	argv := []string{"zpool", "create"}
	for _, kv := range mergeProperties(defaultPoolProperties, e.PoolProperties) {
		argv = append(argv, "-o", kv)
	}
	for _, kv := range mergeProperties(defaultFSProperties, e.FSProperties) {
		argv = append(argv, "-O", kv)
	}

	if e.EncryptionStyle == "luks_keystore" {
		keyPath := e.KeyfilePath
		if keyPath == "" {
			// A fixed name would collide with a leftover keyfile from a
			// prior failed run against the same pool name; a random
			// suffix keeps each create attempt's key unique.
			suffix, err := uuid.GenerateUUID()
			if err != nil {
				return nil, fmt.Errorf("zpool %q: generating keyfile name: %w", e.ID, err)
			}
			keyPath = "/root/zpool-" + e.Pool + "-" + suffix + ".key"
		}
		if _, _, err := run(ctx, req, x.Runner,
			[]string{"sh", "-c", "dd if=/dev/urandom bs=32 count=1 of=" + keyPath}, tooldriver.TimeoutDefault); err != nil {
			return nil, err
		}
		argv = append(argv, "-O", "encryption=on", "-O", "keyformat=raw", "-O", "keylocation=file://"+keyPath)
	}

	argv = append(argv, e.Pool)
	argv = append(argv, vdevs...)

	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutZpool); err != nil {
		return nil, err
	}

	e.ResolvedPath = e.Pool
	return &domain.ExecResult{DevPath: e.Pool, Reprobe: true}, nil
}

func (x *ZpoolExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.ZpoolEntry)
	exists, err := probe.PoolExists(ctx, x.Runner, e.Pool)
	if err != nil {
		return err
	}
	if !exists {
		return &domain.VerificationError{Entry: e.ID, Field: "existence", Expected: "present", Observed: "absent"}
	}
	return nil
}
