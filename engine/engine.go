// Package engine orchestrates a full custom storage run: load config,
// clear holders above every disk entry the config declares, execute the
// expanded action plan, persist the results, and report progress —
// mirroring the teacher's top-level server wiring but as a one-shot batch
// job instead of a long-lived filesystem server.
package engine

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/actions"
	"github.com/canonical/curtin-storage-engine/config"
	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/holders"
	"github.com/canonical/curtin-storage-engine/persist"
	"github.com/canonical/curtin-storage-engine/planner"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
	"github.com/canonical/curtin-storage-engine/verify"
)

// Config bundles everything a single custom run needs from the
// environment (SPEC_FULL.md §A.3): paths only; the host-facing services
// (fs, prober, runner, logger) live on Engine.
type Config struct {
	Target        string // TARGET_MOUNT_POINT
	WorkingDir    string
	ConfigPath    string
	OutputFstab   string
	OutputNetwork string
	DeviceMapPath string
	ReportPrefix  string
}

// Engine wires together every component service the action loop and
// clear-holders pass need.
type Engine struct {
	FS       afero.Fs
	Prober   domain.Prober
	Runner   domain.ToolRunner
	Registry *actions.Registry
	Log      *logrus.Entry
	Reporter *Reporter
}

// Run executes one full custom storage job: probe, clear holders above
// every disk the config references, execute the expanded plan in order,
// then persist fstab/crypttab/udev/device_map (spec.md §2 "System
// overview", §4.4–§4.7).
func (e *Engine) Run(ctx context.Context, cfg Config, doc *config.Document, graph *domain.Graph) (*domain.Result, error) {
	result := domain.NewResult()

	preSnap, err := e.Prober.Probe(ctx)
	if err != nil {
		return nil, &domain.ProbeError{Msg: err.Error()}
	}

	targets, err := diskKNames(preSnap, doc, e.Log)
	if err != nil {
		return nil, err
	}
	if len(targets) > 0 {
		e.Reporter.Event("clear-holders", "start", 0)
		if err := holders.Execute(ctx, e.Prober, e.Runner, targets, holders.DefaultRetryAttempts); err != nil {
			return nil, err
		}
		e.Reporter.Event("clear-holders", "finish", 100)
	}

	planned, err := planner.Plan(graph)
	if err != nil {
		return nil, err
	}

	snap, err := e.Prober.Probe(ctx)
	if err != nil {
		return nil, &domain.ProbeError{Msg: err.Error()}
	}

	if doc.Version == 2 {
		snap, err = e.deleteStalePartitions(ctx, doc, snap)
		if err != nil {
			return nil, err
		}
	}

	var dnameTargets []persist.DnameTarget
	var grubDevices []string
	partitionCursors := make(map[string]uint64)

	for i, action := range planned {
		// SIGINT/SIGTERM are fatal between actions, never mid-action
		// (spec.md §5 "Cancellation"); the CLI cancels ctx on either.
		if cerr := ctx.Err(); cerr != nil {
			err := &domain.ExecutionError{Entry: action.Entry.GetID(), Type: string(action.Entry.GetType()), Msg: "cancelled", Err: cerr}
			e.writeDiagnostic(ctx, cfg, action.Entry.GetID(), err)
			return nil, err
		}

		e.Reporter.Event(action.Entry.GetID(), "start", pct(i, len(planned)))

		req := &domain.ExecRequest{
			Entry: action.Entry, Graph: graph, Snapshot: snap,
			Fstab: result.Fstab, Crypttab: result.Crypttab, Target: cfg.Target,
			PartitionCursors: partitionCursors,
		}

		if action.VerifyOnly {
			if err := verify.Entry(ctx, e.Registry, req); err != nil {
				return nil, err
			}
			e.Reporter.Event(action.Entry.GetID(), "finish", pct(i+1, len(planned)))
			continue
		}

		exec, ok := e.Registry.For(action.Entry.GetType())
		if !ok {
			return nil, &domain.SchemaError{Entry: action.Entry.GetID(), Msg: fmt.Sprintf("no executor for type %q", action.Entry.GetType())}
		}

		res, err := exec.Execute(ctx, req)
		if err != nil {
			e.writeDiagnostic(ctx, cfg, action.Entry.GetID(), err)
			return nil, err
		}
		result.DeviceMap[action.Entry.GetID()] = res.DevPath

		if lv, ok := action.Entry.(*domain.LVMPartitionEntry); ok {
			dnameTargets = append(dnameTargets, persist.DnameTarget{Volgroup: lv.Volgroup, Name: lv.Name})
		}
		if d, ok := action.Entry.(*domain.DiskEntry); ok && d.GrubDevice {
			grubDevices = append(grubDevices, res.DevPath)
		}

		if res.Reprobe {
			// udevadm settle, then a fresh probe, before the next action
			// reads topology (spec.md §5 "Ordering guarantees").
			if _, _, serr := e.Runner.Run(ctx, []string{"udevadm", "settle"}, tooldriver.TimeoutSettle); serr != nil {
				err := &domain.ExecutionError{Entry: action.Entry.GetID(), Type: string(action.Entry.GetType()), Msg: "udevadm settle", Err: serr}
				e.writeDiagnostic(ctx, cfg, action.Entry.GetID(), err)
				return nil, err
			}
			snap, err = e.Prober.Probe(ctx)
			if err != nil {
				return nil, &domain.ProbeError{Msg: err.Error()}
			}
		}

		e.Reporter.Event(action.Entry.GetID(), "finish", pct(i+1, len(planned)))
	}
	result.GrubDevices = grubDevices

	if err := e.persist(cfg, doc, result, dnameTargets, graph); err != nil {
		return nil, err
	}

	return result, nil
}

func (e *Engine) persist(cfg Config, doc *config.Document, result *domain.Result, dnameTargets []persist.DnameTarget, graph *domain.Graph) error {
	fstabPath := cfg.OutputFstab
	if fstabPath == "" {
		fstabPath = cfg.Target + "/etc/fstab"
	}
	if err := persist.WriteFstab(e.FS, fstabPath, result.Fstab); err != nil {
		return err
	}
	if err := persist.WriteCrypttab(e.FS, cfg.Target+"/etc/crypttab", result.Crypttab); err != nil {
		return err
	}
	if len(dnameTargets) > 0 {
		if err := persist.WriteUdevRules(e.FS, cfg.Target+"/etc/udev/rules.d/66-curtin-by-dname.rules", dnameTargets); err != nil {
			return err
		}
	}
	deviceMapPath := cfg.DeviceMapPath
	if deviceMapPath == "" {
		deviceMapPath = doc.DeviceMapPath
	}
	if deviceMapPath != "" {
		if err := persist.WriteDeviceMap(e.FS, deviceMapPath, result.DeviceMap); err != nil {
			return err
		}
	}
	for _, entry := range graph.Entries {
		nc, ok := entry.(*domain.NVMeControllerEntry)
		if !ok {
			continue
		}
		unitPath := fmt.Sprintf("%s/etc/systemd/system/nvme-connect-%s.service", cfg.Target, nc.ID)
		if err := persist.WriteNVMeConnectUnit(e.FS, unitPath, nc); err != nil {
			return err
		}
	}
	return nil
}

// writeDiagnostic best-effort persists a failure snapshot alongside the
// fstab output directory (spec.md §4.5 "the engine writes a diagnostic
// snapshot of probe state, the action that failed, and the external
// tool's stderr, then exits non-zero"). Failure to write the diagnostic
// itself is logged, never returned, so it never masks the original error.
func (e *Engine) writeDiagnostic(ctx context.Context, cfg Config, entryID string, cause error) {
	fstabPath := cfg.OutputFstab
	if fstabPath == "" {
		fstabPath = cfg.Target + "/etc/fstab"
	}
	dir := "/"
	if idx := lastSlash(fstabPath); idx >= 0 {
		dir = fstabPath[:idx]
	}
	d := toolFailure(entryID, cause)
	if err := WriteDiagnostic(ctx, e.FS, dir, e.Prober, d); err != nil && e.Log != nil {
		e.Log.WithError(err).Warn("failed to write diagnostic snapshot")
	}
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

// diskKNames resolves the identity of every disk entry in the config
// against a freshly probed snapshot (spec.md §3) so clear-holders runs
// against the real kname the disk currently lives at, rather than
// DiskEntry.ResolvedPath — which is only populated later, inside
// DiskExecutor.Execute, well after clear-holders must already have run
// (spec.md §2 "Config → graph → (clear-holders for each grub/target
// disk) → planner …").
func diskKNames(snap *domain.Snapshot, doc *config.Document, log *logrus.Entry) ([]string, error) {
	var out []string
	for _, entry := range doc.Entries {
		d, ok := entry.(*domain.DiskEntry)
		if !ok {
			continue
		}
		dev, err := probe.ResolveDisk(snap, d, log, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, dev.KName)
	}
	return out, nil
}

func pct(done, total int) int {
	if total == 0 {
		return 100
	}
	return done * 100 / total
}
