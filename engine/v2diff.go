package engine

import (
	"context"
	"strconv"

	"github.com/canonical/curtin-storage-engine/config"
	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// deleteStalePartitions implements the v2-only half of spec.md §4.2:
// "a diff against the existing table decides creates/keeps/deletes" and
// invariant #7 "existing partitions absent from the new layout are wiped
// and deleted." It runs once, before the main action loop, against every
// disk entry the document names — identity is resolved directly via
// probe.ResolveDisk rather than waiting for the disk's own executor, since
// that executor's wipe/mklabel path is for a freshly-claimed disk, not
// this table-preserving partial teardown.
func (e *Engine) deleteStalePartitions(ctx context.Context, doc *config.Document, snap *domain.Snapshot) (*domain.Snapshot, error) {
	deletedAny := false

	for _, entry := range doc.Entries {
		disk, ok := entry.(*domain.DiskEntry)
		if !ok {
			continue
		}
		dev, err := probe.ResolveDisk(snap, disk, e.Log, nil)
		if err != nil {
			// Identity failures surface properly once the main loop's disk
			// executor runs; skipping here just means no stale partition
			// on this (as yet unresolved) disk is deleted this pass.
			continue
		}

		desired, err := config.PartitionsForDisk(doc, disk.ID)
		if err != nil {
			return snap, err
		}
		stale := config.StalePartitions(dev.KName, desired, snap)
		for _, sp := range stale {
			if e.Log != nil {
				e.Log.WithField("device", sp.DevPath).Info("v2: deleting partition absent from new layout")
			}
			if _, _, err := e.Runner.Run(ctx, []string{"wipefs", "-a", sp.DevPath}, tooldriver.TimeoutWipeZero); err != nil {
				return snap, &domain.ExecutionError{Entry: disk.ID, Type: string(domain.TypeDisk), Msg: "wiping stale partition", Err: err}
			}
			rmArgv := []string{"parted", "-s", dev.DevPath, "rm", strconv.Itoa(sp.PartitionNumber)}
			if _, _, err := e.Runner.Run(ctx, rmArgv, tooldriver.TimeoutDefault); err != nil {
				return snap, &domain.ExecutionError{Entry: disk.ID, Type: string(domain.TypeDisk), Msg: "deleting stale partition", Err: err}
			}
			deletedAny = true
		}
	}

	if !deletedAny {
		return snap, nil
	}
	fresh, err := e.Prober.Probe(ctx)
	if err != nil {
		return snap, &domain.ProbeError{Msg: err.Error()}
	}
	return fresh, nil
}
