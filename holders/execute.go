package holders

import (
	"context"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// Execute drives targets through the full clear-holders lifecycle: probe,
// build the holder forest, plan the teardown order, then run each step in
// order, reprobing after every step so a later step's quiesce/tear-down
// sees the kernel state the previous step actually produced (spec.md
// §4.3, §5 "no stale snapshots across a mutating action").
func Execute(ctx context.Context, prober domain.Prober, runner domain.ToolRunner, targets []string, attempts int) error {
	snap, err := prober.Probe(ctx)
	if err != nil {
		return err
	}

	forest := BuildForest(snap, targets)
	plan := Plan(forest)

	for _, step := range plan {
		if isTarget(step.KName, targets) {
			continue
		}
		if _, err := RunStep(ctx, runner, step, attempts); err != nil {
			return err
		}
		if _, _, err := runner.Run(ctx, []string{"udevadm", "settle"}, tooldriver.TimeoutSettle); err != nil {
			return &domain.HolderError{Device: step.KName, Msg: "udevadm settle: " + err.Error()}
		}
		snap, err = prober.Probe(ctx)
		if err != nil {
			return err
		}
		if !confirmGone(snap, step.KName) {
			return &domain.HolderError{Device: step.KName, Msg: "device still present after teardown"}
		}
	}

	return nil
}

func isTarget(kname string, targets []string) bool {
	for _, t := range targets {
		if t == kname {
			return true
		}
	}
	return false
}
