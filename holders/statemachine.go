package holders

import (
	"context"
	"fmt"
	"time"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// DefaultRetryAttempts and DefaultRetryDelaySec bound how hard a single step
// fights a device that refuses to quiesce before the engine gives up and
// reports a HolderError (spec.md §4.3 "bounded retries").
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelaySec = 1
)

// retryDelay is the backoff between quiesce/tear-down attempts. It is a
// var, not a const, so tests can shrink it to avoid real waits.
var retryDelay = time.Duration(DefaultRetryDelaySec) * time.Second

// backoff pauses between retry attempts, honoring context cancellation
// instead of blocking past a caller that has already given up.
func backoff(ctx context.Context) {
	if retryDelay <= 0 {
		return
	}
	t := time.NewTimer(retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// quiesce issues the command that stops a device from being held open:
// stopping an array, deactivating an LV/VG, detaching a bcache device,
// closing a dm-crypt mapping, flushing a multipath map, or unmounting a mount
// (spec.md §4.3 Discovered -> Quiesced transitions).
func quiesce(ctx context.Context, runner domain.ToolRunner, step domain.PlanStep) error {
	switch step.DevType {
	case domain.DevMount:
		_, _, err := runner.Run(ctx, []string{"umount", "/dev/" + step.KName}, tooldriver.TimeoutDefault)
		return err
	case domain.DevBcache:
		_, _, err := runner.Run(ctx, []string{"bcache-super-show", "--stop", "/dev/" + step.KName}, tooldriver.TimeoutDefault)
		return err
	case domain.DevRAID:
		_, _, err := runner.Run(ctx, []string{"mdadm", "--stop", "/dev/" + step.KName}, tooldriver.TimeoutMdadm)
		return err
	case domain.DevLVMLV:
		_, _, err := runner.Run(ctx, []string{"lvchange", "-an", "/dev/" + step.KName}, tooldriver.TimeoutLVM)
		return err
	case domain.DevLVMVG:
		_, _, err := runner.Run(ctx, []string{"vgchange", "-an", step.KName}, tooldriver.TimeoutLVM)
		return err
	case domain.DevCrypt:
		_, _, err := runner.Run(ctx, []string{"cryptsetup", "close", step.KName}, tooldriver.TimeoutCryptsetup)
		return err
	case domain.DevMpath:
		_, _, err := runner.Run(ctx, []string{"multipath", "-f", step.KName}, tooldriver.TimeoutDefault)
		return err
	case domain.DevPartition, domain.DevDisk:
		_, _, err := runner.Run(ctx, []string{"dmsetup", "remove", "/dev/" + step.KName}, tooldriver.TimeoutDefault)
		return err
	default:
		return nil
	}
}

// tearDown issues the command that erases the device's identity so it
// can no longer be reassembled or reattached (spec.md §4.3 Quiesced ->
// TornDown transitions): zero an md superblock, remove a PV label, wipe
// a bcache superblock, or wipe filesystem/partition-table signatures.
func tearDown(ctx context.Context, runner domain.ToolRunner, step domain.PlanStep) error {
	switch step.DevType {
	case domain.DevRAID:
		_, _, err := runner.Run(ctx, []string{"mdadm", "--zero-superblock", "/dev/" + step.KName}, tooldriver.TimeoutMdadm)
		return err
	case domain.DevLVMVG, domain.DevLVMLV:
		_, _, err := runner.Run(ctx, []string{"pvremove", "-ff", "-y", "/dev/" + step.KName}, tooldriver.TimeoutLVM)
		return err
	case domain.DevBcache:
		_, _, err := runner.Run(ctx, []string{"wipefs", "-a", "/dev/" + step.KName}, tooldriver.TimeoutWipeZero)
		return err
	default:
		_, _, err := runner.Run(ctx, []string{"wipefs", "-a", "/dev/" + step.KName}, tooldriver.TimeoutWipeZero)
		return err
	}
}

// confirmGone reprobes and checks that kname no longer appears, settling
// the TornDown -> Gone transition (spec.md §4.3).
func confirmGone(snap *domain.Snapshot, kname string) bool {
	_, present := snap.Devices[kname]
	return !present
}

// RunStep drives a single plan step through Discovered -> Quiesced ->
// TornDown, retrying each transition up to attempts times. Gone is
// confirmed by the caller's next reprobe, not here, since it requires a
// fresh Snapshot the state machine doesn't own.
func RunStep(ctx context.Context, runner domain.ToolRunner, step domain.PlanStep, attempts int) (domain.HolderState, error) {
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}

	state := domain.StateDiscovered
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := quiesce(ctx, runner, step); err != nil {
			lastErr = err
			if i+1 < attempts {
				backoff(ctx)
			}
			continue
		}
		state = domain.StateQuiesced
		lastErr = nil
		break
	}
	if state != domain.StateQuiesced {
		return state, &domain.HolderError{Device: step.KName, Msg: fmt.Sprintf("failed to quiesce after %d attempts: %v", attempts, lastErr)}
	}

	for i := 0; i < attempts; i++ {
		if err := tearDown(ctx, runner, step); err != nil {
			lastErr = err
			if i+1 < attempts {
				backoff(ctx)
			}
			continue
		}
		state = domain.StateTornDown
		lastErr = nil
		break
	}
	if state != domain.StateTornDown {
		return state, &domain.HolderError{Device: step.KName, Msg: fmt.Sprintf("failed to tear down after %d attempts: %v", attempts, lastErr)}
	}

	return state, nil
}
