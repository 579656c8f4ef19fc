package holders

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
)

// AssertClear probes the current topology and fails if any requested
// device still has holders above it — the read-only counterpart to
// Execute, used by the `assert-clear` subcommand (spec.md §4.3, §6).
func AssertClear(ctx context.Context, prober domain.Prober, devices []string) error {
	snap, err := prober.Probe(ctx)
	if err != nil {
		return err
	}

	for _, kname := range devices {
		dev, ok := snap.Devices[kname]
		if !ok {
			continue
		}
		if len(dev.Children) > 0 {
			return &domain.HolderError{
				Device: kname,
				Msg:    fmt.Sprintf("device still has %d holder(s): %v", len(dev.Children), dev.Children),
			}
		}
	}
	return nil
}
