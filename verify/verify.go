// Package verify drives the preserve:true check matrix of spec.md §4.6.
// The per-type comparisons themselves live beside each executor in
// actions/ (they implement domain.Verifier against the same resolved
// state the executor would have produced); this package is the thin
// entrypoint the engine calls for every planner.Action marked
// VerifyOnly, so the loop doesn't need to know which types support it.
package verify

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
)

// Registry is the subset of actions.Registry this package depends on,
// kept as an interface so verify never imports actions directly and
// risks a cycle back into it.
type Registry interface {
	For(t domain.EntryType) (domain.Executor, bool)
}

// Entry checks one preserved config entry against on-disk reality. A type
// with no Verifier (dasd, nvme_controller, device, mount, zfs) is
// reported as a schema error: preserve was set on a type that can never honor it.
func Entry(ctx context.Context, reg Registry, req *domain.ExecRequest) error {
	exec, ok := reg.For(req.Entry.GetType())
	if !ok {
		return fmt.Errorf("verify: no executor registered for type %q", req.Entry.GetType())
	}
	verifier, ok := exec.(domain.Verifier)
	if !ok {
		return &domain.SchemaError{
			Entry: req.Entry.GetID(),
			Msg:   fmt.Sprintf("preserve: true is not supported for type %q", req.Entry.GetType()),
		}
	}
	return verifier.Verify(ctx, req)
}
