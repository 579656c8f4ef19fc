package planner

import "github.com/canonical/curtin-storage-engine/domain"

// Action is one step of the fully-expanded execution plan: a config entry
// plus whether it runs as a verify-only step (preserve: true, spec.md
// §4.4/§4.6) instead of performing its normal side effect.
type Action struct {
	Entry      domain.Entry
	VerifyOnly bool
}

// Plan builds the ordered, expanded action list for a loaded config
// graph: topological sort, preserve substitution, and synthetic action
// injection (spec.md §4.4).
func Plan(g *domain.Graph) ([]Action, error) {
	order, err := topoOrder(g)
	if err != nil {
		return nil, err
	}

	actions := make([]Action, 0, len(order))
	for _, e := range order {
		if fe, ok := e.(*domain.FormatEntry); ok && fe.Fstype == zfsRootFstype {
			fe.ZfsRoot = true
			pool, ds := expandZfsRoot(fe)
			actions = append(actions,
				Action{Entry: pool, VerifyOnly: pool.Preserve},
				Action{Entry: ds, VerifyOnly: ds.Preserve},
			)
			continue
		}

		actions = append(actions, Action{Entry: e, VerifyOnly: e.GetCommon().Preserve})

		if pe, ok := e.(*domain.PartitionEntry); ok && pe.Flag == "swap" {
			actions = append(actions, Action{Entry: swapFstabEntry(pe)})
		}
	}

	return actions, nil
}
