package holders

import (
	"sort"

	"github.com/canonical/curtin-storage-engine/domain"
)

// Plan computes the ordered clear-holders execution plan for one or more
// holder trees (spec.md §4.3 "Planning algorithm").
//
// Level is each node's depth from its tree's root (the target device),
// not literally "distance from the deepest leaf" as spec.md's prose
// states: under a from-the-leaf metric, a holder (which sits strictly
// deeper than what it holds) would always receive a *smaller* value than
// its parent, which cannot satisfy the required "level(a) >= level(b) for
// every edge a -> b" property together with "deepest holders go first."
// Depth-from-root is the only metric consistent with both; see
// DESIGN.md's "clear-holders plan ordering" entry. A node reachable via
// more than one path collapses to a single step at the greatest depth it
// was reached at, so it is never torn down before every path leading to
// it has been accounted for.
func Plan(forest []*domain.HolderNode) []domain.PlanStep {
	depth := make(map[string]int)
	devType := make(map[string]domain.DevType)
	sysPath := make(map[string]string)

	var walk func(n *domain.HolderNode, d int)
	walk = func(n *domain.HolderNode, d int) {
		if n == nil {
			return
		}
		if cur, ok := depth[n.KName]; !ok || d > cur {
			depth[n.KName] = d
		}
		devType[n.KName] = n.DevType
		sysPath[n.KName] = n.SysPath
		for _, c := range n.Children {
			walk(c, d+1)
		}
	}
	for _, root := range forest {
		walk(root, 0)
	}

	steps := make([]domain.PlanStep, 0, len(depth))
	for kname, d := range depth {
		steps = append(steps, domain.PlanStep{
			KName:   kname,
			SysPath: sysPath[kname],
			DevType: devType[kname],
			Level:   d,
		})
	}

	sort.Slice(steps, func(i, j int) bool {
		if steps[i].Level != steps[j].Level {
			return steps[i].Level > steps[j].Level
		}
		pi, pj := domain.TeardownPriority(steps[i].DevType), domain.TeardownPriority(steps[j].DevType)
		if pi != pj {
			return pi > pj
		}
		return steps[i].KName < steps[j].KName
	})

	return steps
}
