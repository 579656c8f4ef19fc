// Package planner turns a loaded config's action graph into the ordered,
// fully-expanded list of steps the engine executes: a stable topological
// sort, preserve:true substitution with verify-only steps, and the two
// synthetic-action expansions spec.md §4.4 calls for.
package planner

import "github.com/canonical/curtin-storage-engine/domain"

// topoOrder produces a topological ordering of g's entries, breaking ties
// by original config order (spec.md §4.4 "ties broken by the original
// list order from the config (stable)"). It always picks, among entries
// whose dependencies are already satisfied, the one appearing earliest in
// the original entry list — the textbook way to make Kahn's algorithm
// stable without a priority queue.
func topoOrder(g *domain.Graph) ([]domain.Entry, error) {
	n := len(g.Entries)
	idxByID := make(map[string]int, n)
	for i, e := range g.Entries {
		idxByID[e.GetID()] = i
	}

	indegree := make([]int, n)
	dependents := make([][]int, n)
	for i, e := range g.Entries {
		for _, dep := range g.Edges(e) {
			dj := idxByID[dep]
			dependents[dj] = append(dependents[dj], i)
			indegree[i]++
		}
	}

	done := make([]bool, n)
	order := make([]domain.Entry, 0, n)
	for len(order) < n {
		picked := -1
		for i := 0; i < n; i++ {
			if !done[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked == -1 {
			return nil, &domain.SchemaError{Msg: "dependency graph contains a cycle"}
		}
		done[picked] = true
		order = append(order, g.Entries[picked])
		for _, dj := range dependents[picked] {
			indegree[dj]--
		}
	}
	return order, nil
}
