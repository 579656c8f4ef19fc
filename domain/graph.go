package domain

// Graph is the action graph (spec.md §3 "Action graph"): nodes are config
// entries, edges point from an entry to the entries it depends on (see
// Edges). The planner consumes it via planner.topoOrder; the loader is
// responsible for building it and rejecting cycles.
type Graph struct {
	Entries []Entry
	byID    map[string]int // id -> index into Entries, built by NewGraph
}

// NewGraph indexes entries by id. Callers must have already verified id
// uniqueness (schema invariant #1); NewGraph panics on a duplicate to
// surface programmer error early rather than silently picking one.
func NewGraph(entries []Entry) *Graph {
	g := &Graph{Entries: entries, byID: make(map[string]int, len(entries))}
	for i, e := range entries {
		if _, dup := g.byID[e.GetID()]; dup {
			panic("domain.NewGraph: duplicate entry id " + e.GetID())
		}
		g.byID[e.GetID()] = i
	}
	return g
}

// Lookup returns the entry with the given id, if present in this graph.
func (g *Graph) Lookup(id string) (Entry, bool) {
	i, ok := g.byID[id]
	if !ok {
		return nil, false
	}
	return g.Entries[i], true
}

// Edges returns, for every entry, the (possibly empty) list of entry ids
// it depends on that exist within this graph. References to
// already-materialized physical devices (invariant #2) are omitted since
// they never recorded ids in this document's namespace.
func (g *Graph) Edges(e Entry) []string {
	var out []string
	for _, dep := range e.DependsOn() {
		if _, ok := g.byID[dep]; ok {
			out = append(out, dep)
		}
	}
	return out
}

// HasCycle reports whether the dependency graph contains a cycle, using
// iterative DFS with a three-color scheme (white/gray/black) so that deep
// chains of partitions/lvm/crypt/raid don't risk stack exhaustion via
// recursion on adversarial input.
func (g *Graph) HasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(g.Entries))

	type frame struct {
		idx     int
		edgeIdx int
		edges   []string
	}

	for start := range g.Entries {
		if color[start] != white {
			continue
		}
		stack := []frame{{idx: start, edges: g.Edges(g.Entries[start])}}
		color[start] = gray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.edgeIdx >= len(top.edges) {
				color[top.idx] = black
				stack = stack[:len(stack)-1]
				continue
			}
			depID := top.edges[top.edgeIdx]
			top.edgeIdx++
			depIdx := g.byID[depID]
			switch color[depIdx] {
			case white:
				color[depIdx] = gray
				stack = append(stack, frame{idx: depIdx, edges: g.Edges(g.Entries[depIdx])})
			case gray:
				return true
			}
		}
	}
	return false
}
