// Package holders implements the clear-holders engine (spec.md §4.3):
// building the holder tree rooted at a target device, planning a safe
// teardown order, and driving each node through its Discovered ->
// Quiesced -> TornDown -> Gone state machine.
package holders

import "github.com/canonical/curtin-storage-engine/domain"

// BuildTree constructs the (lazy, finite, acyclic) holder tree rooted at
// kname from a probe snapshot (spec.md §3 "Holder tree"). visited caps
// the walk on a malformed sysfs graph; the kernel's holder relations are
// always acyclic, so a revisit means corrupt input, not a real edge.
func BuildTree(snap *domain.Snapshot, kname string) *domain.HolderNode {
	visited := make(map[string]bool)
	return buildTree(snap, kname, visited)
}

func buildTree(snap *domain.Snapshot, kname string, visited map[string]bool) *domain.HolderNode {
	if visited[kname] {
		return nil
	}
	visited[kname] = true

	dev, ok := snap.Devices[kname]
	if !ok {
		return &domain.HolderNode{KName: kname, DevType: domain.DevDisk}
	}

	node := &domain.HolderNode{
		KName:   kname,
		SysPath: dev.SysPath,
		DevType: dev.DevType,
	}
	for _, child := range dev.Children {
		if childNode := buildTree(snap, child, visited); childNode != nil {
			node.Children = append(node.Children, childNode)
		}
	}
	return node
}

// BuildForest builds one holder tree per requested target device,
// matching the "one or more holder trees" input to the planning
// algorithm (spec.md §4.3).
func BuildForest(snap *domain.Snapshot, knames []string) []*domain.HolderNode {
	forest := make([]*domain.HolderNode, 0, len(knames))
	for _, k := range knames {
		forest = append(forest, BuildTree(snap, k))
	}
	return forest
}
