package holders

import (
	"testing"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diskMountStack builds: sda (disk) -> sda1 (partition) -> vg0-lv0 (lvm-lv) -> mount
func diskMountStack() *domain.HolderNode {
	mnt := &domain.HolderNode{KName: "mountpoint", DevType: domain.DevMount}
	lv := &domain.HolderNode{KName: "vg0-lv0", DevType: domain.DevLVMLV, Children: []*domain.HolderNode{mnt}}
	part := &domain.HolderNode{KName: "sda1", DevType: domain.DevPartition, Children: []*domain.HolderNode{lv}}
	disk := &domain.HolderNode{KName: "sda", DevType: domain.DevDisk, Children: []*domain.HolderNode{part}}
	return disk
}

func TestPlanOrdersDeepestHoldersFirst(t *testing.T) {
	plan := Plan([]*domain.HolderNode{diskMountStack()})
	require.Len(t, plan, 4)

	index := make(map[string]int)
	for i, step := range plan {
		index[step.KName] = i
	}

	assert.Less(t, index["mountpoint"], index["vg0-lv0"])
	assert.Less(t, index["vg0-lv0"], index["sda1"])
	assert.Less(t, index["sda1"], index["sda"])
}

func TestPlanSoundnessAcrossEdges(t *testing.T) {
	forest := []*domain.HolderNode{diskMountStack()}
	plan := Plan(forest)

	index := make(map[string]int)
	level := make(map[string]int)
	for i, step := range plan {
		index[step.KName] = i
		level[step.KName] = step.Level
	}

	edges := [][2]string{
		{"mountpoint", "vg0-lv0"},
		{"vg0-lv0", "sda1"},
		{"sda1", "sda"},
	}
	for _, e := range edges {
		a, b := e[0], e[1]
		assert.Less(t, index[a], index[b], "holder %s must be torn down before %s", a, b)
		assert.GreaterOrEqual(t, level[a], level[b], "holder %s must have level >= %s", a, b)
	}
}

func TestPlanCollapsesRepeatedVisits(t *testing.T) {
	// A diamond: sda holds both sda1 and sda2, both feed into the same VG.
	vg := &domain.HolderNode{KName: "vg0", DevType: domain.DevLVMVG}
	part1 := &domain.HolderNode{KName: "sda1", DevType: domain.DevPartition, Children: []*domain.HolderNode{vg}}
	part2 := &domain.HolderNode{KName: "sda2", DevType: domain.DevPartition, Children: []*domain.HolderNode{vg}}
	disk := &domain.HolderNode{KName: "sda", DevType: domain.DevDisk, Children: []*domain.HolderNode{part1, part2}}

	plan := Plan([]*domain.HolderNode{disk})

	seen := map[string]int{}
	for _, step := range plan {
		seen[step.KName]++
	}
	for kname, count := range seen {
		assert.Equal(t, 1, count, "device %s appeared more than once in the plan", kname)
	}
}

func TestPlanTieBreaksByDevTypePriorityThenKName(t *testing.T) {
	raid := &domain.HolderNode{KName: "md0", DevType: domain.DevRAID}
	bcache := &domain.HolderNode{KName: "bcache0", DevType: domain.DevBcache}
	disk := &domain.HolderNode{KName: "sda", DevType: domain.DevDisk, Children: []*domain.HolderNode{raid, bcache}}

	plan := Plan([]*domain.HolderNode{disk})
	require.Len(t, plan, 3)
	// Same level (both leaves); bcache outranks raid (spec.md §4.3 priority list).
	assert.Equal(t, "bcache0", plan[0].KName)
	assert.Equal(t, "md0", plan[1].KName)
	assert.Equal(t, "sda", plan[2].KName)
}
