package planner

import (
	"testing"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTopoOrdersDependentsAfterDependencies(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}, Ptable: "gpt"}
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0"}
	format := &domain.FormatEntry{Common: domain.Common{ID: "fmt0", Type: domain.TypeFormat}, Volume: "part0", Fstype: "ext4"}
	mount := &domain.MountEntry{Common: domain.Common{ID: "mnt0", Type: domain.TypeMount}, Device: "fmt0", Path: "/"}

	g := domain.NewGraph([]domain.Entry{mount, format, part, disk})
	actions, err := Plan(g)
	require.NoError(t, err)
	require.Len(t, actions, 4)

	index := make(map[string]int)
	for i, a := range actions {
		index[a.Entry.GetID()] = i
	}
	assert.Less(t, index["disk0"], index["part0"])
	assert.Less(t, index["part0"], index["fmt0"])
	assert.Less(t, index["fmt0"], index["mnt0"])
}

func TestPlanStableTieBreakUsesOriginalOrder(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	partB := &domain.PartitionEntry{Common: domain.Common{ID: "partB", Type: domain.TypePartition}, Device: "disk0"}
	partA := &domain.PartitionEntry{Common: domain.Common{ID: "partA", Type: domain.TypePartition}, Device: "disk0"}

	g := domain.NewGraph([]domain.Entry{disk, partB, partA})
	actions, err := Plan(g)
	require.NoError(t, err)
	require.Len(t, actions, 3)

	assert.Equal(t, "disk0", actions[0].Entry.GetID())
	assert.Equal(t, "partB", actions[1].Entry.GetID())
	assert.Equal(t, "partA", actions[2].Entry.GetID())
}

func TestPlanSubstitutesVerifyOnlyForPreserve(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk, Preserve: true}}
	g := domain.NewGraph([]domain.Entry{disk})

	actions, err := Plan(g)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.True(t, actions[0].VerifyOnly)
}

func TestPlanExpandsZfsRoot(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	format := &domain.FormatEntry{Common: domain.Common{ID: "root", Type: domain.TypeFormat}, Volume: "disk0", Fstype: "zfsroot"}

	g := domain.NewGraph([]domain.Entry{disk, format})
	actions, err := Plan(g)
	require.NoError(t, err)
	require.Len(t, actions, 3)

	pool, ok := actions[1].Entry.(*domain.ZpoolEntry)
	require.True(t, ok)
	assert.Equal(t, []string{"disk0"}, pool.Vdevs)

	ds, ok := actions[2].Entry.(*domain.ZFSEntry)
	require.True(t, ok)
	assert.Equal(t, "root", ds.GetID())
	assert.Equal(t, pool.Pool, ds.Pool)
}

func TestPlanInjectsSwapFstabEntry(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0", Flag: "swap"}

	g := domain.NewGraph([]domain.Entry{disk, part})
	actions, err := Plan(g)
	require.NoError(t, err)
	require.Len(t, actions, 3)

	mnt, ok := actions[2].Entry.(*domain.MountEntry)
	require.True(t, ok)
	assert.True(t, mnt.NoMount)
	assert.Equal(t, "part0", mnt.Device)
}

func TestPlanDetectsCycle(t *testing.T) {
	a := &domain.PartitionEntry{Common: domain.Common{ID: "a", Type: domain.TypePartition}, Device: "b"}
	b := &domain.PartitionEntry{Common: domain.Common{ID: "b", Type: domain.TypePartition}, Device: "a"}

	g := domain.NewGraph([]domain.Entry{a, b})
	_, err := Plan(g)
	require.Error(t, err)
	var schemaErr *domain.SchemaError
	require.ErrorAs(t, err, &schemaErr)
}
