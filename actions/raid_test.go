package actions

import (
	"context"
	"testing"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/internal/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRAIDExecutorBuildsMdadmCreate(t *testing.T) {
	p1 := &domain.PartitionEntry{Common: domain.Common{ID: "p1", Type: domain.TypePartition}, Device: "disk0"}
	p1.ResolvedPath = "/dev/sda1"
	p2 := &domain.PartitionEntry{Common: domain.Common{ID: "p2", Type: domain.TypePartition}, Device: "disk1"}
	p2.ResolvedPath = "/dev/sdb1"
	spare := &domain.PartitionEntry{Common: domain.Common{ID: "p3", Type: domain.TypePartition}, Device: "disk2"}
	spare.ResolvedPath = "/dev/sdc1"
	raid := &domain.RAIDEntry{
		Common: domain.Common{ID: "md0", Type: domain.TypeRAID},
		Name:   "md0", RaidLevel: 1, MetadataVer: "1.2",
		Devices: []string{"p1", "p2"}, SpareDevices: []string{"p3"},
	}

	g := domain.NewGraph([]domain.Entry{p1, p2, spare, raid})
	runner := fakes.NewToolRunner()
	x := NewRAIDExecutor(runner)

	res, err := x.Execute(context.Background(), &domain.ExecRequest{Entry: raid, Graph: g, Snapshot: &domain.Snapshot{}})
	require.NoError(t, err)
	assert.Equal(t, "/dev/md0", res.DevPath)
	assert.True(t, res.Reprobe)

	require.NotEmpty(t, runner.Calls)
	create := runner.Calls[0]
	assert.Equal(t, "mdadm", create[0])
	assert.Contains(t, create, "--create")
	assert.Contains(t, create, "--level=1")
	assert.Contains(t, create, "--metadata=1.2")
	assert.Contains(t, create, "--assume-clean")
	assert.Contains(t, create, "/dev/sda1")
	assert.Contains(t, create, "/dev/sdb1")
	assert.Contains(t, create, "--spare-devices=1")
	assert.Contains(t, create, "/dev/sdc1")
}

func TestRAIDExecutorPartitionsArrayWhenPtableSet(t *testing.T) {
	p1 := &domain.PartitionEntry{Common: domain.Common{ID: "p1", Type: domain.TypePartition}, Device: "disk0"}
	p1.ResolvedPath = "/dev/sda1"
	raid := &domain.RAIDEntry{
		Common: domain.Common{ID: "md0", Type: domain.TypeRAID},
		Name:   "md0", RaidLevel: 0, Devices: []string{"p1"}, Ptable: "gpt",
	}

	g := domain.NewGraph([]domain.Entry{p1, raid})
	runner := fakes.NewToolRunner()
	x := NewRAIDExecutor(runner)

	_, err := x.Execute(context.Background(), &domain.ExecRequest{Entry: raid, Graph: g, Snapshot: &domain.Snapshot{}})
	require.NoError(t, err)

	var sawMklabel bool
	for _, call := range runner.Calls {
		if call[0] == "parted" {
			assert.Contains(t, call, "mklabel")
			assert.Contains(t, call, "gpt")
			sawMklabel = true
		}
	}
	assert.True(t, sawMklabel)
}

func TestRAIDExecutorVerifyDetectsLevelMismatch(t *testing.T) {
	p1 := &domain.PartitionEntry{Common: domain.Common{ID: "p1", Type: domain.TypePartition}, Device: "disk0"}
	p1.ResolvedPath = "/dev/sda1"
	raid := &domain.RAIDEntry{
		Common: domain.Common{ID: "md0", Type: domain.TypeRAID, Preserve: true},
		Name:   "md0", RaidLevel: 5, Devices: []string{"p1"},
	}

	g := domain.NewGraph([]domain.Entry{p1, raid})
	runner := fakes.NewToolRunner()
	runner.Script("mdadm --detail", fakes.ToolResponse{Stdout: `/dev/md0:
        Version : 1.2
     Raid Level : raid1
          State : clean
           UUID : 8c9dd4a8:66621f28
    0     8        1      0      active sync   /dev/sda1
`})
	x := NewRAIDExecutor(runner)

	err := x.Verify(context.Background(), &domain.ExecRequest{Entry: raid, Graph: g, Snapshot: &domain.Snapshot{}})
	require.Error(t, err)
	var verr *domain.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "raidlevel", verr.Field)
}
