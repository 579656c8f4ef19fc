package actions

import (
	"context"
	"testing"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/internal/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionExecutorCreatesAndResolves(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	disk.ResolvedPath = "/dev/sda"
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0", Number: 1, Size: "1G"}

	g := domain.NewGraph([]domain.Entry{disk, part})
	runner := fakes.NewToolRunner()
	x := NewPartitionExecutor(runner)

	req := &domain.ExecRequest{Entry: part, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}}
	res, err := x.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/dev/sda1", res.DevPath)
	assert.Equal(t, "/dev/sda1", part.ResolvedPath)
	assert.True(t, res.Reprobe)

	var sawMkpart bool
	for _, call := range runner.Calls {
		for _, arg := range call {
			if arg == "mkpart" {
				sawMkpart = true
			}
		}
	}
	assert.True(t, sawMkpart)
}

func TestPartitionExecutorHonorsPartitionTypeOverFlag(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	disk.ResolvedPath = "/dev/sda"
	part := &domain.PartitionEntry{
		Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0",
		Number: 1, Flag: "boot", PartitionType: "C12A7328-F81F-11D2-BA4B-00A0C93EC93B",
	}

	g := domain.NewGraph([]domain.Entry{disk, part})
	runner := fakes.NewToolRunner()
	x := NewPartitionExecutor(runner)

	req := &domain.ExecRequest{Entry: part, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}}
	_, err := x.Execute(context.Background(), req)
	require.NoError(t, err)

	var sawSetFlag, sawTypecode bool
	for _, call := range runner.Calls {
		if len(call) > 0 && call[0] == "parted" {
			for _, arg := range call {
				if arg == "set" {
					sawSetFlag = true
				}
			}
		}
		if len(call) > 0 && call[0] == "sgdisk" {
			sawTypecode = true
		}
	}
	assert.False(t, sawSetFlag, "flag must not be applied when partition_type is set")
	assert.True(t, sawTypecode)
}

func TestPartitionExecutorImpliedOffsetFollowsPreviousPartition(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	disk.ResolvedPath = "/dev/sda"
	part1 := &domain.PartitionEntry{Common: domain.Common{ID: "part1", Type: domain.TypePartition}, Device: "disk0", Number: 1, Size: "100M"}
	part2 := &domain.PartitionEntry{Common: domain.Common{ID: "part2", Type: domain.TypePartition}, Device: "disk0", Number: 2, Size: "200M"}

	g := domain.NewGraph([]domain.Entry{disk, part1, part2})
	runner := fakes.NewToolRunner()
	x := NewPartitionExecutor(runner)
	cursors := map[string]uint64{}

	req1 := &domain.ExecRequest{Entry: part1, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}, PartitionCursors: cursors}
	_, err := x.Execute(context.Background(), req1)
	require.NoError(t, err)

	req2 := &domain.ExecRequest{Entry: part2, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}, PartitionCursors: cursors}
	_, err = x.Execute(context.Background(), req2)
	require.NoError(t, err)

	var mkpartArgs [][]string
	for _, call := range runner.Calls {
		if len(call) > 0 && call[0] == "parted" {
			for _, arg := range call {
				if arg == "mkpart" {
					mkpartArgs = append(mkpartArgs, call)
				}
			}
		}
	}
	require.Len(t, mkpartArgs, 2)
	// part1: start 0 MiB, end 100 MiB.
	assert.Contains(t, mkpartArgs[0], "0")
	assert.Contains(t, mkpartArgs[0], "100")
	// part2 must start where part1 ended, not back at 0.
	assert.Contains(t, mkpartArgs[1], "100")
	assert.Contains(t, mkpartArgs[1], "300")
	assert.NotContains(t, mkpartArgs[1], "0")
}

func TestPartitionExecutorMkpartTypeFollowsFlag(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	disk.ResolvedPath = "/dev/sda"
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0", Number: 5, Flag: "logical", Size: "100M"}

	g := domain.NewGraph([]domain.Entry{disk, part})
	runner := fakes.NewToolRunner()
	x := NewPartitionExecutor(runner)

	req := &domain.ExecRequest{Entry: part, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}}
	_, err := x.Execute(context.Background(), req)
	require.NoError(t, err)

	var sawLogical bool
	for _, call := range runner.Calls {
		if len(call) > 0 && call[0] == "parted" {
			for i, arg := range call {
				if arg == "mkpart" && i+1 < len(call) && call[i+1] == "logical" {
					sawLogical = true
				}
			}
		}
	}
	assert.True(t, sawLogical, "logical partitions must pass 'logical' as the mkpart type, not primary")
}

func TestPartitionExecutorVerifyDetectsMissingDevice(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	disk.ResolvedPath = "/dev/sda"
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0", Number: 1}

	g := domain.NewGraph([]domain.Entry{disk, part})
	x := NewPartitionExecutor(fakes.NewToolRunner())

	req := &domain.ExecRequest{Entry: part, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}}
	err := x.Verify(context.Background(), req)
	require.Error(t, err)
	var verr *domain.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "existence", verr.Field)
}

func TestPartitionExecutorVerifyMatchesByKName(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	disk.ResolvedPath = "/dev/sda"
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0", Number: 1, Size: "100M"}

	g := domain.NewGraph([]domain.Entry{disk, part})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda1": {KName: "sda1", DevType: domain.DevPartition, Size: 100 << 20},
	}}

	x := NewPartitionExecutor(fakes.NewToolRunner())
	err := x.Verify(context.Background(), &domain.ExecRequest{Entry: part, Graph: g, Snapshot: snap})
	require.NoError(t, err)
}

func TestPartitionExecutorVerifyDetectsSizeMismatch(t *testing.T) {
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}}
	disk.ResolvedPath = "/dev/sda"
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0", Number: 1, Size: "100M"}

	g := domain.NewGraph([]domain.Entry{disk, part})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda1": {KName: "sda1", DevType: domain.DevPartition, Size: 200 << 20},
	}}

	x := NewPartitionExecutor(fakes.NewToolRunner())
	err := x.Verify(context.Background(), &domain.ExecRequest{Entry: part, Graph: g, Snapshot: snap})
	require.Error(t, err)
	var verr *domain.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "size", verr.Field)
}
