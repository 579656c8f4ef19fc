package actions

import (
	"context"
	"testing"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/internal/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskExecutorResolvesAndPartitions(t *testing.T) {
	e := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}, Serial: "WD-123", Ptable: "gpt"}
	g := domain.NewGraph([]domain.Entry{e})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda": {KName: "sda", DevPath: "/dev/sda", DevType: domain.DevDisk, Serial: "WD-123"},
	}}

	runner := fakes.NewToolRunner()
	x := NewDiskExecutor(runner, nil)

	req := &domain.ExecRequest{Entry: e, Graph: g, Snapshot: snap}
	res, err := x.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/dev/sda", res.DevPath)
	assert.Equal(t, "/dev/sda", e.ResolvedPath)
	assert.True(t, res.Reprobe)

	var sawMklabel bool
	for _, call := range runner.Calls {
		for i, arg := range call {
			if arg == "mklabel" && i+1 < len(call) && call[i+1] == "gpt" {
				sawMklabel = true
			}
		}
	}
	assert.True(t, sawMklabel)
}

func TestDiskExecutorPreserveSkipsWipe(t *testing.T) {
	e := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk, Preserve: true}, Serial: "WD-123"}
	g := domain.NewGraph([]domain.Entry{e})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda": {KName: "sda", DevPath: "/dev/sda", DevType: domain.DevDisk, Serial: "WD-123"},
	}}

	runner := fakes.NewToolRunner()
	x := NewDiskExecutor(runner, nil)

	req := &domain.ExecRequest{Entry: e, Graph: g, Snapshot: snap}
	_, err := x.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, runner.Calls)
}

func TestDiskExecutorVerifyDetectsPtableMismatch(t *testing.T) {
	e := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}, Serial: "WD-123", Ptable: "gpt"}
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda": {KName: "sda", DevPath: "/dev/sda", DevType: domain.DevDisk, Serial: "WD-123", PtableType: "msdos"},
	}}

	x := NewDiskExecutor(fakes.NewToolRunner(), nil)
	err := x.Verify(context.Background(), &domain.ExecRequest{Entry: e, Snapshot: snap})
	require.Error(t, err)
	var verr *domain.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ptable", verr.Field)
}

func TestDiskExecutorSuperblockWipeZerosBothEnds(t *testing.T) {
	e := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk, Wipe: "superblock"}, Serial: "WD-123"}
	g := domain.NewGraph([]domain.Entry{e})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda": {KName: "sda", DevPath: "/dev/sda", DevType: domain.DevDisk, Serial: "WD-123", Size: 10 << 20},
	}}

	runner := fakes.NewToolRunner()
	x := NewDiskExecutor(runner, nil)

	_, err := x.Execute(context.Background(), &domain.ExecRequest{Entry: e, Graph: g, Snapshot: snap})
	require.NoError(t, err)

	require.Len(t, runner.Calls, 2)
	assert.Equal(t, []string{"dd", "if=/dev/zero", "of=/dev/sda", "bs=1M", "count=1"}, runner.Calls[0])
	assert.Equal(t, []string{"dd", "if=/dev/zero", "of=/dev/sda", "bs=1M", "count=1", "seek=9"}, runner.Calls[1])
}

func TestDiskExecutorSuperblockWipeZapsExistingGPT(t *testing.T) {
	e := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk}, Serial: "WD-123"}
	g := domain.NewGraph([]domain.Entry{e})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda": {KName: "sda", DevPath: "/dev/sda", DevType: domain.DevDisk, Serial: "WD-123", PtableType: "gpt"},
	}}

	runner := fakes.NewToolRunner()
	x := NewDiskExecutor(runner, nil)

	_, err := x.Execute(context.Background(), &domain.ExecRequest{Entry: e, Graph: g, Snapshot: snap})
	require.NoError(t, err)

	require.Len(t, runner.Calls, 1)
	assert.Equal(t, []string{"sgdisk", "--zap-all", "/dev/sda"}, runner.Calls[0])
}

func TestDiskExecutorRecursiveWipeClearsChildSignaturesFirst(t *testing.T) {
	e := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk, Wipe: "superblock-recursive"}, Serial: "WD-123"}
	g := domain.NewGraph([]domain.Entry{e})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda": {KName: "sda", DevPath: "/dev/sda", DevType: domain.DevDisk, Serial: "WD-123", Children: []string{"sda1", "sda2"}},
	}}

	runner := fakes.NewToolRunner()
	x := NewDiskExecutor(runner, nil)

	_, err := x.Execute(context.Background(), &domain.ExecRequest{Entry: e, Graph: g, Snapshot: snap})
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(runner.Calls), 3)
	assert.Equal(t, []string{"wipefs", "-a", "/dev/sda1"}, runner.Calls[0])
	assert.Equal(t, []string{"wipefs", "-a", "/dev/sda2"}, runner.Calls[1])
	assert.Equal(t, "dd", runner.Calls[2][0])
}
