package actions

import (
	"context"
	"testing"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/internal/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcacheExecutorPairsBackingAndCache(t *testing.T) {
	backing := &domain.PartitionEntry{Common: domain.Common{ID: "back0", Type: domain.TypePartition}, Device: "disk0"}
	backing.ResolvedPath = "/dev/sda1"
	cache := &domain.DiskEntry{Common: domain.Common{ID: "cache0", Type: domain.TypeDisk}}
	cache.ResolvedPath = "/dev/nvme0n1"
	bc := &domain.BcacheEntry{
		Common:        domain.Common{ID: "bcache0", Type: domain.TypeBcache},
		BackingDevice: "back0", CacheDevice: "cache0", CacheMode: "writeback",
	}

	g := domain.NewGraph([]domain.Entry{backing, cache, bc})
	runner := fakes.NewToolRunner()
	x := NewBcacheExecutor(runner)

	res, err := x.Execute(context.Background(), &domain.ExecRequest{Entry: bc, Graph: g, Snapshot: &domain.Snapshot{}})
	require.NoError(t, err)
	assert.Equal(t, "/dev/bcache0", res.DevPath)

	require.Len(t, runner.Calls, 2)
	assert.Equal(t, []string{"make-bcache", "-B", "/dev/sda1", "-C", "/dev/nvme0n1"}, runner.Calls[0])
	assert.Contains(t, runner.Calls[1][len(runner.Calls[1])-1], "writeback")
}

func TestBcacheExecutorVerifyChecksBackingBinding(t *testing.T) {
	backing := &domain.PartitionEntry{Common: domain.Common{ID: "back0", Type: domain.TypePartition}, Device: "disk0"}
	backing.ResolvedPath = "/dev/sda1"
	bc := &domain.BcacheEntry{
		Common:        domain.Common{ID: "bcache0", Type: domain.TypeBcache, Preserve: true},
		BackingDevice: "back0",
	}

	g := domain.NewGraph([]domain.Entry{backing, bc})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"bcache0": {KName: "bcache0", DevType: domain.DevBcache, Parents: []string{"sdb7"}},
	}}

	x := NewBcacheExecutor(fakes.NewToolRunner())
	err := x.Verify(context.Background(), &domain.ExecRequest{Entry: bc, Graph: g, Snapshot: snap})
	require.Error(t, err)
	var verr *domain.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "backing_device", verr.Field)
}
