package actions

import (
	"context"
	"testing"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/internal/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatExecutorInvokesMkfsWithLabelAndUUID(t *testing.T) {
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0"}
	part.ResolvedPath = "/dev/sda1"
	fmtEntry := &domain.FormatEntry{
		Common: domain.Common{ID: "fmt0", Type: domain.TypeFormat}, Volume: "part0",
		Fstype: "ext4", Label: "root", UUID: "1111-2222",
	}

	g := domain.NewGraph([]domain.Entry{part, fmtEntry})
	runner := fakes.NewToolRunner()
	x := NewFormatExecutor(runner)

	req := &domain.ExecRequest{Entry: fmtEntry, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}}
	res, err := x.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "/dev/sda1", res.DevPath)
	assert.Equal(t, "/dev/sda1", fmtEntry.ResolvedPath)

	require.Len(t, runner.Calls, 1)
	call := runner.Calls[0]
	assert.Equal(t, "mkfs.ext4", call[0])
	assert.Contains(t, call, "-L")
	assert.Contains(t, call, "root")
	assert.Contains(t, call, "-U")
	assert.Contains(t, call, "1111-2222")
}

func TestFormatExecutorPreserveSkipsMkfs(t *testing.T) {
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0"}
	part.ResolvedPath = "/dev/sda1"
	fmtEntry := &domain.FormatEntry{Common: domain.Common{ID: "fmt0", Type: domain.TypeFormat, Preserve: true}, Volume: "part0", Fstype: "ext4"}

	g := domain.NewGraph([]domain.Entry{part, fmtEntry})
	runner := fakes.NewToolRunner()
	x := NewFormatExecutor(runner)

	req := &domain.ExecRequest{Entry: fmtEntry, Graph: g, Snapshot: &domain.Snapshot{Devices: map[string]*domain.BlockDevice{}}}
	_, err := x.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, runner.Calls)
}

func TestFormatExecutorVerifyChecksFstype(t *testing.T) {
	part := &domain.PartitionEntry{Common: domain.Common{ID: "part0", Type: domain.TypePartition}, Device: "disk0"}
	part.ResolvedPath = "/dev/sda1"
	fmtEntry := &domain.FormatEntry{Common: domain.Common{ID: "fmt0", Type: domain.TypeFormat}, Volume: "part0", Fstype: "ext4"}

	g := domain.NewGraph([]domain.Entry{part, fmtEntry})
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda1": {KName: "sda1", FsType: "xfs"},
	}}

	x := NewFormatExecutor(fakes.NewToolRunner())
	err := x.Verify(context.Background(), &domain.ExecRequest{Entry: fmtEntry, Graph: g, Snapshot: snap})
	require.Error(t, err)
	var verr *domain.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "fstype", verr.Field)
}
