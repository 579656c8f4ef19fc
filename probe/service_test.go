package probe

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canonical/curtin-storage-engine/internal/fakes"
)

func newFakeSysfs(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/sys/class/block/sda", 0755))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/sda/size", []byte("20971520\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/sda/ro", []byte("0\n"), 0644))

	require.NoError(t, fs.MkdirAll("/sys/class/block/sda1", 0755))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/sda1/size", []byte("2097152\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/sda1/ro", []byte("0\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/sda1/partition", []byte("1\n"), 0644))
	require.NoError(t, fs.MkdirAll("/sys/class/block/sda1/slaves/sda", 0755))

	require.NoError(t, fs.MkdirAll("/sys/class/block/sda/holders/sda1", 0755))

	return fs
}

func TestServiceProbeBasic(t *testing.T) {
	fs := newFakeSysfs(t)
	runner := fakes.NewToolRunner()
	runner.Script("lsblk", fakes.ToolResponse{Stdout: `{"blockdevices":[]}`})
	runner.Script("dmsetup", fakes.ToolResponse{Stdout: ""})

	svc := NewService(fs, runner, nil)
	snap, err := svc.Probe(context.Background())
	require.NoError(t, err)

	require.Contains(t, snap.Devices, "sda")
	require.Contains(t, snap.Devices, "sda1")

	disk := snap.Devices["sda"]
	assert.Equal(t, uint64(20971520*512), disk.Size)
	assert.False(t, disk.ReadOnly)
	assert.Contains(t, disk.Children, "sda1")

	part := snap.Devices["sda1"]
	assert.Contains(t, part.Parents, "sda")
}

// Real sysfs expresses the disk<->partition relation only by directory
// nesting; there are no slaves/holders links between sda and sda1. The
// probe must still produce the edge.
func TestServiceProbeLinksPartitionsWithoutSysfsEdges(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/sys/class/block/nvme0n1", 0755))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/nvme0n1/size", []byte("20971520\n"), 0644))
	require.NoError(t, fs.MkdirAll("/sys/class/block/nvme0n1p2", 0755))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/nvme0n1p2/size", []byte("2097152\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/nvme0n1p2/partition", []byte("2\n"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/sys/class/block/nvme0n1p2/start", []byte("2048\n"), 0644))

	runner := fakes.NewToolRunner()
	runner.Script("lsblk", fakes.ToolResponse{Stdout: `{"blockdevices":[]}`})
	runner.Script("dmsetup", fakes.ToolResponse{Stdout: ""})

	svc := NewService(fs, runner, nil)
	snap, err := svc.Probe(context.Background())
	require.NoError(t, err)

	part := snap.Devices["nvme0n1p2"]
	require.NotNil(t, part)
	assert.Equal(t, []string{"nvme0n1"}, part.Parents)
	assert.Equal(t, 2, part.PartitionNumber)
	assert.Equal(t, uint64(2048*512), part.Offset)
	assert.Contains(t, snap.Devices["nvme0n1"].Children, "nvme0n1p2")
}
