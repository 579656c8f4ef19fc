package verify

import (
	"context"
	"testing"

	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/actions"
	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/internal/fakes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryRejectsUnsupportedPreserveType(t *testing.T) {
	reg := actions.NewRegistry(fakes.NewToolRunner(), afero.NewMemMapFs(), nil)
	e := &domain.DeviceEntry{Common: domain.Common{ID: "dev0", Type: domain.TypeDevice, Preserve: true}, Path: "/dev/sdz"}

	err := Entry(context.Background(), reg, &domain.ExecRequest{Entry: e})
	require.Error(t, err)
	var serr *domain.SchemaError
	require.ErrorAs(t, err, &serr)
}

func TestEntryDelegatesToExecutorVerifier(t *testing.T) {
	reg := actions.NewRegistry(fakes.NewToolRunner(), afero.NewMemMapFs(), nil)
	disk := &domain.DiskEntry{Common: domain.Common{ID: "disk0", Type: domain.TypeDisk, Preserve: true}, Serial: "abc", Ptable: "gpt"}
	snap := &domain.Snapshot{Devices: map[string]*domain.BlockDevice{
		"sda": {KName: "sda", DevPath: "/dev/sda", Serial: "abc", PtableType: "msdos"},
	}}

	err := Entry(context.Background(), reg, &domain.ExecRequest{Entry: disk, Snapshot: snap})
	require.Error(t, err)
	var verr *domain.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ptable", verr.Field)
}
