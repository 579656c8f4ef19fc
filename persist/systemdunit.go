package persist

import (
	"fmt"
	"io"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
)

// WriteNVMeConnectUnit emits a oneshot systemd unit that runs `nvme
// connect` ahead of the mount stage for a tcp-attached controller
// (spec.md §4.5 "nvme_controller": "consumed by persistence to emit any
// required connect unit"). pcie controllers need no unit.
func WriteNVMeConnectUnit(fs afero.Fs, path string, e *domain.NVMeControllerEntry) error {
	if e.Transport != "tcp" {
		return nil
	}

	opts := []*unit.UnitOption{
		{Section: "Unit", Name: "Description", Value: fmt.Sprintf("Connect NVMe/TCP controller %s", e.ID)},
		{Section: "Unit", Name: "Before", Value: "local-fs-pre.target"},
		{Section: "Service", Name: "Type", Value: "oneshot"},
		{Section: "Service", Name: "ExecStart", Value: fmt.Sprintf(
			"/usr/sbin/nvme connect -t tcp -a %s -s %d -n nqn.curtin-storage-engine:%s",
			e.TCPAddr, e.TCPPort, e.ID)},
		{Section: "Install", Name: "WantedBy", Value: "local-fs-pre.target"},
	}

	data, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
