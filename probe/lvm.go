package probe

import (
	"context"
	"strings"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// VGDetail is the subset of `vgs`/`pvs` output the verifier needs to
// check that a volume group's PV set matches the configured devices
// (spec.md §4.6 lvm_volgroup checks).
type VGDetail struct {
	Name string
	PVs  []string
}

// DetailVG runs `vgs --noheadings -o vg_name,pv_name --separator ,` and
// groups rows by vg_name.
func DetailVG(ctx context.Context, runner domain.ToolRunner, name string) (*VGDetail, error) {
	stdout, _, err := runner.Run(ctx,
		[]string{"vgs", "--noheadings", "-o", "vg_name,pv_name", "--separator", ","},
		tooldriver.TimeoutLVM)
	if err != nil {
		return nil, err
	}

	d := &VGDetail{Name: name}
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			continue
		}
		if strings.TrimSpace(fields[0]) == name {
			d.PVs = append(d.PVs, strings.TrimSpace(fields[1]))
		}
	}
	return d, nil
}

// LVExists checks `lvs --noheadings -o lv_name vg` for a matching name.
func LVExists(ctx context.Context, runner domain.ToolRunner, vg, lv string) (bool, error) {
	stdout, _, err := runner.Run(ctx, []string{"lvs", "--noheadings", "-o", "lv_name", vg}, tooldriver.TimeoutLVM)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == lv {
			return true, nil
		}
	}
	return false, nil
}
