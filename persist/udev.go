package persist

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// DnameTarget names one lvm_partition needing a stable
// /dev/disk/by-dname/<vg>-<lv> symlink (spec.md §4.5 "lvm_partition":
// "udev rules add /dev/disk/by-dname/<vg>-<lv>").
type DnameTarget struct {
	Volgroup string
	Name     string
}

// WriteUdevRules emits one rule per target under the target's udev
// rules.d directory.
func WriteUdevRules(fs afero.Fs, path string, targets []DnameTarget) error {
	var b strings.Builder
	for _, t := range targets {
		fmt.Fprintf(&b,
			`SUBSYSTEM=="block", ENV{DM_VG_NAME}=="%s", ENV{DM_LV_NAME}=="%s", SYMLINK+="disk/by-dname/%s-%s"`+"\n",
			t.Volgroup, t.Name, t.Volgroup, t.Name,
		)
	}
	return afero.WriteFile(fs, path, []byte(b.String()), 0o644)
}
