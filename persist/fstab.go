// Package persist emits the on-disk artifacts the engine hands back to
// the containing installer once the action loop completes: fstab,
// crypttab, udev by-dname rules, the JSON device map, and any systemd
// units a transport annotation requires (spec.md §4.7).
package persist

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
)

// WriteFstab emits path's contents ordered by mount-path depth (spec.md
// §4.7 "/etc/fstab (the in-memory accumulator, ordered by mount-path
// depth)").
func WriteFstab(fs afero.Fs, path string, acc *domain.FstabAccumulator) error {
	var b strings.Builder
	b.WriteString("# generated by curtin-storage-engine\n")
	for _, r := range acc.Records() {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Spec, r.Path, r.FsType, r.Options, strconv.Itoa(r.Freq), strconv.Itoa(r.Passno))
	}
	return afero.WriteFile(fs, path, []byte(b.String()), 0o644)
}
