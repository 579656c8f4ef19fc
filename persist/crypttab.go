package persist

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
)

// WriteCrypttab emits one line per dm_crypt action (spec.md §4.7
// "/etc/crypttab (one line per dm_crypt)").
func WriteCrypttab(fs afero.Fs, path string, acc *domain.CrypttabAccumulator) error {
	var b strings.Builder
	b.WriteString("# generated by curtin-storage-engine\n")
	for _, r := range acc.Records() {
		opts := r.Options
		if opts == "" {
			opts = "luks"
		}
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\n", r.DMName, r.Volume, r.KeySpec, opts)
	}
	return afero.WriteFile(fs, path, []byte(b.String()), 0o600)
}
