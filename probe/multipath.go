package probe

import (
	"context"
	"strings"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// MultipathMember describes one row of `multipath -ll` output: the WWID
// heading a block and the member knames underneath it.
type MultipathMember struct {
	WWID    string
	Members []string
}

// ListMultipath parses `multipath -ll`, whose format is a WWID/alias
// header line (WWID in parentheses) followed by indented member lines in
// which the member's kname is the first lowercase field that is not a
// key=value pair, e.g.:
//
//	mpatha (360014...) dm-0 ...
//	|-+- policy='...' ...
//	  `- 2:0:0:0 sda 8:0  active ready running
func ListMultipath(ctx context.Context, runner domain.ToolRunner) ([]MultipathMember, error) {
	stdout, _, err := runner.Run(ctx, []string{"multipath", "-ll"}, tooldriver.TimeoutDefault)
	if err != nil {
		return nil, err
	}

	var out []MultipathMember
	var cur *MultipathMember
	for _, line := range strings.Split(stdout, "\n") {
		if line == "" {
			continue
		}
		if line[0] != ' ' && line[0] != '\t' && line[0] != '|' && line[0] != '`' {
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			wwid := strings.Trim(fields[1], "()")
			out = append(out, MultipathMember{WWID: wwid})
			cur = &out[len(out)-1]
			continue
		}
		if cur == nil {
			continue
		}
		fields := strings.Fields(line)
		for _, f := range fields {
			if len(f) > 0 && f[0] >= 'a' && f[0] <= 'z' && !strings.Contains(f, "=") {
				cur.Members = append(cur.Members, f)
				break
			}
		}
	}
	return out, nil
}
