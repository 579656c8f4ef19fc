package probe

import (
	"context"
	"strconv"
	"strings"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// RaidDetail is the subset of `mdadm --detail` the verifier and holders
// engine need (spec.md §4.6 raid checks: raidlevel, member UUIDs, member
// + spare sets, metadata version).
type RaidDetail struct {
	RaidLevel    int
	MetadataVer  string
	ArrayUUID    string
	Devices      []string
	SpareDevices []string
	Degraded     bool
}

// DetailRaid runs `mdadm --detail <device>` and parses its colon-keyed
// report format.
func DetailRaid(ctx context.Context, runner domain.ToolRunner, device string) (*RaidDetail, error) {
	stdout, _, err := runner.Run(ctx, []string{"mdadm", "--detail", device}, tooldriver.TimeoutMdadm)
	if err != nil {
		return nil, err
	}

	d := &RaidDetail{}
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		key, val, ok := splitColon(line)
		if !ok {
			continue
		}
		switch key {
		case "Raid Level":
			d.RaidLevel = parseRaidLevel(val)
		case "Version":
			d.MetadataVer = val
		case "UUID":
			d.ArrayUUID = val
		case "State":
			d.Degraded = strings.Contains(val, "degraded")
		}
		if strings.Contains(line, "active sync") || strings.Contains(line, "spare") {
			fields := strings.Fields(line)
			if len(fields) > 0 {
				dev := fields[len(fields)-1]
				if strings.Contains(line, "spare") {
					d.SpareDevices = append(d.SpareDevices, dev)
				} else {
					d.Devices = append(d.Devices, dev)
				}
			}
		}
	}
	return d, nil
}

func splitColon(line string) (key, val string, ok bool) {
	idx := strings.Index(line, " : ")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+3:]), true
}

func parseRaidLevel(s string) int {
	s = strings.TrimPrefix(s, "raid")
	n, _ := strconv.Atoi(s)
	return n
}
