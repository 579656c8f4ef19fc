package probe

import (
	"context"
	"strings"

	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// PoolExists checks `zpool list -H -o name` for a matching pool name
// (spec.md §4.1 inputs: "zpool list").
func PoolExists(ctx context.Context, runner domain.ToolRunner, name string) (bool, error) {
	stdout, _, err := runner.Run(ctx, []string{"zpool", "list", "-H", "-o", "name"}, tooldriver.TimeoutZpool)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(stdout, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}
