package persist

import (
	"encoding/json"

	"github.com/spf13/afero"
)

// WriteDeviceMap serializes entry id -> final device path to
// storage.device_map_path when configured (spec.md §4.7 "a JSON
// device_map (action-id -> final device path)").
func WriteDeviceMap(fs afero.Fs, path string, deviceMap map[string]string) error {
	data, err := json.MarshalIndent(deviceMap, "", "  ")
	if err != nil {
		return err
	}
	return afero.WriteFile(fs, path, data, 0o644)
}
