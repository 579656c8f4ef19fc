package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/canonical/curtin-storage-engine/domain"
)

// Document is the top-level "storage" key (spec.md §6).
type Document struct {
	Version       int    `yaml:"version"`
	DeviceMapPath string `yaml:"device_map_path,omitempty"`
	Entries       []domain.Entry
}

type rawDocument struct {
	Storage struct {
		Version       int         `yaml:"version"`
		DeviceMapPath string      `yaml:"device_map_path"`
		Config        []yaml.Node `yaml:"config"`
	} `yaml:"storage"`
}

type typeProbe struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// ParseYAML decodes raw storage-config YAML bytes into a Document,
// rejecting unrecognized types and unknown keys within a known type
// (spec.md §2 "Schema & Config Loader", §6).
func ParseYAML(data []byte) (*Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &domain.SchemaError{Msg: fmt.Sprintf("invalid YAML: %v", err)}
	}

	if raw.Storage.Version != 1 && raw.Storage.Version != 2 {
		return nil, &domain.SchemaError{Msg: fmt.Sprintf("version must be 1 or 2, got %d", raw.Storage.Version)}
	}

	doc := &Document{
		Version:       raw.Storage.Version,
		DeviceMapPath: raw.Storage.DeviceMapPath,
	}

	seen := make(map[string]bool, len(raw.Storage.Config))
	for _, node := range raw.Storage.Config {
		var probe typeProbe
		if err := node.Decode(&probe); err != nil {
			return nil, &domain.SchemaError{Msg: fmt.Sprintf("entry is not a mapping: %v", err)}
		}
		if probe.ID == "" {
			return nil, &domain.SchemaError{Msg: "entry is missing required field \"id\""}
		}
		if seen[probe.ID] {
			return nil, &domain.SchemaError{Entry: probe.ID, Msg: "duplicate id"}
		}
		seen[probe.ID] = true

		et := domain.EntryType(probe.Type)
		if !domain.ValidTypes[et] {
			return nil, &domain.SchemaError{Entry: probe.ID, Msg: fmt.Sprintf("unrecognized type %q", probe.Type)}
		}

		entry, err := decodeEntry(&node, et)
		if err != nil {
			return nil, &domain.SchemaError{Entry: probe.ID, Msg: err.Error()}
		}
		doc.Entries = append(doc.Entries, entry)
	}

	return doc, nil
}

// decodeEntry decodes a single YAML node into the concrete Entry type
// matching et, rejecting any key not recognized by that type.
func decodeEntry(node *yaml.Node, et domain.EntryType) (domain.Entry, error) {
	var target domain.Entry
	switch et {
	case domain.TypeDASD:
		target = &domain.DASDEntry{}
	case domain.TypeDisk:
		target = &domain.DiskEntry{}
	case domain.TypePartition:
		target = &domain.PartitionEntry{}
	case domain.TypeFormat:
		target = &domain.FormatEntry{}
	case domain.TypeMount:
		target = &domain.MountEntry{}
	case domain.TypeLVMVolgroup:
		target = &domain.LVMVolgroupEntry{}
	case domain.TypeLVMPartition:
		target = &domain.LVMPartitionEntry{}
	case domain.TypeDMCrypt:
		target = &domain.DMCryptEntry{}
	case domain.TypeRAID:
		target = &domain.RAIDEntry{}
	case domain.TypeBcache:
		target = &domain.BcacheEntry{}
	case domain.TypeZpool:
		target = &domain.ZpoolEntry{}
	case domain.TypeZFS:
		target = &domain.ZFSEntry{}
	case domain.TypeNVMeController:
		target = &domain.NVMeControllerEntry{}
	case domain.TypeDevice:
		target = &domain.DeviceEntry{}
	default:
		return nil, fmt.Errorf("unrecognized type %q", et)
	}

	if err := decodeStrict(node, target); err != nil {
		return nil, fmt.Errorf("unknown or malformed field: %w", err)
	}
	return target, nil
}

// decodeStrict re-renders node and decodes it through a yaml.Decoder with
// KnownFields enabled, which yaml.Node.Decode alone does not support.
// This is how "Unknown keys inside a known type are rejected" (spec.md
// §6) is enforced.
func decodeStrict(node *yaml.Node, out interface{}) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
