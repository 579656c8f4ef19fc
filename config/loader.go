package config

import (
	"github.com/canonical/curtin-storage-engine/domain"
)

// Load parses, validates, and indexes a storage config document in one
// step — the entry point config/schema_test.go and cmd/block-meta both use.
func Load(data []byte) (*Document, *domain.Graph, error) {
	doc, err := ParseYAML(data)
	if err != nil {
		return nil, nil, err
	}
	if err := Validate(doc); err != nil {
		return nil, nil, err
	}
	return doc, domain.NewGraph(doc.Entries), nil
}
