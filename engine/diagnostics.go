package engine

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
)

// Diagnostic is the failure snapshot spec.md §4.5/§5 requires: "any
// executor failure is fatal... the engine writes a diagnostic snapshot
// of probe state, the action that failed, and the external tool's
// stderr" and "partial state is left as-is and surfaced in the
// diagnostic snapshot" for a SIGINT/SIGTERM cancellation.
type Diagnostic struct {
	EntryID string           `json:"entry_id"`
	Type    string           `json:"type,omitempty"`
	Err     string           `json:"error"`
	Probe   *domain.Snapshot `json:"probe,omitempty"`
}

// WriteDiagnostic serializes d as JSON alongside fstabDir, for
// postmortem use by the containing installer (SPEC_FULL.md §A.2).
func WriteDiagnostic(ctx context.Context, fs afero.Fs, fstabDir string, prober domain.Prober, d Diagnostic) error {
	if d.Probe == nil && prober != nil {
		if snap, err := prober.Probe(ctx); err == nil {
			d.Probe = snap
		}
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(fstabDir, "curtin-storage-diagnostic.json")
	return afero.WriteFile(fs, path, data, 0o644)
}

// toolFailure builds a Diagnostic from an action failure, pulling the
// entry type out of an ExecutionError when the failing error is one and
// appending the stderr of any ToolError in its chain.
func toolFailure(entryID string, err error) Diagnostic {
	d := Diagnostic{EntryID: entryID, Err: err.Error()}
	if ee, ok := err.(*domain.ExecutionError); ok {
		d.Type = ee.Type
	}
	var te *domain.ToolError
	if errors.As(err, &te) && te.Stderr != "" {
		d.Err += "; stderr: " + te.Stderr
	}
	return d
}
