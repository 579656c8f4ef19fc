// Package fakes holds hand-written test doubles, matching the teacher's
// mocks/ package style: small, explicit recorders rather than a
// generated mock harness.
package fakes

import (
	"context"
	"strings"
	"sync"

	"github.com/canonical/curtin-storage-engine/domain"
)

// ToolRunner is a recording domain.ToolRunner. Scripted responses are
// keyed by the joined argv with a single space, matched by prefix so
// tests can script e.g. "mdadm --detail" without the full device path.
type ToolRunner struct {
	mu       sync.Mutex
	Calls    [][]string
	Scripted map[string]ToolResponse
	Default  ToolResponse
}

type ToolResponse struct {
	Stdout string
	Stderr string
	Err    error
}

func NewToolRunner() *ToolRunner {
	return &ToolRunner{Scripted: make(map[string]ToolResponse)}
}

func (f *ToolRunner) Script(prefix string, resp ToolResponse) {
	f.Scripted[prefix] = resp
}

func (f *ToolRunner) Run(ctx context.Context, argv []string, timeoutSeconds int) (string, string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, append([]string{}, argv...))
	f.mu.Unlock()

	joined := strings.Join(argv, " ")
	for prefix, resp := range f.Scripted {
		if strings.HasPrefix(joined, prefix) {
			return resp.Stdout, resp.Stderr, resp.Err
		}
	}
	return f.Default.Stdout, f.Default.Stderr, f.Default.Err
}

var _ domain.ToolRunner = (*ToolRunner)(nil)
