// Package actions implements one Executor (spec.md §4.5) per config entry
// type, the direct analogue of the teacher's per-resource handler set:
// each executor owns a single external-tool side effect and nothing else,
// dispatched by Registry rather than a type switch sprinkled through the
// engine.
package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
)

// devPath builds the /dev path for a kname resolved from a prior action's
// ExecResult, falling back to treating the string as already a path if it
// looks like one.
func devPath(kname string) string {
	if len(kname) > 0 && kname[0] == '/' {
		return kname
	}
	return "/dev/" + kname
}

// resolve looks up the device path a dependency entry's action already
// produced. Every executor fills in ResolvedPath on its own entry's
// Common once it runs (spec.md §4.5 "returns the path of the device it
// created/modified"); resolve follows the graph edge to read it back
// rather than guessing at a snapshot kname, since a dependency's kname
// and its config id are almost never the same string.
func resolve(req *domain.ExecRequest, id string) (string, error) {
	dep, ok := req.Graph.Lookup(id)
	if !ok {
		// id doesn't name a config entry: treat it as an already-resolved
		// path or kname from outside this document's namespace.
		return devPath(id), nil
	}
	path := dep.GetCommon().ResolvedPath
	if path == "" {
		return "", fmt.Errorf("action %q: dependency %q has not been resolved yet", req.Entry.GetID(), id)
	}
	return path, nil
}

// baseName strips a /dev/ (or /dev/mapper/, /dev/disk/by-.../) prefix
// down to the snapshot kname a verifier looks up, mirroring what the
// probe service stores devices under.
func baseName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}

func run(ctx context.Context, req *domain.ExecRequest, runner domain.ToolRunner, argv []string, timeout int) (string, string, error) {
	stdout, stderr, err := runner.Run(ctx, argv, timeout)
	if err != nil {
		return stdout, stderr, &domain.ExecutionError{
			Entry: req.Entry.GetID(),
			Type:  string(req.Entry.GetType()),
			Msg:   "tool invocation failed",
			Err:   err,
		}
	}
	return stdout, stderr, nil
}
