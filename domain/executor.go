package domain

import "context"

// ExecRequest is the input handed to an executor for one action-graph
// node, mirroring the teacher's HandlerRequest shape.
type ExecRequest struct {
	Entry    Entry
	Graph    *Graph // lets an executor resolve a dependency's ResolvedPath
	Snapshot *Snapshot
	Fstab    *FstabAccumulator
	Crypttab *CrypttabAccumulator
	Target   string // TARGET_MOUNT_POINT
	// PartitionCursors tracks, per resolved disk path, the byte offset
	// immediately after the last partition created on that disk so far
	// this run. v1 partitions that omit an explicit offset are placed
	// there (spec.md §4.2 v1 "each partition is created immediately
	// after the previous one at the implied offset"); shared by the same
	// map reference across every action in one Run so the cursor
	// persists across the whole partition sequence for a disk.
	PartitionCursors map[string]uint64
}

// ExecResult is what an executor hands back to the planner loop.
type ExecResult struct {
	// DevPath is the absolute device path the action created or resolved
	// to (e.g. /dev/sda1, /dev/mapper/vg-lv, /dev/md0).
	DevPath string
	// Reprobe, when true, tells the engine to force a fresh probe before
	// the next action runs (spec.md §4.1, §5); true for any action that
	// mutated kernel state.
	Reprobe bool
}

// Executor is implemented by every action-type handler (spec.md §4.5),
// the direct analogue of the teacher's HandlerIface but scoped to a
// single apply step instead of a filesystem request lifecycle.
type Executor interface {
	Type() EntryType
	// Execute performs (or, for a preserved entry, skips) the side
	// effect and returns the device path the action produced.
	Execute(ctx context.Context, req *ExecRequest) (*ExecResult, error)
}

// Verifier is implemented by executors that support preserve:true
// verification (spec.md §4.6); not every Executor needs one (dasd,
// nvme_controller, device never carry preserve semantics).
type Verifier interface {
	Verify(ctx context.Context, req *ExecRequest) error
}
