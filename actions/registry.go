package actions

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/canonical/curtin-storage-engine/domain"
)

// Registry dispatches an entry type to its Executor, the direct
// replacement for a type-switch sprinkled through the engine — mirroring
// the teacher's handlerDB path/type-keyed lookup but keyed on
// domain.EntryType instead of a filesystem path.
type Registry struct {
	execs map[domain.EntryType]domain.Executor
}

// NewRegistry builds one executor per entry type, sharing a single
// ToolRunner so every external invocation passes through the same
// tooldriver instance (spec.md §9 "a single tool driver").
func NewRegistry(runner domain.ToolRunner, fs afero.Fs, log *logrus.Entry) *Registry {
	r := &Registry{execs: make(map[domain.EntryType]domain.Executor)}
	for _, e := range []domain.Executor{
		NewDASDExecutor(runner),
		NewDiskExecutor(runner, log),
		NewPartitionExecutor(runner),
		NewFormatExecutor(runner),
		NewMountExecutor(runner, fs),
		NewLVMVolgroupExecutor(runner),
		NewLVMPartitionExecutor(runner),
		NewDMCryptExecutor(runner),
		NewRAIDExecutor(runner),
		NewBcacheExecutor(runner),
		NewZpoolExecutor(runner),
		NewZFSExecutor(runner),
		NewNVMeControllerExecutor(),
		NewDeviceExecutor(),
	} {
		r.execs[e.Type()] = e
	}
	return r
}

// For returns the executor registered for t, if any.
func (r *Registry) For(t domain.EntryType) (domain.Executor, bool) {
	e, ok := r.execs[t]
	return e, ok
}
