package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
)

// DeviceExecutor is a pass-through reference to an externally managed
// block device (spec.md §4.5 "device").
type DeviceExecutor struct{}

func NewDeviceExecutor() *DeviceExecutor { return &DeviceExecutor{} }

func (x *DeviceExecutor) Type() domain.EntryType { return domain.TypeDevice }

func (x *DeviceExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.DeviceEntry)
	if !ok {
		return nil, fmt.Errorf("device executor: unexpected entry type %T", req.Entry)
	}
	e.ResolvedPath = e.Path
	return &domain.ExecResult{DevPath: e.Path}, nil
}
