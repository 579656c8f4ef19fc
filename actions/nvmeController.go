package actions

import (
	"context"
	"fmt"

	"github.com/canonical/curtin-storage-engine/domain"
)

// NVMeControllerExecutor performs no device mutation: it only records the
// transport annotation that disk entries and persistence consume
// (spec.md §4.5 "nvme_controller").
type NVMeControllerExecutor struct{}

func NewNVMeControllerExecutor() *NVMeControllerExecutor { return &NVMeControllerExecutor{} }

func (x *NVMeControllerExecutor) Type() domain.EntryType { return domain.TypeNVMeController }

func (x *NVMeControllerExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.NVMeControllerEntry)
	if !ok {
		return nil, fmt.Errorf("nvme_controller executor: unexpected entry type %T", req.Entry)
	}
	e.ResolvedPath = e.ID
	return &domain.ExecResult{DevPath: e.ID}, nil
}
