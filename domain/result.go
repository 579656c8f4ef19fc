package domain

// Result accumulates the cross-cutting bookkeeping the engine must hand
// back to the containing installer once the action loop completes:
// the device-id -> path map, the fstab/crypttab accumulators, and the
// set of disks flagged grub_device:true (SPEC_FULL.md §C.1).
type Result struct {
	DeviceMap   map[string]string // entry id -> absolute device path
	Fstab       *FstabAccumulator
	Crypttab    *CrypttabAccumulator
	GrubDevices []string // device paths with grub_device: true
}

func NewResult() *Result {
	return &Result{
		DeviceMap: make(map[string]string),
		Fstab:     NewFstabAccumulator(),
		Crypttab:  NewCrypttabAccumulator(),
	}
}
