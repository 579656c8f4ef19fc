package actions

import (
	"context"
	"fmt"
	"strconv"

	"github.com/canonical/curtin-storage-engine/config"
	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

// gptESPFlag is the flag parted uses for the EFI System Partition type
// GUID; spec.md §4.5 "on GPT, boot sets the ESP type GUID."
const gptESPFlag = "esp"

// PartitionExecutor creates (or, under preserve, verifies) one partition
// on a resolved parent device (spec.md §4.2, §4.5 "partition").
type PartitionExecutor struct {
	Runner domain.ToolRunner
}

func NewPartitionExecutor(runner domain.ToolRunner) *PartitionExecutor {
	return &PartitionExecutor{Runner: runner}
}

func (x *PartitionExecutor) Type() domain.EntryType { return domain.TypePartition }

func (x *PartitionExecutor) Execute(ctx context.Context, req *domain.ExecRequest) (*domain.ExecResult, error) {
	e, ok := req.Entry.(*domain.PartitionEntry)
	if !ok {
		return nil, fmt.Errorf("partition executor: unexpected entry type %T", req.Entry)
	}

	diskPath, err := resolve(req, e.Device)
	if err != nil {
		return nil, err
	}

	if e.Preserve {
		if e.Resize {
			if err := x.resize(ctx, req, diskPath, e); err != nil {
				return nil, err
			}
		}
		e.ResolvedPath = partitionDevPath(diskPath, e.Number)
		return &domain.ExecResult{DevPath: e.ResolvedPath}, nil
	}

	var sizeBytes, offsetBytes uint64
	if e.Size != "" {
		if sizeBytes, err = config.ParseSize(e.Size); err != nil {
			return nil, &domain.SchemaError{Entry: e.ID, Msg: err.Error()}
		}
	}
	if e.Offset != "" {
		if offsetBytes, err = config.ParseSize(e.Offset); err != nil {
			return nil, &domain.SchemaError{Entry: e.ID, Msg: err.Error()}
		}
	} else if req.PartitionCursors != nil {
		// v1 "implied offset" (spec.md §4.2): no explicit offset means
		// this partition starts right after the previous one on the
		// same disk, not at the disk start.
		offsetBytes = req.PartitionCursors[diskPath]
	}

	// Wipe 1 MiB at the partition's intended start before creating it
	// (spec.md §4.5 "always wipe 1 MiB at the partition's start").
	wipeArgv := []string{"dd", "if=/dev/zero", "of=" + diskPath,
		"bs=1M", "count=1", "seek=" + strconv.FormatUint(offsetBytes/(1<<20), 10)}
	if _, _, err := run(ctx, req, x.Runner, wipeArgv, tooldriver.TimeoutWipeZero); err != nil {
		return nil, err
	}

	startMiB := offsetBytes / (1 << 20)
	argv := []string{"parted", "-s", "-a", "optimal", diskPath, "unit", "MiB", "mkpart", partitionTypeArg(e.Flag)}
	if sizeBytes > 0 {
		endMiB := startMiB + sizeBytes/(1<<20)
		argv = append(argv, strconv.FormatUint(startMiB, 10), strconv.FormatUint(endMiB, 10))
	} else {
		argv = append(argv, strconv.FormatUint(startMiB, 10), "100%")
	}
	if _, _, err := run(ctx, req, x.Runner, argv, tooldriver.TimeoutDefault); err != nil {
		return nil, err
	}

	if sizeBytes > 0 && req.PartitionCursors != nil {
		req.PartitionCursors[diskPath] = offsetBytes + sizeBytes
	}

	if flagArgv := x.flagArgv(diskPath, e); flagArgv != nil {
		if _, _, err := run(ctx, req, x.Runner, flagArgv, tooldriver.TimeoutDefault); err != nil {
			return nil, err
		}
	}

	if e.PartitionType != "" {
		typeArgv := []string{"sgdisk", "--typecode=" + strconv.Itoa(e.Number) + ":" + e.PartitionType, diskPath}
		if _, _, err := run(ctx, req, x.Runner, typeArgv, tooldriver.TimeoutDefault); err != nil {
			return nil, err
		}
	}

	e.ResolvedPath = partitionDevPath(diskPath, e.Number)
	return &domain.ExecResult{DevPath: e.ResolvedPath, Reprobe: true}, nil
}

// partitionTypeArg maps e.Flag to the `parted mkpart` partition-type
// argument (spec.md invariant #4: msdos tables distinguish primary,
// extended, and logical partitions). Every other flag (boot, bios_grub,
// swap, lvm, raid, home, prep, msftres) is a `parted set` flag applied
// after creation, not a partition-type argument, so it falls through to
// "primary" here.
func partitionTypeArg(flag string) string {
	switch flag {
	case "extended":
		return "extended"
	case "logical":
		return "logical"
	default:
		return "primary"
	}
}

// flagArgv builds the `parted set` invocation for e.Flag, unless
// partition_type is also set — spec.md §4.5 "partition_type ... overrides
// flag when both are present."
func (x *PartitionExecutor) flagArgv(diskPath string, e *domain.PartitionEntry) []string {
	if e.Flag == "" || e.PartitionType != "" {
		return nil
	}
	// extended/logical are mkpart partition-type arguments (see
	// partitionTypeArg), not `parted set` flags.
	if e.Flag == "extended" || e.Flag == "logical" {
		return nil
	}
	flag := e.Flag
	if e.Flag == "boot" {
		flag = gptESPFlag
	}
	return []string{"parted", "-s", diskPath, "set", strconv.Itoa(e.Number), flag, "on"}
}

func (x *PartitionExecutor) resize(ctx context.Context, req *domain.ExecRequest, diskPath string, e *domain.PartitionEntry) error {
	sizeBytes, err := config.ParseSize(e.Size)
	if err != nil {
		return &domain.SchemaError{Entry: e.ID, Msg: err.Error()}
	}
	endMiB := sizeBytes / (1 << 20)
	argv := []string{"parted", "-s", diskPath, "resizepart", strconv.Itoa(e.Number), strconv.FormatUint(endMiB, 10)}
	_, _, err = run(ctx, req, x.Runner, argv, tooldriver.TimeoutDefault)
	return err
}

func (x *PartitionExecutor) Verify(ctx context.Context, req *domain.ExecRequest) error {
	e := req.Entry.(*domain.PartitionEntry)
	diskPath, err := resolve(req, e.Device)
	if err != nil {
		return err
	}
	kname := baseName(partitionKName(diskPath, e.Number))
	dev, ok := req.Snapshot.Devices[kname]
	if !ok {
		return &domain.VerificationError{Entry: e.ID, Field: "existence", Expected: "present", Observed: "absent"}
	}
	if e.Size != "" {
		want, err := config.ParseSize(e.Size)
		if err == nil && dev.Size != 0 && dev.Size != want {
			return &domain.VerificationError{Entry: e.ID, Field: "size", Expected: e.Size, Observed: config.FormatSize(dev.Size)}
		}
	}
	if e.UUID != "" && dev.FsUUID != "" && dev.FsUUID != e.UUID {
		return &domain.VerificationError{Entry: e.ID, Field: "uuid", Expected: e.UUID, Observed: dev.FsUUID}
	}
	return nil
}

func partitionDevPath(diskPath string, number int) string {
	return partitionKName(diskPath, number)
}

// partitionKName appends the partition number to the parent device path,
// inserting the 'p' separator nvme/mmcblk/loop devices require.
func partitionKName(diskPath string, number int) string {
	sep := ""
	if n := len(diskPath); n > 0 {
		last := diskPath[n-1]
		if last >= '0' && last <= '9' {
			sep = "p"
		}
	}
	return fmt.Sprintf("%s%s%d", diskPath, sep, number)
}
