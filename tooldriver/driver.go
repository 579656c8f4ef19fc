// Package tooldriver centralizes every external-process invocation the
// engine makes (parted, sgdisk, mkfs.*, mdadm, lvm, cryptsetup,
// make-bcache, zpool, wipefs, dd, udevadm) behind one domain.ToolRunner
// implementation, so executors never call os/exec directly (spec.md §9
// "External-process orchestration").
package tooldriver

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/canonical/curtin-storage-engine/domain"
)

// Driver is the real domain.ToolRunner used outside of tests.
type Driver struct {
	log *logrus.Entry
}

func New(log *logrus.Entry) *Driver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Driver{log: log}
}

// Run invokes argv under a per-call timeout (seconds; 0 means no
// additional timeout beyond ctx's own deadline) and returns captured
// stdout/stderr. A non-zero exit or a timeout produces an error wrapping
// *domain.ToolError, carrying everything spec.md §7 requires in a
// diagnostic.
func (d *Driver) Run(ctx context.Context, argv []string, timeoutSeconds int) (string, string, error) {
	if len(argv) == 0 {
		return "", "", &domain.ToolError{Err: errEmptyArgv}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if timeoutSeconds > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		defer cancel()
	}

	d.log.WithField("argv", argv).Debug("invoking external tool")

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return stdout.String(), stderr.String(), &domain.ToolError{
			Argv: argv, ExitCode: -1, Stderr: stderr.String(),
			Err: errTimeout,
		}
	}
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		d.log.WithFields(logrus.Fields{
			"argv":   argv,
			"stderr": stderr.String(),
			"exit":   exitCode,
		}).Error("external tool invocation failed")
		return stdout.String(), stderr.String(), &domain.ToolError{
			Argv: argv, ExitCode: exitCode, Stderr: stderr.String(), Err: err,
		}
	}

	return stdout.String(), stderr.String(), nil
}

var errEmptyArgv = toolErrString("empty argv")
var errTimeout = toolErrString("tool invocation timed out")

type toolErrString string

func (e toolErrString) Error() string { return string(e) }
