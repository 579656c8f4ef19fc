package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/canonical/curtin-storage-engine/actions"
	"github.com/canonical/curtin-storage-engine/config"
	"github.com/canonical/curtin-storage-engine/domain"
	"github.com/canonical/curtin-storage-engine/engine"
	"github.com/canonical/curtin-storage-engine/holders"
	"github.com/canonical/curtin-storage-engine/probe"
	"github.com/canonical/curtin-storage-engine/tooldriver"
)

const usage = `block-meta storage engine

block-meta transforms a declarative storage configuration into the exact
block-device topology it describes on the running host: partitions, RAID,
LVM, dm-crypt, bcache, multipath, ZFS pools, filesystems, and mounts.
`

func logFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{Name: "log", Value: "", Usage: "log file path or empty string for stderr output"},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "log categories to include (debug, info, warning, error, fatal)"},
		cli.StringFlag{Name: "log-format", Value: "text", Usage: "log format; must be json or text"},
	}
}

func setupLogging(ctx *cli.Context) (*logrus.Entry, error) {
	logger := logrus.New()

	if path := ctx.GlobalString("log"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %v: %w", path, err)
		}
		logger.SetOutput(f)
	} else {
		logger.SetOutput(os.Stderr)
	}

	if ctx.GlobalString("log-format") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05", FullTimestamp: true})
	}

	switch ctx.GlobalString("log-level") {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logger.SetLevel(logrus.FatalLevel)
	default:
		return nil, fmt.Errorf("log-level option %q not recognized", ctx.GlobalString("log-level"))
	}

	return logrus.NewEntry(logger), nil
}

func mustEnv(name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", &domain.EnvironmentError{Msg: fmt.Sprintf("%s is mandatory and was not set", name)}
	}
	return v, nil
}

func customAction(c *cli.Context) error {
	log, err := setupLogging(c)
	if err != nil {
		return err
	}

	if dir := c.String("profile"); dir != "" {
		defer profile.Start(profile.ProfilePath(dir), profile.CPUProfile).Stop()
	}

	target, err := mustEnv("TARGET_MOUNT_POINT")
	if err != nil {
		return err
	}
	configPath, err := mustEnv("CONFIG")
	if err != nil {
		return err
	}

	// SIGINT/SIGTERM are fatal between actions (spec.md §5); the engine
	// checks ctx between steps and never attempts mid-action rollback.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	release, err := engine.AcquireLock(ctx, engine.DefaultLockPath, 60*time.Second)
	if err != nil {
		return &domain.EnvironmentError{Msg: err.Error()}
	}
	defer release()

	data, err := afero.ReadFile(afero.NewOsFs(), configPath)
	if err != nil {
		return &domain.SchemaError{Msg: fmt.Sprintf("reading config %q: %s", configPath, err)}
	}

	doc, graph, err := config.Load(data)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	runner := tooldriver.New(log)
	prober := probe.NewService(fs, runner, log)

	e := &engine.Engine{
		FS:       fs,
		Prober:   prober,
		Runner:   runner,
		Registry: actions.NewRegistry(runner, fs, log),
		Log:      log,
		Reporter: engine.NewReporter(os.Getenv("CURTIN_REPORT_STACK_PREFIX"), os.Stderr),
	}

	cfg := engine.Config{
		Target:        target,
		WorkingDir:    os.Getenv("WORKING_DIR"),
		ConfigPath:    configPath,
		OutputFstab:   os.Getenv("OUTPUT_FSTAB"),
		OutputNetwork: os.Getenv("OUTPUT_NETWORK_CONFIG"),
		DeviceMapPath: doc.DeviceMapPath,
	}

	_, err = e.Run(ctx, cfg, doc, graph)
	return err
}

func clearHoldersAction(c *cli.Context) error {
	log, err := setupLogging(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return &domain.SchemaError{Msg: "clear-holders requires at least one device argument"}
	}

	ctx := context.Background()
	fs := afero.NewOsFs()
	runner := tooldriver.New(log)
	prober := probe.NewService(fs, runner, log)

	targets := []string(c.Args())

	if c.Bool("shutdown-plan") {
		snap, err := prober.Probe(ctx)
		if err != nil {
			return &domain.ProbeError{Msg: err.Error()}
		}
		forest := holders.BuildForest(snap, targets)
		for _, step := range holders.Plan(forest) {
			fmt.Printf("%d\t%s\t%s\n", step.Level, step.DevType, step.KName)
		}
		return nil
	}

	return holders.Execute(ctx, prober, runner, targets, holders.DefaultRetryAttempts)
}

func assertClearAction(c *cli.Context) error {
	log, err := setupLogging(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return &domain.SchemaError{Msg: "assert-clear requires at least one device argument"}
	}

	ctx := context.Background()
	fs := afero.NewOsFs()
	runner := tooldriver.New(log)
	prober := probe.NewService(fs, runner, log)

	return holders.AssertClear(ctx, prober, []string(c.Args()))
}

func main() {
	app := cli.NewApp()
	app.Name = "block-meta"
	app.Usage = usage

	// Log flags are global, not per-command: setupLogging reads them via
	// GlobalString, which only searches the app-level flag set.
	app.Flags = logFlags()

	app.Commands = []cli.Command{
		{
			Name:  "custom",
			Usage: "run the full storage pipeline against the current host",
			Flags: []cli.Flag{cli.StringFlag{
				Name:  "profile",
				Value: "",
				Usage: "write a pprof CPU profile to this directory instead of running unprofiled",
			}},
			Action: customAction,
		},
		{
			Name:  "clear-holders",
			Usage: "tear down existing holders of the given devices",
			Flags: []cli.Flag{cli.BoolFlag{
				Name:  "shutdown-plan",
				Usage: "print the ordered teardown plan without executing",
			}},
			Action: clearHoldersAction,
		},
		{
			Name:   "assert-clear",
			Usage:  "exit 0 iff no holders remain on the given devices",
			Action: assertClearAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Errorf("%v", err)
		os.Exit(domain.ExitCodeOf(err))
	}
}
