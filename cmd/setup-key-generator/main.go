package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/base-org/setup-key-generator/circuits"
	"github.com/base-org/setup-key-generator/keygen"
	"github.com/base-org/setup-key-generator/keygen/storage"
)

const Version = "v0.1.0"

func main() {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.LevelInfo, true)))

	app := cli.NewApp()
	app.Name = "setup-key-generator"
	app.Version = Version
	app.Description = "Generates and publishes ZK setup keys for every circuit in the catalog"
	app.Flags = Flags
	app.Action = Generate
	app.Commands = []*cli.Command{
		{
			Name:   "generate",
			Usage:  "Generate setup keys (default command)",
			Flags:  Flags,
			Action: Generate,
		},
		{
			Name:   "check",
			Usage:  "Deep-verify published artifacts without regenerating",
			Flags:  Flags,
			Action: Check,
		},
		{
			Name:   "list",
			Usage:  "Print the circuit catalog",
			Action: List,
		},
	}

	// SIGINT/SIGTERM stop dispatching new circuits; in-flight syntheses
	// finish or abandon cleanly and the summary still prints.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "error", err)
	}
}

func Generate(cliCtx *cli.Context) error {
	log.Info("Starting setup-key-generator", "version", Version)

	entries, err := circuits.Subset(cliCtx.StringSlice(CircuitsFlag.Name))
	if err != nil {
		return err
	}
	devices, err := keygen.ParseDevices(cliCtx.String(DevicesFlag.Name))
	if err != nil {
		return err
	}
	store, err := newArtifactStore(cliCtx)
	if err != nil {
		return err
	}

	orch := keygen.NewOrchestrator(entries, keygen.GnarkSynthesizer{}, store, keygen.NewDevicePool(devices), keygen.Options{
		Force:        cliCtx.Bool(ForceFlag.Name),
		MaxAttempts:  cliCtx.Int(MaxAttemptsFlag.Name),
		RetryBackoff: cliCtx.Duration(RetryBackoffFlag.Name),
	})

	summary := orch.Run(cliCtx.Context)
	for _, out := range summary.Outcomes {
		if out.Status == keygen.Failed {
			log.Error("Circuit outcome", "circuit", out.Circuit, "status", out.Status, "error", out.Err)
		} else {
			log.Info("Circuit outcome", "circuit", out.Circuit, "status", out.Status)
		}
	}

	if failed := summary.Failed(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, out := range failed {
			names[i] = out.Circuit.String()
		}
		return fmt.Errorf("%d of %d circuits failed: %s", len(failed), len(summary.Outcomes), strings.Join(names, ", "))
	}
	log.Info("All setup keys present and valid", "circuits", len(summary.Outcomes))
	return nil
}

func Check(cliCtx *cli.Context) error {
	entries, err := circuits.Subset(cliCtx.StringSlice(CircuitsFlag.Name))
	if err != nil {
		return err
	}
	store, err := newArtifactStore(cliCtx)
	if err != nil {
		return err
	}

	var failed []string
	for _, meta := range entries {
		if _, _, err := keygen.Load(store, meta); err != nil {
			log.Error("Artifact check failed", "circuit", meta.Type, "error", err)
			failed = append(failed, meta.Type.String())
			continue
		}
		log.Info("Artifact verified", "circuit", meta.Type)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d artifacts failed verification: %s", len(failed), len(entries), strings.Join(failed, ", "))
	}
	return nil
}

func List(cliCtx *cli.Context) error {
	for _, meta := range circuits.Catalog() {
		log.Info("Catalog entry", "circuit", meta.Type, "curve", meta.Curve, "backend", meta.Backend)
	}
	return nil
}

func newArtifactStore(cliCtx *cli.Context) (*storage.ArtifactStore, error) {
	if bucket := cliCtx.String(S3BucketFlag.Name); bucket != "" {
		log.Info("Using S3 storage", "bucket", bucket)
		s, err := storage.NewS3Storage(cliCtx.Context, bucket, cliCtx.String(S3RegionFlag.Name))
		if err != nil {
			return nil, err
		}
		return storage.NewArtifactStore(s), nil
	}
	path, err := filepath.Abs(cliCtx.String(OutputFlag.Name))
	if err != nil {
		return nil, err
	}
	log.Info("Using local storage", "path", path)
	s, err := storage.NewFileStorage(path)
	if err != nil {
		return nil, err
	}
	return storage.NewArtifactStore(s), nil
}
