// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	ctoml "github.com/ChainSafe/gossamer-pvf/dot/config/toml"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/engine"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/execute"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/prepare"
	pvftypes "github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf/types"
	"github.com/ChainSafe/gossamer-pvf/internal/log"
	"github.com/ChainSafe/gossamer-pvf/lib/common"
	"github.com/urfave/cli"
)

var errMissingArgument = errors.New("missing argument")

var (
	prepareWorkerCommand = cli.Command{
		Name:      prepare.WorkerArg,
		Usage:     "Run a prepare worker connecting to the host socket",
		ArgsUsage: "SOCKET",
		Action:    prepareWorkerAction,
	}
	executeWorkerCommand = cli.Command{
		Name:      execute.WorkerArg,
		Usage:     "Run an execute worker connecting to the host socket",
		ArgsUsage: "SOCKET",
		Action:    executeWorkerAction,
	}
	precheckCommand = cli.Command{
		Name:      "precheck",
		Usage:     "Prepare the validation code and report if it is valid",
		ArgsUsage: "WASM_FILE",
		Action:    precheckAction,
	}
	executeCommand = cli.Command{
		Name:      "execute",
		Usage:     "Validate a candidate with the validation code",
		ArgsUsage: "WASM_FILE",
		Flags:     ExecuteFlags,
		Action:    executeAction,
	}
	exportConfigCommand = cli.Command{
		Name:      "export-config",
		Usage:     "Write the default toml configuration to a file",
		ArgsUsage: "FILE",
		Action:    exportConfigAction,
	}
)

func prepareWorkerAction(ctx *cli.Context) error {
	socketPath, err := setupWorker(ctx)
	if err != nil {
		return err
	}
	prepare.WorkerEntrypoint(socketPath, engine.New())
	return nil
}

func executeWorkerAction(ctx *cli.Context) error {
	socketPath, err := setupWorker(ctx)
	if err != nil {
		return err
	}
	execute.WorkerEntrypoint(socketPath, engine.New())
	return nil
}

// setupWorker configures the logger of a worker process and returns
// the socket path. Workers log to stderr.
func setupWorker(ctx *cli.Context) (socketPath string, err error) {
	socketPath = ctx.Args().First()
	if socketPath == "" {
		return "", fmt.Errorf("%w: socket path", errMissingArgument)
	}

	level := log.Info
	if levelString := ctx.GlobalString(LogFlag.Name); levelString != "" {
		level, err = log.ParseLevel(levelString)
		if err != nil {
			return "", err
		}
	}
	setupLogger(level, os.Stderr)

	return socketPath, nil
}

func precheckAction(ctx *cli.Context) error {
	return withHost(ctx, func(signalCtx context.Context, h *runningHost, code []byte) error {
		pvf := pvftypes.NewPvf(code)
		resultTx, resultRx := pvftypes.NewOneshot[error]()
		err := h.handle.PrecheckPvf(signalCtx, pvf, resultTx)
		if err != nil {
			return err
		}

		prepareErr, err := resultRx.Recv(signalCtx)
		if err != nil {
			return fmt.Errorf("receiving precheck result: %w", err)
		}
		if prepareErr != nil {
			return fmt.Errorf("precheck failed for %s: %w", pvf, prepareErr)
		}

		fmt.Fprintf(ctx.App.Writer, "precheck succeeded for %s\n", pvf)
		return nil
	})
}

func executeAction(ctx *cli.Context) error {
	params, err := common.HexToBytes(ctx.String(ParamsFlag.Name))
	if err != nil {
		return fmt.Errorf("parsing params: %w", err)
	}

	priority := pvftypes.Normal
	if ctx.Bool(CriticalFlag.Name) {
		priority = pvftypes.Critical
	}

	return withHost(ctx, func(signalCtx context.Context, h *runningHost, code []byte) error {
		pvf := pvftypes.NewPvf(code)
		resultTx, resultRx := pvftypes.NewOneshot[pvftypes.ExecuteResult]()
		err := h.handle.ExecutePvf(signalCtx, pvf, ctx.Duration(TimeoutFlag.Name),
			params, priority, resultTx)
		if err != nil {
			return err
		}

		outcome, err := resultRx.Recv(signalCtx)
		if err != nil {
			return fmt.Errorf("receiving execution result: %w", err)
		}
		if outcome.Err != nil {
			return fmt.Errorf("execution failed for %s: %w", pvf, outcome.Err)
		}

		return printValidationResult(ctx.App.Writer, outcome.Result)
	})
}

func printValidationResult(w io.Writer, result pvftypes.ValidationResult) error {
	_, err := fmt.Fprintf(w,
		"head data: %s\nnew validation code: %t\nupward messages: %d\n"+
			"horizontal messages: %d\nprocessed downward messages: %d\nhrmp watermark: %d\n",
		common.BytesToHex(result.HeadData), result.NewValidationCode != nil,
		len(result.UpwardMessages), len(result.HorizontalMessages),
		result.ProcessedDownwardMessages, result.HrmpWatermark)
	return err
}

// withHost loads the code file given as argument, runs a validation
// host for the duration of the function and stops it afterwards.
func withHost(ctx *cli.Context,
	f func(signalCtx context.Context, h *runningHost, code []byte) error) (err error) {
	codePath := ctx.Args().First()
	if codePath == "" {
		return fmt.Errorf("%w: wasm file", errMissingArgument)
	}

	code, err := os.ReadFile(codePath)
	if err != nil {
		return fmt.Errorf("reading validation code: %w", err)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable: %w", err)
	}

	s, err := loadSettings(ctx, executable)
	if err != nil {
		return err
	}
	setupLogger(s.logLevel, os.Stdout)
	logger.Debugf("validation host configuration: %s", s.pvf)

	h, err := startHost(s)
	if err != nil {
		return err
	}
	defer func() {
		stopErr := h.stop()
		if err == nil {
			err = stopErr
		}
	}()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return f(signalCtx, h, code)
}

func exportConfigAction(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return fmt.Errorf("%w: configuration file", errMissingArgument)
	}

	basePath := ctx.GlobalString(BasePathFlag.Name)
	if basePath == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("finding user cache directory: %w", err)
		}
		basePath = filepath.Join(cacheDir, defaultBasePathName)
	}

	err := ctoml.ExportFile(defaultTOMLConfig(basePath), path)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.App.Writer, "configuration written to %s\n", path)
	return nil
}
