// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"time"

	"github.com/urfave/cli"
)

// Global flags
var (
	// ConfigFlag toml configuration file
	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	// LogFlag cli service settings
	LogFlag = cli.StringFlag{
		Name:  "log",
		Usage: "Global log level. Supports levels trace, debug, info, warn, error and critical",
	}
	// BasePathFlag data directory
	BasePathFlag = cli.StringFlag{
		Name:  "basepath",
		Usage: "Data directory, the artifacts cache defaults to a directory within it",
	}
	// CachePathFlag artifacts cache directory
	CachePathFlag = cli.StringFlag{
		Name:  "cache-path",
		Usage: "Directory storing the prepared artifacts",
	}
	// ExecuteWorkersFlag maximum number of execute workers
	ExecuteWorkersFlag = cli.IntFlag{
		Name:  "execute-workers",
		Usage: "Maximum number of execute workers",
	}
	// MetricsFlag enables the prometheus metrics server
	MetricsFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "Serve prometheus metrics",
	}
	// MetricsAddressFlag prometheus metrics server address
	MetricsAddressFlag = cli.StringFlag{
		Name:  "metrics-address",
		Usage: "Listening address of the prometheus metrics server",
	}
	// PprofAddressFlag enables the pprof server on the given address
	PprofAddressFlag = cli.StringFlag{
		Name:  "pprof-address",
		Usage: "Serve pprof profiles on the given address",
	}
)

// Execute command flags
var (
	// ParamsFlag encoded validation parameters
	ParamsFlag = cli.StringFlag{
		Name:  "params",
		Usage: "0x prefixed hex SCALE encoded validation parameters",
		Value: "0x",
	}
	// TimeoutFlag execution timeout
	TimeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Usage: "Execution timeout",
		Value: 2 * time.Second,
	}
	// CriticalFlag preparation priority
	CriticalFlag = cli.BoolFlag{
		Name:  "critical",
		Usage: "Prepare the code with the critical priority",
	}
)

// GlobalFlags are flags accepted by every command
var GlobalFlags = []cli.Flag{
	ConfigFlag,
	LogFlag,
	BasePathFlag,
	CachePathFlag,
	ExecuteWorkersFlag,
	MetricsFlag,
	MetricsAddressFlag,
	PprofAddressFlag,
}

// ExecuteFlags are the flags of the execute command
var ExecuteFlags = []cli.Flag{
	ParamsFlag,
	TimeoutFlag,
	CriticalFlag,
}
