// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"
	"os"

	"github.com/ChainSafe/gossamer-pvf/internal/log"
	"github.com/urfave/cli"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "cmd"))

func main() {
	app := newApp()
	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "gossamer-pvf"
	app.Usage = "Parachain validation function host"
	app.Version = "0.1.0"
	app.Flags = GlobalFlags
	app.Commands = []cli.Command{
		prepareWorkerCommand,
		executeWorkerCommand,
		precheckCommand,
		executeCommand,
		exportConfigCommand,
	}
	return app
}
