// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/handlestore/txqueue"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); nil != err {
		exitwithstatus.Message("%s: error: %s", app.Name, err)
	}
}

func newApp(w io.Writer, e io.Writer) *cli.App {

	app := cli.NewApp()
	app.Name = "hsadmin"
	app.Usage = "handle store administration"
	app.Version = version
	app.HideVersion = true

	app.Writer = w
	app.ErrWriter = e

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: " verbose result",
		},
		cli.StringFlag{
			Name:  "store, s",
			Value: "",
			Usage: " handle store `FILE`",
		},
		cli.StringFlag{
			Name:  "prefixes, p",
			Value: "",
			Usage: " homed prefix store `FILE`",
		},
		cli.StringFlag{
			Name:  "queue, q",
			Value: "",
			Usage: " transaction queue `DIRECTORY`",
		},
		cli.StringFlag{
			Name:  "backend, b",
			Value: txqueue.BackendFile,
			Usage: " queue `BACKEND` [file|level|concatenated]",
		},
		cli.StringFlag{
			Name:  "old-queue, o",
			Value: "",
			Usage: " old file queue `DIRECTORY` for the concatenated backend",
		},
		cli.BoolFlag{
			Name:  "read-only, r",
			Usage: " open stores and queues read only",
		},
		cli.StringFlag{
			Name:   "log-directory, l",
			Value:  os.TempDir(),
			Usage:  " write hsadmin.log to `DIRECTORY`",
			EnvVar: "HSADMIN_LOG_DIRECTORY",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "get",
			Usage:     "show the value of a handle",
			ArgsUsage: "KEY",
			Action:    runGet,
		},
		{
			Name:      "set",
			Usage:     "set the value of a handle and record the transaction",
			ArgsUsage: "KEY VALUE",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "create, c",
					Usage: " fail if the handle already exists",
				},
			},
			Action: runSet,
		},
		{
			Name:      "delete",
			Usage:     "delete a handle and record the transaction",
			ArgsUsage: "KEY",
			Action:    runDelete,
		},
		{
			Name:      "home",
			Usage:     "mark a prefix as homed here",
			ArgsUsage: "PREFIX",
			Action:    runHome,
		},
		{
			Name:      "unhome",
			Usage:     "remove the homed mark from a prefix",
			ArgsUsage: "PREFIX",
			Action:    runUnhome,
		},
		{
			Name:   "dump-store",
			Usage:  "list every handle and value",
			Action: runDumpStore,
		},
		{
			Name:   "check",
			Usage:  "verify the block structure of the store",
			Action: runCheck,
		},
		{
			Name:  "dump-queue",
			Usage: "list transactions",
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:  "after, a",
					Value: 0,
					Usage: " start after transaction `ID`",
				},
				cli.IntFlag{
					Name:  "count, c",
					Value: 0,
					Usage: " maximum transactions to list `COUNT` (0 = all)",
				},
			},
			Action: runDumpQueue,
		},
		{
			Name:  "export",
			Usage: "write transactions to a compressed archive",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "output, f",
					Value: "",
					Usage: "*archive `FILE`",
				},
				cli.Int64Flag{
					Name:  "after, a",
					Value: 0,
					Usage: " start after transaction `ID`",
				},
			},
			Action: runExport,
		},
		{
			Name:  "import",
			Usage: "append transactions from a compressed archive",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "input, f",
					Value: "",
					Usage: "*archive `FILE`",
				},
			},
			Action: runImport,
		},
		{
			Name:  "replay",
			Usage: "rebuild a store from the queue, values read from the store",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "target, t",
					Value: "",
					Usage: "*handle store to rebuild `FILE`",
				},
				cli.StringFlag{
					Name:  "target-prefixes",
					Value: "",
					Usage: " prefix store to rebuild `FILE`",
				},
				cli.Int64Flag{
					Name:  "after, a",
					Value: 0,
					Usage: " start after transaction `ID`",
				},
			},
			Action: runReplay,
		},
		{
			Name:  "prune",
			Usage: "delete transactions older than the retention",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "days, d",
					Value: 0,
					Usage: "*retention `DAYS`",
				},
			},
			Action: runPrune,
		},
		{
			Name:   "version",
			Usage:  "display hsadmin version",
			Action: runVersion,
		},
	}

	app.Before = func(c *cli.Context) error {

		command := c.Args().Get(0)
		if "version" == command || "help" == command || "" == command {
			return nil
		}

		if err := initialiseLogging(c.GlobalString("log-directory")); nil != err {
			return err
		}

		c.App.Metadata["config"] = &metadata{
			storeFile:    c.GlobalString("store"),
			prefixesFile: c.GlobalString("prefixes"),
			queueDir:     c.GlobalString("queue"),
			oldQueueDir:  c.GlobalString("old-queue"),
			backend:      c.GlobalString("backend"),
			readOnly:     c.GlobalBool("read-only"),
			verbose:      c.GlobalBool("verbose"),
			e:            c.App.ErrWriter,
			w:            c.App.Writer,
		}
		return nil
	}

	return app
}
