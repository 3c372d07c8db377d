// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/background"
	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/pruner"
	"github.com/bitmark-inc/handlestore/txqueue"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "quiet", HasArg: getoptions.NO_ARGUMENT, Short: 'q'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "config-file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'c'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}

	if len(options["help"]) > 0 {
		exitwithstatus.Message("usage: %s [--help] [--verbose] [--quiet] --config-file=FILE", program)
	}

	if len(arguments) > 0 {
		exitwithstatus.Message("%s: unexpected arguments: %q", program, arguments)
	}

	if 1 != len(options["config-file"]) {
		exitwithstatus.Message("%s: only one config-file option is required, %d were detected", program, len(options["config-file"]))
	}

	// read options and parse the configuration file
	configurationFile := options["config-file"][0]
	theConfiguration, err := getConfiguration(configurationFile)
	if nil != err {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	verbose := len(options["verbose"]) > 0
	quiet := len(options["quiet"]) > 0

	// start logging
	if verbose {
		theConfiguration.Logging.Console = true
	}
	if err = logger.Initialise(theConfiguration.Logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	if err = fault.Initialise(); nil != err {
		exitwithstatus.Message("%s: critical log setup failed with error: %s", program, err)
	}
	defer fault.Finalise()

	// create a logger channel for the main program
	log := logger.New("main")
	defer log.Info("finished")
	log.Info("starting…")
	log.Infof("version: %s", version)
	log.Debugf("configuration: %#v", theConfiguration)

	// ------------------
	// start of real main
	// ------------------

	// optional PID file
	// use if not running under a supervisor program like daemon(8)
	if "" != theConfiguration.PidFile {
		lockFile, err := os.OpenFile(theConfiguration.PidFile, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
		if err != nil {
			if os.IsExist(err) {
				exitwithstatus.Message("%s: another instance is already running", program)
			}
			exitwithstatus.Message("%s: PID file: %q creation failed, error: %s", program, theConfiguration.PidFile, err)
		}
		fmt.Fprintf(lockFile, "%d\n", os.Getpid())
		lockFile.Close()
		defer os.Remove(theConfiguration.PidFile)
	}

	// the daemon does not write to the stores, opening them read-write
	// reclaims blocks left by an interrupted write
	if _, err := verifyStores(log, theConfiguration); nil != err {
		exitwithstatus.Message("%s: store verification failed with error: %s", program, err)
	}

	// queues
	q := theConfiguration.Queue
	log.Infof("open queue: %s  backend: %s", q.Directory, q.Backend)
	queue, err := txqueue.Open(q.Backend, q.Directory, q.OldDirectory, theConfiguration.queueOptions())
	if nil != err {
		if fault.IsErrLock(err) {
			fault.Criticalf("queue: %s is locked by another process", q.Directory)
		}
		log.Criticalf("open queue: %s  error: %s", q.Directory, err)
		exitwithstatus.Message("%s: open queue: %q  error: %s", program, q.Directory, err)
	}
	defer queue.Shutdown()
	log.Infof("queue: last: %d  first date: %s", queue.LastTxnId(), queue.FirstRecordedDate())

	thePruner, err := pruner.New(q.RetentionDays, theConfiguration.pruneInterval())
	if nil != err {
		exitwithstatus.Message("%s: pruner setup failed with error: %s", program, err)
	}
	thePruner.Register("local", queue)

	for _, name := range theConfiguration.replicatedNames() {
		directory := theConfiguration.Replicated[name]
		log.Infof("open replicated queue: %s  directory: %s", name, directory)
		r, err := txqueue.NewLevelQueue(directory, theConfiguration.queueOptions())
		if nil != err {
			log.Criticalf("open replicated queue: %s  error: %s", name, err)
			exitwithstatus.Message("%s: open replicated queue: %q  error: %s", program, name, err)
		}
		defer r.Shutdown()
		thePruner.Register(name, r)
	}

	// read only stores are never pruned
	processes := background.Processes{}
	if !theConfiguration.Database.ReadOnly {
		processes = append(processes, thePruner)
	}

	watcher, err := newConfigWatcher(configurationFile, defaultSettleTime, reloadConfiguration(configurationFile, thePruner))
	if nil != err {
		log.Errorf("configuration watcher error: %s", err)
	} else {
		processes = append(processes, watcher)
	}

	running := background.Start(processes, nil)
	defer running.Stop()

	// an initial prune so a restart does not wait a whole interval
	if !theConfiguration.Database.ReadOnly {
		thePruner.Trigger()
	}

	// wait for CTRL-C before shutting down to allow manual testing
	if !quiet {
		fmt.Printf("\n\nWaiting for CTRL-C (SIGINT) or 'kill <pid>' (SIGTERM)…")
	}

	// turn Signals into channel messages
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Infof("received signal: %v", sig)
	if !quiet {
		fmt.Printf("\nreceived signal: %v\n", sig)
		fmt.Printf("\nshutting down...\n")
	}

	// pruning in progress stops at its next batch
	running.Stop()

	log.Infof("queue: last: %d", queue.LastTxnId())
}
