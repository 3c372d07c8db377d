// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/bitmark-inc/logger"
	"github.com/urfave/cli"

	"github.com/bitmark-inc/handlestore/blockstore"
	"github.com/bitmark-inc/handlestore/txqueue"
)

type metadata struct {
	storeFile    string
	prefixesFile string
	queueDir     string
	oldQueueDir  string
	backend      string
	readOnly     bool
	verbose      bool
	e            io.Writer
	w            io.Writer
}

var logging struct {
	sync.Once
	err error
}

// initialiseLogging - the library packages need a logger; only the first
// call has any effect
func initialiseLogging(directory string) error {
	logging.Do(func() {
		logging.err = logger.Initialise(logger.Configuration{
			Directory: directory,
			File:      "hsadmin.log",
			Size:      1048576,
			Count:     2,
			Console:   false,
			Levels: map[string]string{
				logger.DefaultTag: "warn",
			},
		})
	})
	return logging.err
}

func getMetadata(c *cli.Context) *metadata {
	return c.App.Metadata["config"].(*metadata)
}

func (m *metadata) openStore() (*blockstore.Store, error) {
	return m.open(m.storeFile, "store")
}

func (m *metadata) openPrefixes() (*blockstore.Store, error) {
	return m.open(m.prefixesFile, "prefixes")
}

func (m *metadata) open(fileName string, flag string) (*blockstore.Store, error) {
	if "" == fileName {
		return nil, fmt.Errorf("--%s is required", flag)
	}
	if m.verbose {
		fmt.Fprintf(m.e, "open store: %s\n", fileName)
	}
	return blockstore.Open(fileName, blockstore.Options{ReadOnly: m.readOnly})
}

func (m *metadata) openQueue() (txqueue.Queue, error) {
	if "" == m.queueDir {
		return nil, fmt.Errorf("--queue is required")
	}
	if m.verbose {
		fmt.Fprintf(m.e, "open queue: %s  backend: %s\n", m.queueDir, m.backend)
	}
	return txqueue.Open(m.backend, m.queueDir, m.oldQueueDir, txqueue.Options{ReadOnly: m.readOnly})
}

func printJson(handle io.Writer, message interface{}) error {

	b, err := json.MarshalIndent(message, "", "  ")
	if nil != err {
		return err
	}

	fmt.Fprintf(handle, "%s\n", b)
	return nil
}
