// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/handlestore/recorder"
)

type getReply struct {
	Key   string `json:"key"`
	Found bool   `json:"found"`
	Value string `json:"value,omitempty"`
}

func runGet(c *cli.Context) error {
	m := getMetadata(c)

	key, err := checkArgs(c, 1)
	if nil != err {
		return err
	}

	store, err := m.openStore()
	if nil != err {
		return err
	}
	defer store.Close()

	value, found, err := store.Get([]byte(key[0]))
	if nil != err {
		return err
	}

	return printJson(m.w, getReply{
		Key:   key[0],
		Found: found,
		Value: string(value),
	})
}

func runSet(c *cli.Context) error {
	args, err := checkArgs(c, 2)
	if nil != err {
		return err
	}

	return withRecorder(c, func(r *recorder.Recorder) error {
		if c.Bool("create") {
			return r.Create([]byte(args[0]), []byte(args[1]))
		}
		return r.Set([]byte(args[0]), []byte(args[1]))
	})
}

func runDelete(c *cli.Context) error {
	args, err := checkArgs(c, 1)
	if nil != err {
		return err
	}

	return withRecorder(c, func(r *recorder.Recorder) error {
		return r.Delete([]byte(args[0]))
	})
}

func runHome(c *cli.Context) error {
	args, err := checkArgs(c, 1)
	if nil != err {
		return err
	}

	return withRecorder(c, func(r *recorder.Recorder) error {
		return r.HomePrefix([]byte(args[0]))
	})
}

func runUnhome(c *cli.Context) error {
	args, err := checkArgs(c, 1)
	if nil != err {
		return err
	}

	return withRecorder(c, func(r *recorder.Recorder) error {
		return r.UnhomePrefix([]byte(args[0]))
	})
}

func runDumpStore(c *cli.Context) error {
	m := getMetadata(c)

	store, err := m.openStore()
	if nil != err {
		return err
	}
	defer store.Close()

	n := 0
	err = store.Scan(func(key []byte, value []byte) error {
		n += 1
		_, err := fmt.Fprintf(m.w, "%q  %q\n", key, value)
		return err
	})
	if nil != err {
		return err
	}
	if m.verbose {
		fmt.Fprintf(m.e, "records: %d\n", n)
	}
	return nil
}

type checkReply struct {
	OK         bool     `json:"ok"`
	Buckets    uint32   `json:"buckets"`
	Records    int      `json:"records"`
	LiveBlocks int64    `json:"live_blocks"`
	FreeBlocks int64    `json:"free_blocks"`
	Total      int64    `json:"total_blocks"`
	Problems   []string `json:"problems,omitempty"`
}

func runCheck(c *cli.Context) error {
	m := getMetadata(c)

	store, err := m.openStore()
	if nil != err {
		return err
	}
	defer store.Close()

	report, err := store.Check()
	if nil != err {
		return err
	}

	reply := checkReply{
		OK:         report.OK(),
		Buckets:    report.Buckets,
		Records:    report.Records,
		LiveBlocks: report.LiveBlocks,
		FreeBlocks: report.FreeBlocks,
		Total:      report.TotalBlocks,
		Problems:   report.Problems,
	}
	if err := printJson(m.w, reply); nil != err {
		return err
	}
	if !reply.OK {
		return fmt.Errorf("store: %s has %d problems", m.storeFile, len(report.Problems))
	}
	return nil
}

// withRecorder - open store, prefixes and queue for one mutation
func withRecorder(c *cli.Context, fn func(*recorder.Recorder) error) error {
	m := getMetadata(c)

	store, err := m.openStore()
	if nil != err {
		return err
	}
	defer store.Close()

	prefixes, err := m.openPrefixes()
	if nil != err {
		return err
	}
	defer prefixes.Close()

	queue, err := m.openQueue()
	if nil != err {
		return err
	}
	defer queue.Shutdown()

	r, err := recorder.New(store, prefixes, queue)
	if nil != err {
		return err
	}
	if err := fn(r); nil != err {
		return err
	}
	if m.verbose {
		fmt.Fprintf(m.e, "transaction: %d\n", queue.LastTxnId())
	}
	return nil
}

func checkArgs(c *cli.Context, count int) ([]string, error) {
	args := c.Args()
	if count != len(args) {
		return nil, fmt.Errorf("%s: expected %d arguments, got %d", c.Command.Name, count, len(args))
	}
	return args, nil
}
