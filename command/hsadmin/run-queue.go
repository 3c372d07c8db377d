// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/bitmark-inc/handlestore/archive"
	"github.com/bitmark-inc/handlestore/blockstore"
	"github.com/bitmark-inc/handlestore/pruner"
	"github.com/bitmark-inc/handlestore/recovery"
)

func runDumpQueue(c *cli.Context) error {
	m := getMetadata(c)

	queue, err := m.openQueue()
	if nil != err {
		return err
	}
	defer queue.Shutdown()

	scanner, err := queue.Scan(c.Int64("after"))
	if nil != err {
		return err
	}
	defer scanner.Close()

	count := c.Int("count")
	for n := 0; count <= 0 || n < count; n += 1 {
		txn, err := scanner.Next()
		if nil != err {
			return err
		}
		if nil == txn {
			break
		}
		fmt.Fprintf(m.w, "%s\n", txn)
	}
	if m.verbose {
		fmt.Fprintf(m.e, "last: %d  first date: %s\n", queue.LastTxnId(), queue.FirstRecordedDate())
	}
	return nil
}

func runExport(c *cli.Context) error {
	m := getMetadata(c)

	fileName := c.String("output")
	if "" == fileName {
		return fmt.Errorf("--output is required")
	}

	queue, err := m.openQueue()
	if nil != err {
		return err
	}
	defer queue.Shutdown()

	scanner, err := queue.Scan(c.Int64("after"))
	if nil != err {
		return err
	}
	defer scanner.Close()

	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if nil != err {
		return err
	}

	n, err := archive.Export(context.Background(), f, scanner)
	if nil != err {
		f.Close()
		os.Remove(fileName)
		return err
	}
	if err := f.Close(); nil != err {
		return err
	}

	fmt.Fprintf(m.w, "exported: %d\n", n)
	return nil
}

func runImport(c *cli.Context) error {
	m := getMetadata(c)

	fileName := c.String("input")
	if "" == fileName {
		return fmt.Errorf("--input is required")
	}

	f, err := os.Open(fileName)
	if nil != err {
		return err
	}
	defer f.Close()

	queue, err := m.openQueue()
	if nil != err {
		return err
	}
	defer queue.Shutdown()

	n, err := archive.Import(context.Background(), f, queue)
	fmt.Fprintf(m.w, "imported: %d\n", n)
	return err
}

func runReplay(c *cli.Context) error {
	m := getMetadata(c)

	targetFile := c.String("target")
	if "" == targetFile {
		return fmt.Errorf("--target is required")
	}

	source, err := m.openStore()
	if nil != err {
		return err
	}
	defer source.Close()

	queue, err := m.openQueue()
	if nil != err {
		return err
	}
	defer queue.Shutdown()

	handles, err := blockstore.Open(targetFile, blockstore.Options{BucketCount: source.Stats().Buckets})
	if nil != err {
		return err
	}
	defer handles.Close()

	target := recovery.Target{
		Handles: handles,
	}
	if prefixesFile := c.String("target-prefixes"); "" != prefixesFile {
		prefixes, err := blockstore.Open(prefixesFile, blockstore.Options{})
		if nil != err {
			return err
		}
		defer prefixes.Close()
		target.Prefixes = prefixes
	}

	scanner, err := queue.Scan(c.Int64("after"))
	if nil != err {
		return err
	}
	defer scanner.Close()

	result, err := recovery.Replay(context.Background(), scanner, target, source)
	if nil != err {
		return err
	}
	return printJson(m.w, result)
}

func runPrune(c *cli.Context) error {
	m := getMetadata(c)

	days := c.Int("days")
	if days <= 0 {
		return fmt.Errorf("--days must be positive")
	}

	queue, err := m.openQueue()
	if nil != err {
		return err
	}
	defer queue.Shutdown()

	p, err := pruner.New(days, pruner.DefaultInterval)
	if nil != err {
		return err
	}
	p.Register(m.queueDir, queue)

	n, err := p.PruneNow(context.Background())
	fmt.Fprintf(m.w, "pruned: %d\n", n)
	return err
}

func runVersion(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "%s\n", version)
	return nil
}
