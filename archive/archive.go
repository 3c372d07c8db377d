// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package archive - compressed bulk copy of a transaction queue
//
// the stream is zstd compressed text, one transaction line per record in
// the same format as the file queue segments
package archive

import (
	"bufio"
	"context"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
	"github.com/bitmark-inc/handlestore/txqueue"
)

// Export - write everything the scanner returns, stops when the scanner
// has nothing more
func Export(ctx context.Context, w io.Writer, scanner txqueue.Scanner) (int, error) {
	encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if nil != err {
		return 0, err
	}

	n := 0
	for {
		if err := ctx.Err(); nil != err {
			encoder.Close()
			return n, err
		}
		txn, err := scanner.Next()
		if nil != err {
			encoder.Close()
			return n, err
		}
		if nil == txn {
			break
		}
		if _, err := encoder.Write(txn.FormatLine()); nil != err {
			encoder.Close()
			return n, fault.NewIOError("export", err)
		}
		n += 1
	}

	if err := encoder.Close(); nil != err {
		return n, fault.NewIOError("export", err)
	}
	return n, nil
}

// Import - append each archived transaction to the queue
//
// the queue's ordering rules apply, so an archive can only be imported
// into a queue whose last id is below the first archived id
func Import(ctx context.Context, r io.Reader, queue txqueue.Queue) (int, error) {
	decoder, err := zstd.NewReader(r)
	if nil != err {
		return 0, fault.NewIOError("import", err)
	}
	defer decoder.Close()

	reader := bufio.NewReader(decoder)

	n := 0
	for {
		if err := ctx.Err(); nil != err {
			return n, err
		}

		line, err := reader.ReadBytes('\n')
		if io.EOF == err {
			if 0 != len(line) {
				// archive was truncated
				return n, fault.ErrInvalidTransactionRecord
			}
			return n, nil
		}
		if nil != err {
			return n, fault.NewIOError("import", err)
		}

		txn, err := transactionrecord.ParseLine(line)
		if nil != err {
			return n, err
		}
		if err := queue.Append(txn); nil != err {
			return n, err
		}
		n += 1
	}
}
