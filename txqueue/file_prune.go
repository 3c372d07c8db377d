// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"context"
	"os"
	"time"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

// PruneBefore - remove transactions dated before cutoff
//
// works one segment per batch from the oldest: an expired segment is
// deleted, the segment holding the cutoff is rewritten, and the scan
// stops there.  The most recent transaction is never removed
func (q *FileQueue) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if q.options.ReadOnly {
		return 0, fault.ErrQueueReadOnly
	}

	pacer := q.options.pacer()
	deleted := 0
	for {
		if err := pacer.Wait(ctx); nil != err {
			return deleted, err
		}

		n, done, err := q.pruneOldestSegment(cutoff)
		deleted += n
		if nil != err {
			q.log.Errorf("%s: prune error: %s", q.directory, err)
			return deleted, err
		}
		if done {
			break
		}
	}

	if deleted > 0 {
		q.log.Infof("%s: pruned: %d before: %s", q.directory, deleted, cutoff.UTC().Format(time.RFC3339))
	}
	return deleted, nil
}

// pruneOldestSegment - one batch, done is true when nothing more can go
func (q *FileQueue) pruneOldestSegment(cutoff time.Time) (int, bool, error) {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return 0, true, fault.ErrQueueShutdown
	}
	if 0 == len(q.segments) {
		return 0, true, nil
	}

	oldest := q.segments[0]
	newest := 1 == len(q.segments)

	txns, err := q.readSegment(oldest)
	if nil != err {
		return 0, true, err
	}

	kept := make([]*transactionrecord.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.Date.Before(cutoff) && txn.TxnId != q.last {
			continue
		}
		kept = append(kept, txn)
	}
	expired := len(txns) - len(kept)

	if 0 == len(kept) && !newest {
		if err := os.Remove(q.segmentPath(oldest)); nil != err && !os.IsNotExist(err) {
			return 0, true, fault.NewIOError("remove segment", err)
		}
		q.segments = q.segments[1:]
		if err := writeIndex(q.directory, q.segments); nil != err {
			return expired, true, err
		}
		return expired, false, q.loadFirstDate()
	}

	if 0 == expired {
		return 0, true, nil
	}

	data := make([]byte, 0, 64*len(kept))
	for _, txn := range kept {
		data = append(data, txn.FormatLine()...)
	}
	if err := replaceFile(q.segmentPath(oldest), data); nil != err {
		return 0, true, err
	}
	if newest && nil != q.current {
		if err := q.openCurrent(oldest); nil != err {
			return expired, true, err
		}
	}

	q.segments[0].first = kept[0].TxnId
	if err := writeIndex(q.directory, q.segments); nil != err {
		return expired, true, err
	}
	q.firstDate = kept[0].Date
	return expired, true, nil
}
