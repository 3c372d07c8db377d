// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

// records read per iterator
const levelScanBatch = 100

type levelScanner struct {
	queue   *LevelQueue
	after   int64
	pending []*transactionrecord.Transaction
	closed  bool
}

// Scan - cursor over ids > afterTxnId
//
// each refill opens a fresh iterator starting after the last id
// returned, so records appended meanwhile are picked up
func (q *LevelQueue) Scan(afterTxnId int64) (Scanner, error) {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return nil, fault.ErrQueueShutdown
	}
	if afterTxnId < 0 {
		afterTxnId = 0
	}
	return &levelScanner{
		queue: q,
		after: afterTxnId,
	}, nil
}

// Next - the next transaction, or nil if the scanner has caught up
func (s *levelScanner) Next() (*transactionrecord.Transaction, error) {
	if s.closed {
		return nil, fault.ErrQueueShutdown
	}
	if 0 == len(s.pending) {
		if err := s.fetch(); nil != err {
			return nil, err
		}
		if 0 == len(s.pending) {
			return nil, nil
		}
	}
	txn := s.pending[0]
	s.pending = s.pending[1:]
	return txn, nil
}

func (s *levelScanner) fetch() error {
	q := s.queue
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return fault.ErrQueueShutdown
	}

	maxRange := ldb_util.Range{
		Start: transactionrecord.PackedKey(s.after + 1), // included in the range
		Limit: nil,
	}
	iter := q.db.NewIterator(&maxRange, nil)

	for n := 0; n < levelScanBatch && iter.Next(); n += 1 {
		txn, err := transactionrecord.Packed(iter.Value()).Unpack()
		if nil != err {
			q.log.Warnf("%s: scan: skip record: %x  error: %s", q.directory, iter.Key(), err)
			if id, e := transactionrecord.KeyToTxnId(iter.Key()); nil == e {
				s.after = id
			}
			continue
		}
		s.pending = append(s.pending, txn)
		s.after = txn.TxnId
	}
	iter.Release()
	return fault.NewIOError("scan level queue", iter.Error())
}

// Close - drop any buffered records
func (s *levelScanner) Close() error {
	s.closed = true
	s.pending = nil
	return nil
}
