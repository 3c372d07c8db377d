// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

// ConcatenatedQueue - an old queue followed by a current queue
//
// new transactions go to the current queue.  The old queue is deleted
// once pruning has left nothing in it that the current queue does not
// supersede
type ConcatenatedQueue struct {
	sync.Mutex

	// serialises appends without blocking the read methods that
	// listeners may call
	appending sync.Mutex

	log     *logger.L
	old     Retirable // nil after retirement
	current Queue
	closed  bool
}

// NewConcatenatedQueue - join two open queues
func NewConcatenatedQueue(old Retirable, current Queue) (*ConcatenatedQueue, error) {
	if nil == old || nil == current {
		return nil, fault.ErrInvalidStructPointer
	}
	log := logger.New("txqueue-concat")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}

	oldLast := old.LastTxnId()
	currentLast := current.LastTxnId()
	if currentLast > 0 && currentLast <= oldLast {
		log.Errorf("current queue last txn: %d is not after old queue last txn: %d", currentLast, oldLast)
		return nil, fault.ErrTransactionOutOfOrder
	}

	log.Infof("old last txn: %d  current last txn: %d", oldLast, currentLast)
	return &ConcatenatedQueue{
		log:     log,
		old:     old,
		current: current,
	}, nil
}

// Append - add to the current queue
func (q *ConcatenatedQueue) Append(txn *transactionrecord.Transaction) error {
	q.appending.Lock()
	defer q.appending.Unlock()

	q.Lock()
	if q.closed {
		q.Unlock()
		return fault.ErrQueueShutdown
	}
	last := q.lastTxnId()
	current := q.current
	q.Unlock()

	if err := checkAppend(txn, last); nil != err {
		return err
	}
	return current.Append(txn)
}

// LastTxnId - from the current queue, or the old one while the current
// queue is empty
func (q *ConcatenatedQueue) LastTxnId() int64 {
	q.Lock()
	defer q.Unlock()
	return q.lastTxnId()
}

func (q *ConcatenatedQueue) lastTxnId() int64 {
	if last := q.current.LastTxnId(); last > 0 {
		return last
	}
	if nil != q.old {
		return q.old.LastTxnId()
	}
	return 0
}

// FirstRecordedDate - from the old queue while it holds anything
func (q *ConcatenatedQueue) FirstRecordedDate() time.Time {
	q.Lock()
	defer q.Unlock()

	if nil != q.old {
		if d := q.old.FirstRecordedDate(); !d.IsZero() {
			return d
		}
	}
	return q.current.FirstRecordedDate()
}

// Retired - true once the old queue has been deleted
func (q *ConcatenatedQueue) Retired() bool {
	q.Lock()
	defer q.Unlock()
	return nil == q.old
}

// AddListener - listeners belong to the current queue
func (q *ConcatenatedQueue) AddListener(listener Listener) {
	q.current.AddListener(listener)
}

// RemoveListener - listeners belong to the current queue
func (q *ConcatenatedQueue) RemoveListener(listener Listener) {
	q.current.RemoveListener(listener)
}

// PruneBefore - prune both queues then retire the old one if possible
//
// the old queue always keeps its last transaction, so once its first
// recorded date is before the cutoff that date is its last transaction's
// date.  Retirement needs the current queue's history to start no
// earlier than that
func (q *ConcatenatedQueue) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	q.Lock()
	old := q.old
	current := q.current
	closed := q.closed
	q.Unlock()

	if closed {
		return 0, fault.ErrQueueShutdown
	}

	deleted := 0
	if nil != old {
		n, err := old.PruneBefore(ctx, cutoff)
		deleted += n
		if nil != err {
			return deleted, err
		}
	}

	n, err := current.PruneBefore(ctx, cutoff)
	deleted += n
	if nil != err {
		return deleted, err
	}

	if nil == old {
		return deleted, nil
	}

	oldLastDate := old.FirstRecordedDate()
	if !oldLastDate.Before(cutoff) {
		return deleted, nil
	}
	if 0 == current.LastTxnId() || current.FirstRecordedDate().Before(oldLastDate) {
		q.log.Infof("old queue kept: current queue does not yet cover: %s", oldLastDate.UTC().Format(time.RFC3339))
		return deleted, nil
	}

	q.Lock()
	defer q.Unlock()

	if q.old != old {
		return deleted, nil
	}
	q.log.Warnf("retire old queue: last txn: %d", old.LastTxnId())
	if err := old.Destroy(); nil != err {
		q.log.Errorf("retire old queue error: %s", err)
		return deleted, err
	}
	q.old = nil
	return deleted, nil
}

// Shutdown - shut down both queues
func (q *ConcatenatedQueue) Shutdown() error {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	var err error
	if nil != q.old {
		err = q.old.Shutdown()
	}
	if e := q.current.Shutdown(); nil == err {
		err = e
	}
	return err
}

// concatScanner - drains the old queue then follows the current one
type concatScanner struct {
	queue   *ConcatenatedQueue
	after   int64
	old     Scanner
	current Scanner
	closed  bool
}

// Scan - routes through the old queue when afterTxnId precedes its end
func (q *ConcatenatedQueue) Scan(afterTxnId int64) (Scanner, error) {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return nil, fault.ErrQueueShutdown
	}

	s := &concatScanner{
		queue: q,
		after: afterTxnId,
	}
	if nil != q.old && afterTxnId < q.old.LastTxnId() {
		old, err := q.old.Scan(afterTxnId)
		if nil != err {
			return nil, err
		}
		s.old = old
	}
	return s, nil
}

// Next - the next transaction, or nil if the scanner has caught up
func (s *concatScanner) Next() (*transactionrecord.Transaction, error) {
	if s.closed {
		return nil, fault.ErrQueueShutdown
	}

	if nil != s.old {
		txn, err := s.old.Next()
		if nil != err && !(fault.ErrQueueShutdown == err && s.queue.Retired()) {
			return nil, err
		}
		if nil != txn {
			s.after = txn.TxnId
			return txn, nil
		}
		// the old queue no longer grows so empty means finished
		s.old.Close()
		s.old = nil
	}

	if nil == s.current {
		s.queue.Lock()
		current := s.queue.current
		s.queue.Unlock()

		c, err := current.Scan(s.after)
		if nil != err {
			return nil, err
		}
		s.current = c
	}

	for {
		txn, err := s.current.Next()
		if nil != err || nil == txn {
			return nil, err
		}
		if txn.TxnId <= s.after {
			continue
		}
		s.after = txn.TxnId
		return txn, nil
	}
}

// Close - close whichever scanners are open
func (s *concatScanner) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if nil != s.old {
		err = s.old.Close()
		s.old = nil
	}
	if nil != s.current {
		if e := s.current.Close(); nil == err {
			err = e
		}
		s.current = nil
	}
	return err
}
