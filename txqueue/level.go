// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	ldb_util "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

// all writes reach the disk before returning
var syncWrites = &ldb_opt.WriteOptions{Sync: true}

// LevelQueue - transactions in a LevelDB database
//
// key:   8 byte big endian transaction id
// value: transactionrecord.Packed
type LevelQueue struct {
	sync.Mutex

	log       *logger.L
	directory string
	options   Options
	db        *leveldb.DB
	last      int64
	firstDate time.Time
	closed    bool

	listeners listenerSet
}

// NewLevelQueue - open or create the database directory
//
// read only access requires an existing database
func NewLevelQueue(directory string, options Options) (*LevelQueue, error) {
	log := logger.New("txqueue-level")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}

	options = options.withDefaults()
	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: options.ReadOnly,
		ReadOnly:       options.ReadOnly,
	}

	db, err := leveldb.OpenFile(directory, opt)
	if nil != err {
		log.Errorf("%s: open error: %s", directory, err)
		return nil, fault.NewIOError("open level queue", err)
	}

	q := &LevelQueue{
		log:       log,
		directory: directory,
		options:   options,
		db:        db,
		listeners: listenerSet{log: log},
	}
	if err := q.loadBounds(); nil != err {
		db.Close()
		return nil, err
	}

	log.Infof("open: %s  last txn: %d  read only: %v", directory, q.last, options.ReadOnly)
	return q, nil
}

// loadBounds - last id and first date from the ends of the key space
func (q *LevelQueue) loadBounds() error {
	iter := q.db.NewIterator(nil, nil)
	defer iter.Release()

	q.last = 0
	q.firstDate = time.Time{}

	if iter.Last() {
		id, err := transactionrecord.KeyToTxnId(iter.Key())
		if nil != err {
			return err
		}
		q.last = id
	}
	if iter.First() {
		txn, err := transactionrecord.Packed(iter.Value()).Unpack()
		if nil != err {
			q.log.Errorf("%s: first record error: %s", q.directory, err)
			return err
		}
		q.firstDate = txn.Date
	}
	return fault.NewIOError("iterate level queue", iter.Error())
}

// Append - store one record with a synced write
func (q *LevelQueue) Append(txn *transactionrecord.Transaction) error {
	q.Lock()

	if q.closed {
		q.Unlock()
		return fault.ErrQueueShutdown
	}
	if q.options.ReadOnly {
		q.Unlock()
		return fault.ErrQueueReadOnly
	}
	if err := checkAppend(txn, q.last); nil != err {
		q.Unlock()
		return err
	}

	err := q.db.Put(transactionrecord.PackedKey(txn.TxnId), txn.Pack(), syncWrites)
	if nil != err {
		q.Unlock()
		return fault.NewIOError("append transaction", err)
	}

	q.last = txn.TxnId
	if q.firstDate.IsZero() {
		q.firstDate = txn.Date
	}

	q.listeners.notifying.Lock()
	q.Unlock()
	q.listeners.notify(txn)
	return nil
}

// LastTxnId - id of the most recent transaction, zero if empty
func (q *LevelQueue) LastTxnId() int64 {
	q.Lock()
	defer q.Unlock()
	return q.last
}

// FirstRecordedDate - date of the oldest transaction, zero if empty
func (q *LevelQueue) FirstRecordedDate() time.Time {
	q.Lock()
	defer q.Unlock()
	return q.firstDate
}

// AddListener - register for notifications
func (q *LevelQueue) AddListener(listener Listener) {
	q.listeners.add(listener)
}

// RemoveListener - stop notifications
func (q *LevelQueue) RemoveListener(listener Listener) {
	q.listeners.remove(listener)
}

// PruneBefore - delete records dated before cutoff in batches
//
// iteration is in id order and stops at the first record on or after
// the cutoff, or at the most recent record
func (q *LevelQueue) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	if q.options.ReadOnly {
		return 0, fault.ErrQueueReadOnly
	}

	pacer := q.options.pacer()
	deleted := 0
	for {
		if err := pacer.Wait(ctx); nil != err {
			return deleted, err
		}

		n, done, err := q.pruneBatch(cutoff)
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
		q.Lock()
		if !q.closed {
			if err := q.db.CompactRange(ldb_util.Range{}); nil != err {
				q.log.Warnf("%s: compact error: %s", q.directory, err)
			}
		}
		q.Unlock()
		q.log.Infof("%s: pruned: %d before: %s", q.directory, deleted, cutoff.UTC().Format(time.RFC3339))
	}
	return deleted, nil
}

func (q *LevelQueue) pruneBatch(cutoff time.Time) (int, bool, error) {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return 0, true, fault.ErrQueueShutdown
	}

	batch := new(leveldb.Batch)
	done := true

	iter := q.db.NewIterator(nil, nil)
iterating:
	for iter.Next() {
		if batch.Len() >= q.options.PruneBatch {
			done = false
			break iterating
		}

		// contents of the returned slice must not be modified, and are
		// only valid until the next call to Next
		key := iter.Key()
		id, err := transactionrecord.KeyToTxnId(key)
		if nil != err || id == q.last {
			break iterating
		}
		txn, err := transactionrecord.Packed(iter.Value()).Unpack()
		if nil != err {
			q.log.Errorf("%s: txn: %d  error: %s", q.directory, id, err)
			break iterating
		}
		if !txn.Date.Before(cutoff) {
			break iterating
		}
		batch.Delete(transactionrecord.PackedKey(id))
	}
	iter.Release()
	if err := iter.Error(); nil != err {
		return 0, true, fault.NewIOError("iterate level queue", err)
	}

	n := batch.Len()
	if 0 == n {
		return 0, true, nil
	}
	if err := q.db.Write(batch, syncWrites); nil != err {
		return 0, true, fault.NewIOError("prune level queue", err)
	}
	return n, done, q.loadBounds()
}

// Shutdown - close the database
func (q *LevelQueue) Shutdown() error {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	q.log.Infof("shutdown: %s", q.directory)
	return fault.NewIOError("close level queue", q.db.Close())
}

// Destroy - shut down and delete the database directory
func (q *LevelQueue) Destroy() error {
	if q.options.ReadOnly {
		return fault.ErrQueueReadOnly
	}
	if err := q.Shutdown(); nil != err {
		return err
	}
	q.log.Warnf("destroy: %s", q.directory)
	return fault.NewIOError("remove level queue", os.RemoveAll(q.directory))
}
