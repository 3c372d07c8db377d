// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

func openLevelQueue(t *testing.T, directory string, options Options) *LevelQueue {
	q, err := NewLevelQueue(directory, options)
	require.NoError(t, err, "open level queue")
	return q
}

func TestLevelAppendAndScan(t *testing.T) {
	q := openLevelQueue(t, testDirectory(t, "q"), Options{})
	defer q.Shutdown()

	assert.Equal(t, int64(0), q.LastTxnId(), "empty last")
	assert.True(t, q.FirstRecordedDate().IsZero(), "empty first date")
	assert.Empty(t, scanIds(t, q, 0), "empty scan")

	// more than one scanner batch
	appendRange(t, q, nil, 1, 250, time.Minute)

	assert.Equal(t, int64(250), q.LastTxnId(), "last")
	assert.Equal(t, testBase.Add(time.Minute), q.FirstRecordedDate(), "first date")
	assert.Equal(t, idRange(1, 250), scanIds(t, q, 0), "scan all")
	assert.Equal(t, idRange(201, 250), scanIds(t, q, 200), "scan after 200")
	assert.Empty(t, scanIds(t, q, 250), "scan after last")
}

func TestLevelRecordLayout(t *testing.T) {
	directory := testDirectory(t, "q")
	q := openLevelQueue(t, directory, Options{})
	txn := makeTxn(t, 258, testBase)
	require.NoError(t, q.Append(txn), "append")
	require.NoError(t, q.Shutdown(), "shutdown")

	db, err := leveldb.OpenFile(directory, nil)
	require.NoError(t, err, "open database")
	defer db.Close()

	value, err := db.Get([]byte{0, 0, 0, 0, 0, 0, 1, 2}, nil)
	require.NoError(t, err, "big endian key")
	assert.Equal(t, []byte(txn.Pack()), value, "packed value")
}

func TestLevelAppendRejects(t *testing.T) {
	q := openLevelQueue(t, testDirectory(t, "q"), Options{})
	defer q.Shutdown()

	txn := makeTxn(t, 1, testBase)
	txn.TxnId = 0
	assert.Equal(t, fault.ErrInvalidTransactionId, q.Append(txn), "zero id")

	require.NoError(t, q.Append(makeTxn(t, 7, testBase)), "append")
	assert.Equal(t, fault.ErrTransactionOutOfOrder, q.Append(makeTxn(t, 7, testBase)), "repeat id")
}

func TestLevelReopen(t *testing.T) {
	directory := testDirectory(t, "q")
	q := openLevelQueue(t, directory, Options{})
	appendRange(t, q, nil, 1, 20, time.Minute)
	require.NoError(t, q.Shutdown(), "shutdown")
	assert.NoError(t, q.Shutdown(), "second shutdown")

	q = openLevelQueue(t, directory, Options{})
	defer q.Shutdown()

	assert.Equal(t, int64(20), q.LastTxnId(), "last")
	assert.Equal(t, testBase.Add(time.Minute), q.FirstRecordedDate(), "first date")
	appendRange(t, q, nil, 21, 22, time.Minute)
	assert.Equal(t, idRange(1, 22), scanIds(t, q, 0), "scan")
}

func TestLevelReadOnly(t *testing.T) {
	directory := testDirectory(t, "q")

	_, err := NewLevelQueue(directory, Options{ReadOnly: true})
	assert.Error(t, err, "missing database")
	assert.True(t, fault.IsErrIO(err), "io class")

	q := openLevelQueue(t, directory, Options{})
	appendRange(t, q, nil, 1, 3, time.Minute)
	require.NoError(t, q.Shutdown(), "shutdown")

	r := openLevelQueue(t, directory, Options{ReadOnly: true})
	defer r.Shutdown()

	assert.Equal(t, idRange(1, 3), scanIds(t, r, 0), "scan")
	assert.Equal(t, fault.ErrQueueReadOnly, r.Append(makeTxn(t, 4, testBase)), "append")
	_, err = r.PruneBefore(context.Background(), testBase.Add(time.Hour))
	assert.Equal(t, fault.ErrQueueReadOnly, err, "prune")
}

func TestLevelScannerFollowsAppends(t *testing.T) {
	q := openLevelQueue(t, testDirectory(t, "q"), Options{})
	defer q.Shutdown()

	appendRange(t, q, nil, 1, 3, time.Minute)

	s, err := q.Scan(0)
	require.NoError(t, err, "scan")
	defer s.Close()

	assert.Equal(t, idRange(1, 3), drain(t, s), "initial")
	appendRange(t, q, nil, 4, 5, time.Minute)
	assert.Equal(t, idRange(4, 5), drain(t, s), "later appends")

	require.NoError(t, s.Close(), "close")
	_, err = s.Next()
	assert.Equal(t, fault.ErrQueueShutdown, err, "closed scanner")
}

func TestLevelPrune(t *testing.T) {
	directory := testDirectory(t, "q")
	q := openLevelQueue(t, directory, Options{PruneBatch: 7})
	defer q.Shutdown()

	appendRange(t, q, nil, 1, 50, time.Hour)
	date := func(id int64) time.Time { return testBase.Add(time.Duration(id) * time.Hour) }

	n, err := q.PruneBefore(context.Background(), date(31))
	require.NoError(t, err, "prune")
	assert.Equal(t, 30, n, "deleted over several batches")
	assert.Equal(t, idRange(31, 50), scanIds(t, q, 0), "remaining")
	assert.Equal(t, date(31), q.FirstRecordedDate(), "first date recomputed")
	assert.Equal(t, int64(50), q.LastTxnId(), "last")

	n, err = q.PruneBefore(context.Background(), date(1000))
	require.NoError(t, err, "prune")
	assert.Equal(t, 19, n, "all but the latest")
	assert.Equal(t, []int64{50}, scanIds(t, q, 0), "latest kept")
	assert.Equal(t, date(50), q.FirstRecordedDate(), "first date")

	n, err = q.PruneBefore(context.Background(), date(1000))
	require.NoError(t, err, "prune")
	assert.Equal(t, 0, n, "latest is never removed")

	appendRange(t, q, nil, 51, 51, time.Hour)
	assert.Equal(t, []int64{50, 51}, scanIds(t, q, 0), "appends continue")
}

func TestLevelPruneCancelled(t *testing.T) {
	q := openLevelQueue(t, testDirectory(t, "q"), Options{PruneBatch: 1})
	defer q.Shutdown()

	appendRange(t, q, nil, 1, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.PruneBefore(ctx, testBase.Add(100*time.Hour))
	assert.Equal(t, context.Canceled, err, "cancelled")
	assert.Equal(t, idRange(1, 5), scanIds(t, q, 0), "unchanged")
}

func TestLevelShutdownRejects(t *testing.T) {
	q := openLevelQueue(t, testDirectory(t, "q"), Options{})
	appendRange(t, q, nil, 1, 2, time.Minute)

	s, err := q.Scan(0)
	require.NoError(t, err, "scan")
	require.NoError(t, q.Shutdown(), "shutdown")

	_, err = s.Next()
	assert.Equal(t, fault.ErrQueueShutdown, err, "scanner after shutdown")
	assert.Equal(t, fault.ErrQueueShutdown, q.Append(makeTxn(t, 3, testBase)), "append")
	_, err = q.Scan(0)
	assert.Equal(t, fault.ErrQueueShutdown, err, "scan")
}

func TestLevelDestroy(t *testing.T) {
	directory := testDirectory(t, "q")
	q := openLevelQueue(t, directory, Options{})
	appendRange(t, q, nil, 1, 2, time.Minute)

	require.NoError(t, q.Destroy(), "destroy")
	_, err := os.Stat(directory)
	assert.True(t, os.IsNotExist(err), "directory removed")
}

func TestLevelValuesNotPersisted(t *testing.T) {
	q := openLevelQueue(t, testDirectory(t, "q"), Options{})
	defer q.Shutdown()

	txn, err := transactionrecord.New(1, []byte("0.NA/x"), transactionrecord.ActionCreate, testBase, []byte("payload"))
	require.NoError(t, err, "new")
	require.NoError(t, q.Append(txn), "append")

	s, err := q.Scan(0)
	require.NoError(t, err, "scan")
	defer s.Close()

	actual, err := s.Next()
	require.NoError(t, err, "next")
	require.NotNil(t, actual, "record")
	assert.Equal(t, txn.Key, actual.Key, "key")
	assert.Equal(t, txn.HashOnAll, actual.HashOnAll, "hash")
	assert.Nil(t, actual.Values, "values travel only with the append")
}
