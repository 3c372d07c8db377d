// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/handlestore/transactionrecord"
	"github.com/bitmark-inc/handlestore/txqueue"
	"github.com/bitmark-inc/handlestore/txqueue/mocks"
)

var externalBase = time.Date(2020, 3, 4, 10, 0, 0, 0, time.UTC)

func externalDirectory(t *testing.T) string {
	directory := filepath.Join("testing", strings.Replace(t.Name(), "/", "_", -1))
	_ = os.RemoveAll(directory)
	return directory
}

func newTxn(t *testing.T, id int64, date time.Time) *transactionrecord.Transaction {
	txn, err := transactionrecord.New(id, []byte(fmt.Sprintf("0.NA/%d", id)), transactionrecord.ActionCreate, date, []byte("v"))
	require.NoError(t, err, "new transaction")
	return txn
}

type panickingListener struct{}

func (panickingListener) TransactionAdded(*transactionrecord.Transaction) error {
	panic("listener failure")
}

// queues under test, each opened in a fresh directory
var backends = []struct {
	name string
	open func(directory string) (txqueue.Queue, error)
}{
	{
		name: "file",
		open: func(directory string) (txqueue.Queue, error) {
			return txqueue.NewFileQueue(directory, txqueue.Options{})
		},
	},
	{
		name: "level",
		open: func(directory string) (txqueue.Queue, error) {
			return txqueue.NewLevelQueue(directory, txqueue.Options{})
		},
	},
}

func TestListenersNotifiedInOrder(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctl := gomock.NewController(t)
			defer ctl.Finish()

			q, err := backend.open(externalDirectory(t))
			require.NoError(t, err, "open")
			defer q.Shutdown()

			first := mocks.NewMockListener(ctl)
			second := mocks.NewMockListener(ctl)
			third := mocks.NewMockListener(ctl)

			txn1 := newTxn(t, 1, externalBase)
			txn2 := newTxn(t, 2, externalBase)

			gomock.InOrder(
				first.EXPECT().TransactionAdded(txn1).Return(nil),
				second.EXPECT().TransactionAdded(txn1).Return(fmt.Errorf("replica offline")),
				third.EXPECT().TransactionAdded(txn1).Return(nil),
				first.EXPECT().TransactionAdded(txn2).Return(nil),
				third.EXPECT().TransactionAdded(txn2).Return(nil),
			)

			q.AddListener(first)
			q.AddListener(second)
			q.AddListener(panickingListener{})
			q.AddListener(third)

			assert.NoError(t, q.Append(txn1), "failing listeners do not fail the append")

			q.RemoveListener(second)
			assert.NoError(t, q.Append(txn2), "append after remove")

			assert.Equal(t, int64(2), q.LastTxnId(), "both appended")
		})
	}
}

func TestListenerMayReadQueue(t *testing.T) {
	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			ctl := gomock.NewController(t)
			defer ctl.Finish()

			q, err := backend.open(externalDirectory(t))
			require.NoError(t, err, "open")
			defer q.Shutdown()

			l := mocks.NewMockListener(ctl)
			l.EXPECT().TransactionAdded(gomock.Any()).DoAndReturn(
				func(txn *transactionrecord.Transaction) error {
					assert.Equal(t, txn.TxnId, q.LastTxnId(), "durable before notification")
					return nil
				},
			).Times(3)
			q.AddListener(l)

			for id := int64(1); id <= 3; id += 1 {
				require.NoError(t, q.Append(newTxn(t, id, externalBase)), "append")
			}
		})
	}
}
