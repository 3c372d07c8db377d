// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

//go:generate mockgen -source=queue.go -destination=mocks/queue.go -package=mocks

// Queue - an append only, strictly ordered transaction log
type Queue interface {
	// Append - durably record a transaction and notify listeners
	Append(*transactionrecord.Transaction) error

	// Scan - cursor over transactions with id > afterTxnId
	Scan(afterTxnId int64) (Scanner, error)

	LastTxnId() int64
	FirstRecordedDate() time.Time

	// PruneBefore - delete transactions dated strictly before the cutoff,
	// always keeping the most recent one; returns the number deleted
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)

	AddListener(Listener)
	RemoveListener(Listener)

	// Shutdown - release all resources, calling again is harmless
	Shutdown() error
}

// Retirable - a queue whose storage can be removed once superseded
type Retirable interface {
	Queue
	Destroy() error
}

// Scanner - a forward only cursor
//
// Next returns nil, nil when there is nothing more at present; later
// appends become visible to subsequent calls
type Scanner interface {
	Next() (*transactionrecord.Transaction, error)
	Close() error
}

// Listener - notified synchronously after every successful append
//
// notifications are serialised in append order; a listener may call the
// read methods of the queue (Scan, LastTxnId, FirstRecordedDate) but must
// not Append to the same queue, which would wait for its own
// notification to finish and never return
type Listener interface {
	TransactionAdded(*transactionrecord.Transaction) error
}

// defaults for Options
const (
	DefaultPruneBatch = 500
	DefaultPruneRate  = rate.Limit(20) // batches per second
)

// Options - settings shared by the queue backends
type Options struct {
	ReadOnly   bool
	Clock      func() time.Time // nil selects time.Now
	PruneBatch int              // transactions deleted per batch
	PruneRate  rate.Limit       // batches per second
}

func (o Options) withDefaults() Options {
	if nil == o.Clock {
		o.Clock = time.Now
	}
	if o.PruneBatch <= 0 {
		o.PruneBatch = DefaultPruneBatch
	}
	if o.PruneRate <= 0 {
		o.PruneRate = DefaultPruneRate
	}
	return o
}

// pacer - one token per prune batch so pruning yields to appends
func (o Options) pacer() *rate.Limiter {
	return rate.NewLimiter(o.PruneRate, 1)
}

// checkAppend - validation common to both backends
func checkAppend(txn *transactionrecord.Transaction, last int64) error {
	if nil == txn {
		return fault.ErrInvalidTransactionRecord
	}
	if txn.TxnId <= 0 {
		return fault.ErrInvalidTransactionId
	}
	if txn.TxnId <= last {
		return fault.ErrTransactionOutOfOrder
	}
	return nil
}
