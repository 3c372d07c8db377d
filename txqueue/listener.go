// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/transactionrecord"
)

// listenerSet - registered listeners and the notification order lock
type listenerSet struct {
	sync.Mutex
	listeners []Listener

	// held from before the queue lock is released until every
	// listener has run, so notifications follow append order
	notifying sync.Mutex

	log *logger.L
}

func (l *listenerSet) add(listener Listener) {
	if nil == listener {
		return
	}
	l.Lock()
	defer l.Unlock()

	l.listeners = append(l.listeners, listener)
}

// remove - first registration only
func (l *listenerSet) remove(listener Listener) {
	l.Lock()
	defer l.Unlock()

	for i, item := range l.listeners {
		if item == listener {
			l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
			return
		}
	}
}

// notify - call every listener, notifying must already be held and is
// released on return
func (l *listenerSet) notify(txn *transactionrecord.Transaction) {
	defer l.notifying.Unlock()

	l.Lock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.Unlock()

	for i, listener := range listeners {
		l.call(i, listener, txn)
	}
}

// call - a failing or panicking listener is logged and ignored
func (l *listenerSet) call(i int, listener Listener, txn *transactionrecord.Transaction) {
	defer func() {
		if r := recover(); nil != r {
			l.log.Errorf("listener[%d]: txn: %d  panic: %v", i, txn.TxnId, r)
		}
	}()

	if err := listener.TransactionAdded(txn); nil != err {
		l.log.Warnf("listener[%d]: txn: %d  error: %s", i, txn.TxnId, err)
	}
}
