// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package recorder - apply mutations to the store and log them
//
// every mutation is applied to the block store first and then appended
// to the transaction queue with the next transaction id
package recorder

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
	"github.com/bitmark-inc/handlestore/txqueue"
)

// Store - the key/value operations needed from a block store
type Store interface {
	Get(key []byte) ([]byte, bool, error)
	Has(key []byte) (bool, error)
	Set(key []byte, value []byte) error
	Delete(key []byte) (bool, error)
	DeleteAll() error
}

// homed prefixes are stored with this value
var homedFlag = []byte{1}

// Recorder - serialises mutations and their transaction ids
type Recorder struct {
	sync.Mutex

	log      *logger.L
	handles  Store
	prefixes Store
	queue    txqueue.Queue
	clock    func() time.Time
}

// New - handles and prefixes are separate stores
func New(handles Store, prefixes Store, queue txqueue.Queue) (*Recorder, error) {
	if nil == handles || nil == prefixes || nil == queue {
		return nil, fault.ErrInvalidStructPointer
	}
	log := logger.New("recorder")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}
	return &Recorder{
		log:      log,
		handles:  handles,
		prefixes: prefixes,
		queue:    queue,
		clock:    time.Now,
	}, nil
}

// Get - current values of a handle
func (r *Recorder) Get(key []byte) ([]byte, bool, error) {
	return r.handles.Get(key)
}

// IsHomed - true if the prefix is served here
func (r *Recorder) IsHomed(prefix []byte) (bool, error) {
	return r.prefixes.Has(prefix)
}

// Create - add a new handle, fails if it exists
func (r *Recorder) Create(key []byte, values []byte) error {
	r.Lock()
	defer r.Unlock()

	found, err := r.handles.Has(key)
	if nil != err {
		return err
	}
	if found {
		return fault.ErrKeyExists
	}
	if err := r.handles.Set(key, values); nil != err {
		return err
	}
	return r.record(key, transactionrecord.ActionCreate, values)
}

// Set - create or replace a handle's values
func (r *Recorder) Set(key []byte, values []byte) error {
	r.Lock()
	defer r.Unlock()

	found, err := r.handles.Has(key)
	if nil != err {
		return err
	}
	if err := r.handles.Set(key, values); nil != err {
		return err
	}
	action := transactionrecord.ActionCreate
	if found {
		action = transactionrecord.ActionUpdate
	}
	return r.record(key, action, values)
}

// Delete - remove a handle, fails if it does not exist
func (r *Recorder) Delete(key []byte) error {
	r.Lock()
	defer r.Unlock()

	found, err := r.handles.Delete(key)
	if nil != err {
		return err
	}
	if !found {
		return fault.ErrKeyNotFound
	}
	return r.record(key, transactionrecord.ActionDelete, nil)
}

// DeleteAll - remove every handle
func (r *Recorder) DeleteAll() error {
	r.Lock()
	defer r.Unlock()

	if err := r.handles.DeleteAll(); nil != err {
		return err
	}
	return r.record(nil, transactionrecord.ActionDeleteAll, nil)
}

// HomePrefix - mark a prefix as served here
func (r *Recorder) HomePrefix(prefix []byte) error {
	if 0 == len(prefix) {
		return fault.ErrKeyLength
	}

	r.Lock()
	defer r.Unlock()

	if err := r.prefixes.Set(prefix, homedFlag); nil != err {
		return err
	}
	return r.record(prefix, transactionrecord.ActionHomePrefix, nil)
}

// UnhomePrefix - stop serving a prefix
func (r *Recorder) UnhomePrefix(prefix []byte) error {
	r.Lock()
	defer r.Unlock()

	found, err := r.prefixes.Delete(prefix)
	if nil != err {
		return err
	}
	if !found {
		return fault.ErrKeyNotFound
	}
	return r.record(prefix, transactionrecord.ActionUnhomePrefix, nil)
}

// record - append the transaction for a mutation already applied
func (r *Recorder) record(key []byte, action transactionrecord.Action, values []byte) error {
	txn, err := transactionrecord.New(r.queue.LastTxnId()+1, key, action, r.clock(), values)
	if nil != err {
		return err
	}
	if err := r.queue.Append(txn); nil != err {
		// the store has changed but replicas will not see it
		r.log.Criticalf("unlogged mutation: %s  error: %s", txn, err)
		return err
	}
	r.log.Debugf("recorded: %s", txn)
	return nil
}
