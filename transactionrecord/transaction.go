// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"fmt"
	"time"

	"github.com/bitmark-inc/handlestore/fault"
)

// Action - the kind of mutation a transaction records
type Action byte

// enumerate the possible actions
// the numeric values are part of both queue formats
const (
	// null is never written
	ActionNull = Action(iota)

	ActionCreate       = Action(iota) // set-value on a new key
	ActionUpdate       = Action(iota) // set-value on an existing key
	ActionDelete       = Action(iota) // delete-value
	ActionDeleteAll    = Action(iota) // delete-everything
	ActionHomePrefix   = Action(iota) // set-prefix-flag
	ActionUnhomePrefix = Action(iota) // delete-prefix-flag

	// this item must be last
	actionLimit = Action(iota)
)

var actionNames = map[Action]string{
	ActionCreate:       "create",
	ActionUpdate:       "update",
	ActionDelete:       "delete",
	ActionDeleteAll:    "delete-all",
	ActionHomePrefix:   "home-prefix",
	ActionUnhomePrefix: "unhome-prefix",
}

// Valid - check the action is one that can be recorded
func (a Action) Valid() bool {
	return a > ActionNull && a < actionLimit
}

// IsSet - true for the actions that carry new values
func (a Action) IsSet() bool {
	return ActionCreate == a || ActionUpdate == a
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", byte(a))
}

// Transaction - one mutation applied to the store
//
// created once and never modified; Values travel with the record to
// listeners but neither queue format persists them
type Transaction struct {
	TxnId     int64
	Action    Action
	Date      time.Time // millisecond resolution
	HashOnAll int32
	HashOnNA  int32
	HashOnId  int32
	Key       []byte
	Values    []byte
}

// New - create a transaction with its hash projections filled in
func New(txnId int64, key []byte, action Action, date time.Time, values []byte) (*Transaction, error) {
	if txnId <= 0 {
		return nil, fault.ErrInvalidTransactionId
	}
	if !action.Valid() {
		return nil, fault.ErrInvalidAction
	}

	k := make([]byte, len(key))
	copy(k, key)

	var v []byte
	if action.IsSet() && nil != values {
		v = make([]byte, len(values))
		copy(v, values)
	}

	all, na, id := Hashes(k)
	return &Transaction{
		TxnId:     txnId,
		Action:    action,
		Date:      fromMillis(toMillis(date)),
		HashOnAll: all,
		HashOnNA:  na,
		HashOnId:  id,
		Key:       k,
		Values:    v,
	}, nil
}

func (t *Transaction) String() string {
	return fmt.Sprintf("txn: %d  %s  %q  at: %s", t.TxnId, t.Action, t.Key, t.Date.UTC().Format(time.RFC3339))
}

func toMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

func fromMillis(ms int64) time.Time {
	return time.Unix(0, ms*int64(time.Millisecond)).UTC()
}
