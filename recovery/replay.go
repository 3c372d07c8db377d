// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package recovery - rebuild a store from a transaction queue
package recovery

import (
	"context"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
	"github.com/bitmark-inc/handlestore/txqueue"
)

// Store - the mutations replay applies
type Store interface {
	Set(key []byte, value []byte) error
	Delete(key []byte) (bool, error)
	DeleteAll() error
}

// ValueSource - current values of handles whose transactions did not
// carry them, normally the primary's store
type ValueSource interface {
	Get(key []byte) ([]byte, bool, error)
}

// Target - stores receiving the replay; a nil Prefixes ignores the
// home and unhome actions
type Target struct {
	Handles  Store
	Prefixes Store
}

// Result - where a replay stopped
type Result struct {
	LastTxnId int64 `json:"last_txn_id"` // resume with Scan(LastTxnId)
	Applied   int   `json:"applied"`
	Skipped   int   `json:"skipped"`
}

var homedFlag = []byte{1}

// Replay - apply every transaction the scanner returns until it is
// exhausted or ctx is cancelled
func Replay(ctx context.Context, scanner txqueue.Scanner, target Target, source ValueSource) (Result, error) {
	result := Result{}

	if nil == scanner || nil == target.Handles {
		return result, fault.ErrInvalidStructPointer
	}

	log := logger.New("recovery")
	if nil == log {
		return result, fault.ErrInvalidLoggerChannel
	}

	for {
		if err := ctx.Err(); nil != err {
			return result, err
		}

		txn, err := scanner.Next()
		if nil != err {
			return result, err
		}
		if nil == txn {
			break
		}

		applied, err := apply(log, txn, target, source)
		if nil != err {
			log.Errorf("%s  error: %s", txn, err)
			return result, err
		}

		result.LastTxnId = txn.TxnId
		if applied {
			result.Applied += 1
		} else {
			result.Skipped += 1
		}
	}

	log.Infof("replayed to: %d  applied: %d  skipped: %d", result.LastTxnId, result.Applied, result.Skipped)
	return result, nil
}

func apply(log *logger.L, txn *transactionrecord.Transaction, target Target, source ValueSource) (bool, error) {
	switch txn.Action {

	case transactionrecord.ActionCreate, transactionrecord.ActionUpdate:
		values := txn.Values
		if nil == values {
			if nil == source {
				log.Warnf("no values: %s", txn)
				return false, nil
			}
			v, found, err := source.Get(txn.Key)
			if nil != err {
				return false, err
			}
			if !found {
				// removed by a later transaction
				log.Debugf("source has no key: %s", txn)
				return false, nil
			}
			values = v
		}
		return true, target.Handles.Set(txn.Key, values)

	case transactionrecord.ActionDelete:
		_, err := target.Handles.Delete(txn.Key)
		return true, err

	case transactionrecord.ActionDeleteAll:
		return true, target.Handles.DeleteAll()

	case transactionrecord.ActionHomePrefix:
		if nil == target.Prefixes {
			return false, nil
		}
		return true, target.Prefixes.Set(txn.Key, homedFlag)

	case transactionrecord.ActionUnhomePrefix:
		if nil == target.Prefixes {
			return false, nil
		}
		_, err := target.Prefixes.Delete(txn.Key)
		return true, err

	default:
		return false, fault.ErrInvalidAction
	}
}
