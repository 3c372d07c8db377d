// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"encoding/binary"

	"github.com/bitmark-inc/handlestore/fault"
)

// Packed - binary form of a transaction
//
//   id(8) ++ action(1) ++ date(8) ++ hashOnAll(4) ++ hashOnNA(4) ++
//   hashOnId(4) ++ keyLength(4) ++ key
//
// all integers big endian, date in milliseconds
type Packed []byte

// size of the fixed part of a packed record
const packedHeaderSize = 8 + 1 + 8 + 4 + 4 + 4 + 4

// PackedKey - 8 byte big endian id so that lexical order is numeric order
func PackedKey(txnId int64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(txnId))
	return k
}

// KeyToTxnId - reverse of PackedKey
func KeyToTxnId(k []byte) (int64, error) {
	if 8 != len(k) {
		return 0, fault.ErrInvalidTransactionRecord
	}
	return int64(binary.BigEndian.Uint64(k)), nil
}

// Pack - encode to the fixed binary layout
func (t *Transaction) Pack() Packed {
	buffer := make([]byte, packedHeaderSize+len(t.Key))

	binary.BigEndian.PutUint64(buffer[0:], uint64(t.TxnId))
	buffer[8] = byte(t.Action)
	binary.BigEndian.PutUint64(buffer[9:], uint64(toMillis(t.Date)))
	binary.BigEndian.PutUint32(buffer[17:], uint32(t.HashOnAll))
	binary.BigEndian.PutUint32(buffer[21:], uint32(t.HashOnNA))
	binary.BigEndian.PutUint32(buffer[25:], uint32(t.HashOnId))
	binary.BigEndian.PutUint32(buffer[29:], uint32(len(t.Key)))
	copy(buffer[packedHeaderSize:], t.Key)

	return buffer
}

// Unpack - decode the binary layout
//
// the key is copied so the result does not alias the buffer
func (record Packed) Unpack() (*Transaction, error) {
	if len(record) < packedHeaderSize {
		return nil, fault.ErrInvalidTransactionRecord
	}

	keyLength := binary.BigEndian.Uint32(record[29:])
	if uint64(keyLength) != uint64(len(record)-packedHeaderSize) {
		return nil, fault.ErrInvalidTransactionRecord
	}

	t := &Transaction{
		TxnId:     int64(binary.BigEndian.Uint64(record[0:])),
		Action:    Action(record[8]),
		Date:      fromMillis(int64(binary.BigEndian.Uint64(record[9:]))),
		HashOnAll: int32(binary.BigEndian.Uint32(record[17:])),
		HashOnNA:  int32(binary.BigEndian.Uint32(record[21:])),
		HashOnId:  int32(binary.BigEndian.Uint32(record[25:])),
		Key:       make([]byte, keyLength),
	}
	copy(t.Key, record[packedHeaderSize:])

	if t.TxnId <= 0 || !t.Action.Valid() {
		return nil, fault.ErrInvalidTransactionRecord
	}
	return t, nil
}
