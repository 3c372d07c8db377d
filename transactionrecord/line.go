// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/bitmark-inc/handlestore/fault"
)

// field separator of the text form
const lineSeparator = '|'

// number of '|' terminated fields in a line
const lineFields = 7

// FormatLine - text form used by the file queue, newline terminated
//
//   txnId|action|date|hashOnAll|hashOnNA|hashOnId|hex(key)|
func (t *Transaction) FormatLine() []byte {
	b := make([]byte, 0, 64+2*len(t.Key))
	b = strconv.AppendInt(b, t.TxnId, 10)
	b = append(b, lineSeparator)
	b = strconv.AppendInt(b, int64(t.Action), 10)
	b = append(b, lineSeparator)
	b = strconv.AppendInt(b, toMillis(t.Date), 10)
	b = append(b, lineSeparator)
	b = strconv.AppendInt(b, int64(t.HashOnAll), 10)
	b = append(b, lineSeparator)
	b = strconv.AppendInt(b, int64(t.HashOnNA), 10)
	b = append(b, lineSeparator)
	b = strconv.AppendInt(b, int64(t.HashOnId), 10)
	b = append(b, lineSeparator)
	h := make([]byte, hex.EncodedLen(len(t.Key)))
	hex.Encode(h, t.Key)
	b = append(b, h...)
	b = append(b, lineSeparator, '\n')
	return b
}

// ParseLine - decode one line, with or without its trailing newline
func ParseLine(line []byte) (*Transaction, error) {
	line = bytes.TrimRight(line, "\r\n")

	fields := bytes.Split(line, []byte{lineSeparator})
	if lineFields+1 != len(fields) || 0 != len(fields[lineFields]) {
		return nil, fault.ErrInvalidTransactionRecord
	}

	txnId, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if nil != err || txnId <= 0 {
		return nil, fault.ErrInvalidTransactionRecord
	}
	action, err := strconv.ParseUint(string(fields[1]), 10, 8)
	if nil != err || !Action(action).Valid() {
		return nil, fault.ErrInvalidTransactionRecord
	}
	date, err := strconv.ParseInt(string(fields[2]), 10, 64)
	if nil != err {
		return nil, fault.ErrInvalidTransactionRecord
	}

	hashes := [3]int32{}
	for i := range hashes {
		h, err := strconv.ParseInt(string(fields[3+i]), 10, 32)
		if nil != err {
			return nil, fault.ErrInvalidTransactionRecord
		}
		hashes[i] = int32(h)
	}

	key := make([]byte, hex.DecodedLen(len(fields[6])))
	if _, err := hex.Decode(key, fields[6]); nil != err {
		return nil, fault.ErrInvalidTransactionRecord
	}

	return &Transaction{
		TxnId:     txnId,
		Action:    Action(action),
		Date:      fromMillis(date),
		HashOnAll: hashes[0],
		HashOnNA:  hashes[1],
		HashOnId:  hashes[2],
		Key:       key,
	}, nil
}
