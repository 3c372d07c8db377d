// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"github.com/bitmark-inc/handlestore/fault"
)

// ScanFunc - called for each record found by Scan
//
// the slices belong to the callback; a non-nil error stops the scan and
// is returned by Scan
type ScanFunc func(key []byte, value []byte) error

type record struct {
	key   []byte
	value []byte
}

// Scan - visit every record in bucket order
//
// each bucket's chain is read under the lock and the callback runs
// outside it, so the callback may use the store.  Records found in the
// wrong bucket and damaged chains are logged and skipped
func (s *Store) Scan(fn ScanFunc) error {

	s.Lock()
	if s.closed {
		s.Unlock()
		return fault.ErrStoreClosed
	}
	bucketCount := s.bucketCount
	s.Unlock()

	for bucket := uint32(0); bucket < bucketCount; bucket += 1 {

		s.Lock()
		if s.closed {
			s.Unlock()
			return fault.ErrStoreClosed
		}
		records := s.collect(bucket)
		s.Unlock()

		for _, r := range records {
			if err := fn(r.key, r.value); nil != err {
				return err
			}
		}
	}
	return nil
}

// collect - every readable record of one bucket, lock must be held
func (s *Store) collect(bucket uint32) []record {
	records := []record(nil)
	visited := make(map[int64]struct{})

	for offset := s.index[bucket]; 0 != offset; {
		if _, seen := visited[offset]; seen {
			s.log.Errorf("%q: bucket: %d cycle at: 0x%x", s.name, bucket, offset)
			break
		}
		visited[offset] = struct{}{}

		start, err := s.readStart(offset)
		if nil != err {
			// the chain cannot be followed past an unreadable start block
			s.log.Errorf("%q: bucket: %d abandoned at: 0x%x  error: %s", s.name, bucket, offset, err)
			break
		}

		payload, _, err := s.readPayload(offset, start)
		if nil != err {
			s.log.Warnf("%q: bucket: %d skip record at: 0x%x  error: %s", s.name, bucket, offset, err)
			offset = start.next
			continue
		}

		key := payload[:start.keyLength]
		if b := bucketOf(key, s.bucketCount); b != bucket {
			s.log.Warnf("%q: bucket: %d skip record at: 0x%x  belongs in bucket: %d", s.name, bucket, offset, b)
			offset = start.next
			continue
		}

		records = append(records, record{
			key:   key,
			value: payload[start.keyLength:],
		})
		offset = start.next
	}
	return records
}
