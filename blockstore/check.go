// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"fmt"

	"github.com/bitmark-inc/handlestore/fault"
)

// Report - result of an integrity check
type Report struct {
	Buckets     uint32
	Records     int
	LiveBlocks  int64
	FreeBlocks  int64
	TotalBlocks int64
	Problems    []string
}

// OK - true if no problems were found
func (r *Report) OK() bool {
	return 0 == len(r.Problems) && r.LiveBlocks+r.FreeBlocks == r.TotalBlocks
}

// Statistics - summary counters
type Statistics struct {
	Buckets     uint32
	TotalBlocks int64
	FreeBlocks  int
	CachedItems int
	ReadOnly    bool
}

// Stats - current counters
func (s *Store) Stats() Statistics {
	s.Lock()
	defer s.Unlock()

	return Statistics{
		Buckets:     s.bucketCount,
		TotalBlocks: s.totalBlocks(),
		FreeBlocks:  s.free.len(),
		CachedItems: s.cache.count(),
		ReadOnly:    s.readOnly,
	}
}

// Check - walk every chain and account for every block in the file
//
// each block must be either reachable from exactly one record or
// marked unused.  In read only mode the free list is not kept so the
// unused blocks are counted from the file
func (s *Store) Check() (*Report, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, fault.ErrStoreClosed
	}

	r := &Report{
		Buckets:     s.bucketCount,
		TotalBlocks: s.totalBlocks(),
	}

	walk := s.walkChains()
	r.Records = walk.records
	r.Problems = walk.problems
	r.LiveBlocks = int64(len(walk.owner))

	problem := func(format string, arguments ...interface{}) {
		r.Problems = append(r.Problems, fmt.Sprintf(format, arguments...))
	}

	free, err := s.unusedBlocks()
	if nil != err {
		return nil, err
	}
	for _, o := range free {
		if record, live := walk.owner[o]; live {
			problem("block: 0x%x is free but used by record: 0x%x", o, record)
		}
	}
	r.FreeBlocks = int64(len(free))

	if !s.readOnly && len(free) != s.free.len() {
		problem("free list holds: %d blocks, file has: %d unused", s.free.len(), len(free))
	}

	if r.LiveBlocks+r.FreeBlocks != r.TotalBlocks {
		problem("live: %d + free: %d != total: %d", r.LiveBlocks, r.FreeBlocks, r.TotalBlocks)
	}
	return r, nil
}

// chainWalk - blocks reachable from the bucket index
type chainWalk struct {
	owner    map[int64]int64 // block offset to the start block of its record
	records  int
	damaged  bool // a chain could not be followed to its end
	problems []string
}

func (w *chainWalk) problem(format string, arguments ...interface{}) {
	w.problems = append(w.problems, fmt.Sprintf(format, arguments...))
}

// walkChains - follow every bucket chain and record each block it holds
func (s *Store) walkChains() *chainWalk {
	w := &chainWalk{
		owner: make(map[int64]int64),
	}

	for bucket := uint32(0); bucket < s.bucketCount; bucket += 1 {
		for offset := s.index[bucket]; 0 != offset; {
			if o, seen := w.owner[offset]; seen {
				w.problem("bucket: %d block: 0x%x already used by record: 0x%x", bucket, offset, o)
				w.damaged = true
				break
			}
			start, err := s.readStart(offset)
			if nil != err {
				w.problem("bucket: %d start block: 0x%x  error: %s", bucket, offset, err)
				w.damaged = true
				break
			}
			payload, held, err := s.readPayload(offset, start)
			if nil != err {
				w.problem("bucket: %d record: 0x%x  error: %s", bucket, offset, err)
				w.damaged = true
				w.owner[offset] = offset
				offset = start.next
				continue
			}
			if b := bucketOf(payload[:start.keyLength], s.bucketCount); b != bucket {
				w.problem("bucket: %d record: 0x%x  hashes to bucket: %d", bucket, offset, b)
			}
			for _, o := range held {
				if first, seen := w.owner[o]; seen {
					w.problem("record: 0x%x block: 0x%x already used by record: 0x%x", offset, o, first)
					w.damaged = true
					continue
				}
				w.owner[o] = offset
			}
			w.records += 1
			offset = start.next
		}
	}
	return w
}

// unusedBlocks - offsets of every block whose code is unused
func (s *Store) unusedBlocks() ([]int64, error) {
	free := []int64(nil)
	buffer := make([]byte, freeScanBlocks*BlockSize)
	for offset := s.dataStart; offset < s.fileEnd; {
		n := int64(len(buffer))
		if offset+n > s.fileEnd {
			n = s.fileEnd - offset
		}
		if _, err := s.file.ReadAt(buffer[:n], offset); nil != err {
			return nil, fault.NewIOError("scan free blocks", err)
		}
		for i := int64(0); i < n; i += BlockSize {
			if codeUnused == buffer[i] {
				free = append(free, offset+i)
			}
		}
		offset += n
	}
	return free, nil
}
