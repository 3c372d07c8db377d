// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"bufio"
	"io"
	"os"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

type fileScanner struct {
	queue   *FileQueue
	after   int64 // highest id returned so far
	nextSeq int   // lowest segment to open when file is nil
	seq     int
	file    *os.File
	reader  *bufio.Reader
	partial []byte // incomplete line seen at end of file
	closed  bool
}

// Scan - cursor starting at the segment that holds afterTxnId+1
func (q *FileQueue) Scan(afterTxnId int64) (Scanner, error) {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return nil, fault.ErrQueueShutdown
	}

	start := 0
	for _, s := range q.segments {
		if s.first > afterTxnId+1 {
			break
		}
		start = s.seq
	}

	return &fileScanner{
		queue:   q,
		after:   afterTxnId,
		nextSeq: start,
	}, nil
}

// Next - the next transaction, or nil if the scanner has caught up
func (s *fileScanner) Next() (*transactionrecord.Transaction, error) {
	if s.closed {
		return nil, fault.ErrQueueShutdown
	}

	for {
		if nil == s.file {
			ok, err := s.open()
			if nil != err || !ok {
				return nil, err
			}
		}

		// checked before reading: once a newer segment exists nothing
		// more is written to this one
		frozen := s.queue.hasSegmentAfter(s.seq)

		line, err := s.reader.ReadBytes('\n')
		if nil == err {
			if 0 != len(s.partial) {
				line = append(s.partial, line...)
				s.partial = nil
			}
			txn, err := transactionrecord.ParseLine(line)
			if nil != err {
				s.queue.log.Warnf("scan: segment: %d  skip line: %q  error: %s", s.seq, line, err)
				continue
			}
			if txn.TxnId <= s.after {
				continue
			}
			s.after = txn.TxnId
			return txn, nil
		}
		if io.EOF != err {
			return nil, fault.NewIOError("scan segment", err)
		}

		s.partial = append(s.partial, line...)

		if !frozen {
			replaced, err := s.replaced()
			if nil != err {
				return nil, err
			}
			if !replaced {
				return nil, nil
			}
			// rewritten by pruning: read the new file from the start,
			// the id check skips what was already returned
			s.closeFile()
			s.nextSeq = s.seq
			continue
		}

		if 0 != len(s.partial) {
			s.queue.log.Warnf("scan: segment: %d  drop incomplete line: %q", s.seq, s.partial)
		}
		s.closeFile()
		s.nextSeq = s.seq + 1
	}
}

// open - the next available segment, false if there is none yet
func (s *fileScanner) open() (bool, error) {
	for {
		seg, ok := s.queue.nextSegment(s.nextSeq)
		if !ok {
			return false, nil
		}
		f, err := os.Open(s.queue.segmentPath(seg))
		if nil != err {
			if os.IsNotExist(err) {
				// pruned since the index was read
				s.nextSeq = seg.seq + 1
				continue
			}
			return false, fault.NewIOError("open segment", err)
		}
		s.file = f
		s.reader = bufio.NewReader(f)
		s.seq = seg.seq
		s.partial = nil
		return true, nil
	}
}

// replaced - the segment file name now refers to a different file
func (s *fileScanner) replaced() (bool, error) {
	seg, ok := s.queue.nextSegment(s.seq)
	if !ok || seg.seq != s.seq {
		return false, nil
	}
	current, err := os.Stat(s.queue.segmentPath(seg))
	if nil != err {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fault.NewIOError("stat segment", err)
	}
	open, err := s.file.Stat()
	if nil != err {
		return false, fault.NewIOError("stat segment", err)
	}
	return !os.SameFile(current, open), nil
}

func (s *fileScanner) closeFile() {
	if nil != s.file {
		s.file.Close()
	}
	s.file = nil
	s.reader = nil
	s.partial = nil
}

// Close - release the open segment
func (s *fileScanner) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.closeFile()
	return nil
}
