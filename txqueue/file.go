// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

// FileQueue - transactions as text lines in daily segment files
//
// directory layout:
//
//   queue.lock          pid of the writing process
//   segments.idx        day|firstTxnId|seq per segment
//   YYYYMMDD-<seq>.txq  one line per transaction
type FileQueue struct {
	sync.Mutex

	log       *logger.L
	directory string
	options   Options
	lockFile  string // empty when read only

	segments  []segment
	current   *os.File // open on the last segment for appending
	last      int64
	firstDate time.Time
	closed    bool

	listeners listenerSet
}

// NewFileQueue - open or create a file queue directory
//
// unless read only the directory is locked until Shutdown; a lock held
// by another process is fatal
func NewFileQueue(directory string, options Options) (*FileQueue, error) {
	log := logger.New("txqueue-file")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}

	q := &FileQueue{
		log:       log,
		directory: directory,
		options:   options.withDefaults(),
		listeners: listenerSet{log: log},
	}

	if !q.options.ReadOnly {
		if err := os.MkdirAll(directory, 0700); nil != err {
			return nil, fault.NewIOError("create queue directory", err)
		}
		lockFile, err := lockDirectory(directory)
		if nil != err {
			log.Criticalf("%s: lock error: %s", directory, err)
			return nil, err
		}
		q.lockFile = lockFile
	}

	ok := false
	defer func() {
		if !ok && "" != q.lockFile {
			os.Remove(q.lockFile)
		}
	}()

	segments, err := readIndex(log, directory)
	if nil != err {
		return nil, err
	}
	q.segments = segments

	// a crash can leave the newest segment ending part way through a line
	if !q.options.ReadOnly && 0 != len(segments) {
		newest := segments[len(segments)-1]
		n, err := trimTornTail(q.segmentPath(newest))
		if nil != err {
			return nil, err
		}
		if 0 != n {
			log.Warnf("%s: %s: removed %d bytes of an incomplete line", directory, newest.fileName(), n)
		}
	}

	// the newest segment may be empty if the process stopped between
	// creating it and writing its first line
	for i := len(segments) - 1; i >= 0 && 0 == q.last; i -= 1 {
		txns, err := q.readSegment(segments[i])
		if nil != err {
			return nil, err
		}
		if 0 != len(txns) {
			q.last = txns[len(txns)-1].TxnId
		}
	}

	if err := q.loadFirstDate(); nil != err {
		return nil, err
	}

	log.Infof("open: %s  segments: %d  last txn: %d  read only: %v", directory, len(segments), q.last, q.options.ReadOnly)
	ok = true
	return q, nil
}

// Append - write one line to today's segment and sync it
func (q *FileQueue) Append(txn *transactionrecord.Transaction) error {
	q.Lock()

	if err := q.appendable(); nil != err {
		q.Unlock()
		return err
	}
	if err := checkAppend(txn, q.last); nil != err {
		q.Unlock()
		return err
	}

	day := q.options.Clock().UTC().Format(dayFormat)
	if err := q.selectSegment(day, txn.TxnId); nil != err {
		q.Unlock()
		return err
	}

	if _, err := q.current.Write(txn.FormatLine()); nil != err {
		q.abandonCurrent()
		q.Unlock()
		return fault.NewIOError("append transaction", err)
	}
	if err := q.current.Sync(); nil != err {
		q.abandonCurrent()
		q.Unlock()
		return fault.NewIOError("sync transaction", err)
	}

	q.last = txn.TxnId
	if q.firstDate.IsZero() {
		q.firstDate = txn.Date
	}

	q.listeners.notifying.Lock()
	q.Unlock()
	q.listeners.notify(txn)
	return nil
}

func (q *FileQueue) appendable() error {
	if q.closed {
		return fault.ErrQueueShutdown
	}
	if q.options.ReadOnly {
		return fault.ErrQueueReadOnly
	}
	return nil
}

// selectSegment - make sure current is open on the segment for day
//
// a new segment starts only when the day moves forward
func (q *FileQueue) selectSegment(day string, txnId int64) error {
	n := len(q.segments)
	if n > 0 && day <= q.segments[n-1].day {
		if nil != q.current {
			return nil
		}
		return q.openCurrent(q.segments[n-1])
	}

	seq := 1
	if n > 0 {
		seq = q.segments[n-1].seq + 1
	}
	s := segment{
		day:   day,
		first: txnId,
		seq:   seq,
	}
	if err := appendIndex(q.directory, s); nil != err {
		return err
	}
	q.segments = append(q.segments, s)
	q.log.Infof("%s: new segment: %s", q.directory, s.fileName())
	return q.openCurrent(s)
}

// openCurrent - open a segment for appending
//
// a segment not ending in a newline gets one first so the next line
// cannot join an incomplete one
func (q *FileQueue) openCurrent(s segment) error {
	q.abandonCurrent()

	f, err := os.OpenFile(q.segmentPath(s), os.O_RDWR|os.O_APPEND|os.O_CREATE, 0600)
	if nil != err {
		return fault.NewIOError("open segment", err)
	}

	terminated, err := endsInNewline(f)
	if nil != err {
		f.Close()
		return err
	}
	if !terminated {
		q.log.Warnf("%s: %s: terminate incomplete line", q.directory, s.fileName())
		if _, err := f.Write([]byte{'\n'}); nil != err {
			f.Close()
			return fault.NewIOError("terminate segment", err)
		}
	}

	q.current = f
	return nil
}

// abandonCurrent - close the append handle, the next Append reopens it
func (q *FileQueue) abandonCurrent() {
	if nil != q.current {
		q.current.Close()
		q.current = nil
	}
}

// endsInNewline - true for an empty file or one whose last byte is '\n'
func endsInNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if nil != err {
		return false, fault.NewIOError("stat segment", err)
	}
	if 0 == info.Size() {
		return true, nil
	}
	b := []byte{0}
	if _, err := f.ReadAt(b, info.Size()-1); nil != err {
		return false, fault.NewIOError("read segment", err)
	}
	return '\n' == b[0], nil
}

// trimTornTail - truncate a segment after its last newline, returning
// the number of bytes removed
func trimTornTail(fileName string) (int64, error) {
	f, err := os.OpenFile(fileName, os.O_RDWR, 0600)
	if nil != err {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fault.NewIOError("open segment", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if nil != err {
		return 0, fault.NewIOError("stat segment", err)
	}
	size := info.Size()

	buffer := make([]byte, 4096)
	end := size
	for end > 0 {
		start := end - int64(len(buffer))
		if start < 0 {
			start = 0
		}
		chunk := buffer[:end-start]
		if _, err := f.ReadAt(chunk, start); nil != err {
			return 0, fault.NewIOError("read segment", err)
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			end = start + int64(i) + 1
			break
		}
		end = start
	}

	if end == size {
		return 0, nil
	}
	if err := f.Truncate(end); nil != err {
		return 0, fault.NewIOError("truncate segment", err)
	}
	if err := f.Sync(); nil != err {
		return 0, fault.NewIOError("sync segment", err)
	}
	return size - end, nil
}

func (q *FileQueue) segmentPath(s segment) string {
	return filepath.Join(q.directory, s.fileName())
}

// readSegment - every readable transaction of one segment
func (q *FileQueue) readSegment(s segment) ([]*transactionrecord.Transaction, error) {
	f, err := os.Open(q.segmentPath(s))
	if nil != err {
		if os.IsNotExist(err) {
			q.log.Warnf("%s: missing segment: %s", q.directory, s.fileName())
			return nil, nil
		}
		return nil, fault.NewIOError("open segment", err)
	}
	defer f.Close()

	txns := []*transactionrecord.Transaction(nil)
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if io.EOF == err {
			break
		}
		if nil != err {
			return nil, fault.NewIOError("read segment", err)
		}
		txn, err := transactionrecord.ParseLine(line)
		if nil != err {
			q.log.Warnf("%s: %s: skip line: %q  error: %s", q.directory, s.fileName(), line, err)
			continue
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// loadFirstDate - date of the oldest readable transaction
func (q *FileQueue) loadFirstDate() error {
	q.firstDate = time.Time{}
	for _, s := range q.segments {
		txns, err := q.readSegment(s)
		if nil != err {
			return err
		}
		if 0 != len(txns) {
			q.firstDate = txns[0].Date
			return nil
		}
	}
	return nil
}

// LastTxnId - id of the most recent transaction, zero if empty
func (q *FileQueue) LastTxnId() int64 {
	q.Lock()
	defer q.Unlock()
	return q.last
}

// FirstRecordedDate - date of the oldest transaction, zero if empty
func (q *FileQueue) FirstRecordedDate() time.Time {
	q.Lock()
	defer q.Unlock()
	return q.firstDate
}

// AddListener - register for notifications
func (q *FileQueue) AddListener(listener Listener) {
	q.listeners.add(listener)
}

// RemoveListener - stop notifications
func (q *FileQueue) RemoveListener(listener Listener) {
	q.listeners.remove(listener)
}

// Shutdown - close the segment and release the directory lock
func (q *FileQueue) Shutdown() error {
	q.Lock()
	defer q.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true

	var err error
	if nil != q.current {
		err = fault.NewIOError("close segment", q.current.Close())
		q.current = nil
	}
	if "" != q.lockFile {
		if e := os.Remove(q.lockFile); nil == err {
			err = fault.NewIOError("remove lock file", e)
		}
	}
	q.log.Infof("shutdown: %s", q.directory)
	return err
}

// Destroy - shut down and delete the whole directory
func (q *FileQueue) Destroy() error {
	if q.options.ReadOnly {
		return fault.ErrQueueReadOnly
	}
	if err := q.Shutdown(); nil != err {
		return err
	}
	q.log.Warnf("destroy: %s", q.directory)
	return fault.NewIOError("remove queue directory", os.RemoveAll(q.directory))
}

// segment lookup for scanners

// nextSegment - first segment with seq >= minimum
func (q *FileQueue) nextSegment(minimum int) (segment, bool) {
	q.Lock()
	defer q.Unlock()

	for _, s := range q.segments {
		if s.seq >= minimum {
			return s, true
		}
	}
	return segment{}, false
}

// hasSegmentAfter - a newer segment exists so seq will never grow
func (q *FileQueue) hasSegmentAfter(seq int) bool {
	q.Lock()
	defer q.Unlock()

	n := len(q.segments)
	return n > 0 && q.segments[n-1].seq > seq
}
