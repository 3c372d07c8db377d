// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/fault"
)

// names inside a file queue directory
const (
	indexFileName   = "segments.idx"
	lockFileName    = "queue.lock"
	segmentSuffix   = ".txq"
	temporarySuffix = ".tmp"
	dayFormat       = "20060102"
)

// segment - one dated file of transaction lines
type segment struct {
	day   string // YYYYMMDD
	first int64  // first transaction id written to the file
	seq   int
}

func (s segment) fileName() string {
	return fmt.Sprintf("%s-%d%s", s.day, s.seq, segmentSuffix)
}

// index line: day|first|seq
func (s segment) line() []byte {
	return []byte(fmt.Sprintf("%s|%d|%d\n", s.day, s.first, s.seq))
}

func parseSegment(line []byte) (segment, error) {
	fields := bytes.Split(line, []byte{'|'})
	if 3 != len(fields) || len(dayFormat) != len(fields[0]) {
		return segment{}, fault.ErrDataCorruption
	}
	first, err := strconv.ParseInt(string(fields[1]), 10, 64)
	if nil != err || first <= 0 {
		return segment{}, fault.ErrDataCorruption
	}
	seq, err := strconv.Atoi(string(fields[2]))
	if nil != err || seq <= 0 {
		return segment{}, fault.ErrDataCorruption
	}
	return segment{
		day:   string(fields[0]),
		first: first,
		seq:   seq,
	}, nil
}

// readIndex - segments in the order they were created
//
// a final line without its newline is an interrupted append and is
// ignored
func readIndex(log *logger.L, directory string) ([]segment, error) {
	f, err := os.Open(filepath.Join(directory, indexFileName))
	if nil != err {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fault.NewIOError("open segment index", err)
	}
	defer f.Close()

	segments := []segment(nil)
	reader := bufio.NewReader(f)
	for n := 1; ; n += 1 {
		line, err := reader.ReadBytes('\n')
		if io.EOF == err {
			if 0 != len(line) {
				log.Warnf("%s: ignoring incomplete index line: %d", directory, n)
			}
			break
		}
		if nil != err {
			return nil, fault.NewIOError("read segment index", err)
		}

		s, err := parseSegment(bytes.TrimRight(line, "\n"))
		if nil != err {
			log.Errorf("%s: index line: %d  error: %s", directory, n, err)
			return nil, err
		}
		if 0 != len(segments) && s.seq <= segments[len(segments)-1].seq {
			log.Errorf("%s: index line: %d  sequence: %d out of order", directory, n, s.seq)
			return nil, fault.ErrDataCorruption
		}
		segments = append(segments, s)
	}
	return segments, nil
}

// appendIndex - record a new segment
func appendIndex(directory string, s segment) error {
	f, err := os.OpenFile(filepath.Join(directory, indexFileName), os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
	if nil != err {
		return fault.NewIOError("open segment index", err)
	}
	defer f.Close()

	if _, err := f.Write(s.line()); nil != err {
		return fault.NewIOError("append segment index", err)
	}
	return fault.NewIOError("sync segment index", f.Sync())
}

// writeIndex - replace the whole index
func writeIndex(directory string, segments []segment) error {
	b := make([]byte, 0, 32*len(segments))
	for _, s := range segments {
		b = append(b, s.line()...)
	}
	return replaceFile(filepath.Join(directory, indexFileName), b)
}

// replaceFile - write a temporary file and rename it over the original
func replaceFile(fileName string, data []byte) error {
	temporary := fileName + temporarySuffix
	f, err := os.OpenFile(temporary, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if nil != err {
		return fault.NewIOError("create temporary", err)
	}
	_, err = f.Write(data)
	if nil == err {
		err = f.Sync()
	}
	if e := f.Close(); nil == err {
		err = e
	}
	if nil != err {
		os.Remove(temporary)
		return fault.NewIOError("write temporary", err)
	}
	return fault.NewIOError("rename temporary", os.Rename(temporary, fileName))
}

// lockDirectory - create the lock file holding this process's id
func lockDirectory(directory string) (string, error) {
	fileName := filepath.Join(directory, lockFileName)
	lockFile, err := os.OpenFile(fileName, os.O_WRONLY|os.O_EXCL|os.O_CREATE, os.ModeExclusive|0600)
	if nil != err {
		if os.IsExist(err) {
			return "", fault.ErrQueueLocked
		}
		return "", fault.NewIOError("create lock file", err)
	}
	fmt.Fprintf(lockFile, "%d\n", os.Getpid())
	lockFile.Close()
	return fileName, nil
}
