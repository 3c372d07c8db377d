// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/fault"
)

// DefaultBucketCount - number of buckets for a newly created file
const DefaultBucketCount = 65536

// number of blocks read at a time while rebuilding the free list
const freeScanBlocks = 256

// Options - settings for Open
type Options struct {
	BucketCount uint32 // only used when creating a file
	CacheBlocks int    // zero selects the default, negative disables
	ReadOnly    bool
}

// Store - a hashed block file
type Store struct {
	sync.Mutex

	log         *logger.L
	file        *os.File
	name        string
	readOnly    bool
	closed      bool
	bucketCount uint32
	dataStart   int64
	fileEnd     int64
	index       []int64
	cache       *blockCache
	free        freeList
}

// one record's position in its bucket chain
type location struct {
	bucket   uint32
	previous int64 // zero: the bucket slot points at the record
	offset   int64
	start    *startBlock
}

// Open - open or create a store file
//
// a missing file is created unless read only access was requested
func Open(fileName string, options Options) (*Store, error) {

	log := logger.New("blockstore")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}

	bucketCount := options.BucketCount
	if 0 == bucketCount {
		bucketCount = DefaultBucketCount
	}
	cacheBlocks := options.CacheBlocks
	if 0 == cacheBlocks {
		cacheBlocks = DefaultCacheBlocks
	}

	var file *os.File
	var err error
	if options.ReadOnly {
		file, err = os.Open(fileName)
	} else {
		file, err = os.OpenFile(fileName, os.O_RDWR|os.O_CREATE, 0600)
	}
	if nil != err {
		return nil, fault.NewIOError("open store", err)
	}

	ok := false
	defer func() {
		if !ok {
			file.Close()
		}
	}()

	info, err := file.Stat()
	if nil != err {
		return nil, fault.NewIOError("stat store", err)
	}

	if 0 == info.Size() {
		if options.ReadOnly {
			return nil, fault.ErrInvalidFileTag
		}
		log.Infof("create: %q  buckets: %d", fileName, bucketCount)
		if err := writePrologue(file, bucketCount); nil != err {
			return nil, err
		}
	}

	s := &Store{
		log:      log,
		file:     file,
		name:     fileName,
		readOnly: options.ReadOnly,
		cache:    newBlockCache(cacheBlocks),
	}

	if err := s.readPrologue(); nil != err {
		return nil, err
	}

	info, err = file.Stat()
	if nil != err {
		return nil, fault.NewIOError("stat store", err)
	}
	s.fileEnd = s.dataStart
	if info.Size() > s.dataStart {
		blocks := (info.Size() - s.dataStart) / BlockSize
		if 0 != (info.Size()-s.dataStart)%BlockSize {
			log.Warnf("%q: ignoring partial block at end of file", fileName)
		}
		s.fileEnd = s.dataStart + blocks*BlockSize
	}

	if !s.readOnly {
		if err := s.loadFreeList(); nil != err {
			return nil, err
		}
	}

	log.Infof("open: %q  buckets: %d  blocks: %d  free: %d  read only: %v",
		fileName, s.bucketCount, s.totalBlocks(), s.free.len(), s.readOnly)

	ok = true
	return s, nil
}

// write the tag, bucket count and an empty index
func writePrologue(file *os.File, bucketCount uint32) error {
	buffer := make([]byte, indexOffset+8*int(bucketCount))
	copy(buffer, fileTag)
	binary.BigEndian.PutUint32(buffer[bucketCountOffset:], bucketCount)

	if _, err := file.WriteAt(buffer, 0); nil != err {
		return fault.NewIOError("write prologue", err)
	}
	return fault.NewIOError("sync prologue", file.Sync())
}

func (s *Store) readPrologue() error {
	header := make([]byte, indexOffset)
	if _, err := s.file.ReadAt(header, 0); nil != err {
		if io.EOF == err {
			return fault.ErrInvalidFileTag
		}
		return fault.NewIOError("read prologue", err)
	}
	if !bytes.Equal(fileTag, header[:len(fileTag)]) {
		return fault.ErrInvalidFileTag
	}

	s.bucketCount = binary.BigEndian.Uint32(header[bucketCountOffset:])
	if 0 == s.bucketCount || s.bucketCount > 0x7fffffff {
		return fault.ErrInvalidBucketCount
	}
	s.dataStart = prologueSize(s.bucketCount)

	raw := make([]byte, 8*int(s.bucketCount))
	if _, err := s.file.ReadAt(raw, indexOffset); nil != err {
		if io.EOF == err {
			return fault.ErrDataCorruption
		}
		return fault.NewIOError("read index", err)
	}
	s.index = make([]int64, s.bucketCount)
	for i := range s.index {
		s.index[i] = int64(binary.BigEndian.Uint64(raw[8*i:]))
	}
	return nil
}

// loadFreeList - stack the unused blocks
//
// blocks that no chain reaches but are not marked unused are left by a
// Set or Delete that did not finish; they are marked unused and stacked
// too.  Nothing is reclaimed while any chain is damaged
func (s *Store) loadFreeList() error {
	s.free.reset()
	free, err := s.unusedBlocks()
	if nil != err {
		return err
	}

	walk := s.walkChains()
	if walk.damaged {
		s.log.Warnf("%q: damaged chains: %d problems, unreachable blocks kept", s.name, len(walk.problems))
	} else {
		unused := make(map[int64]struct{}, len(free))
		for _, offset := range free {
			unused[offset] = struct{}{}
		}
		reclaimed := 0
		for offset := s.dataStart; offset < s.fileEnd; offset += BlockSize {
			if _, ok := unused[offset]; ok {
				continue
			}
			if _, ok := walk.owner[offset]; ok {
				continue
			}
			if err := s.markUnused(offset); nil != err {
				return err
			}
			free = append(free, offset)
			reclaimed += 1
		}
		if 0 != reclaimed {
			s.log.Warnf("%q: reclaimed: %d unreachable blocks", s.name, reclaimed)
			if err := s.file.Sync(); nil != err {
				return fault.NewIOError("sync store", err)
			}
		}
	}

	for _, offset := range free {
		s.free.push(offset)
	}
	return nil
}

// Close - flush and release the file, calling again is harmless
func (s *Store) Close() error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.cache.flush()

	var err error
	if !s.readOnly {
		err = fault.NewIOError("sync store", s.file.Sync())
	}
	if e := s.file.Close(); nil == err {
		err = fault.NewIOError("close store", e)
	}
	s.log.Infof("closed: %q", s.name)
	return err
}

// Get - fetch the value for a key
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return nil, false, fault.ErrStoreClosed
	}

	loc, err := s.find(key)
	if nil != err || nil == loc {
		return nil, false, err
	}
	payload, _, err := s.readPayload(loc.offset, loc.start)
	if nil != err {
		return nil, false, err
	}
	return payload[loc.start.keyLength:], true, nil
}

// Has - check if a key exists
func (s *Store) Has(key []byte) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return false, fault.ErrStoreClosed
	}
	loc, err := s.find(key)
	return nil != loc, err
}

// Set - store a value, replacing any previous one in place
//
// an existing record keeps its start block and its position in the
// chain; a new record is pushed on the front of its bucket's chain
func (s *Store) Set(key []byte, value []byte) error {
	if 0 == len(key) {
		return fault.ErrKeyLength
	}
	if uint64(len(key))+uint64(len(value)) > MaximumRecordLength {
		return fault.ErrRecordTooLarge
	}

	s.Lock()
	defer s.Unlock()

	if err := s.writable(); nil != err {
		return err
	}

	loc, err := s.find(key)
	if nil != err {
		return err
	}

	needed := blocksNeeded(uint64(len(key)) + uint64(len(value)))
	offsets := make([]int64, 0, needed)
	surplus := []int64(nil)
	next := int64(0)
	bucket := bucketOf(key, s.bucketCount)

	if nil != loc {
		_, held, err := s.readPayload(loc.offset, loc.start)
		if nil != err {
			return err
		}
		if len(held) > needed {
			surplus = held[needed:]
			held = held[:needed]
		}
		offsets = append(offsets, held...)
		next = loc.start.next
	} else {
		next = s.index[bucket]
	}
	end := s.fileEnd
	fresh := []int64(nil)
	for len(offsets) < needed {
		offset := s.allocate()
		fresh = append(fresh, offset)
		offsets = append(offsets, offset)
	}

	images := encodeRecord(key, value, next, offsets)

	// continuation blocks first so the start block never points at
	// unwritten data
	for i := len(images) - 1; i >= 0; i -= 1 {
		if err := s.writeBlock(offsets[i], images[i]); nil != err {
			s.abandon(fresh, end)
			return err
		}
	}

	if nil == loc {
		if err := s.writeSlot(bucket, offsets[0]); nil != err {
			s.abandon(fresh, end)
			return err
		}
	}

	for _, offset := range surplus {
		if err := s.release(offset); nil != err {
			return err
		}
	}
	return nil
}

// Delete - remove a key, returns false if it did not exist
func (s *Store) Delete(key []byte) (bool, error) {
	s.Lock()
	defer s.Unlock()

	if err := s.writable(); nil != err {
		return false, err
	}

	loc, err := s.find(key)
	if nil != err || nil == loc {
		return false, err
	}

	_, held, err := s.readPayload(loc.offset, loc.start)
	if nil != err {
		return false, err
	}

	if 0 == loc.previous {
		err = s.writeSlot(loc.bucket, loc.start.next)
	} else {
		err = s.relink(loc.previous, loc.start.next)
	}
	if nil != err {
		return false, err
	}

	for _, offset := range held {
		if err := s.release(offset); nil != err {
			return true, err
		}
	}
	return true, nil
}

// DeleteAll - reset to an empty index with no blocks
func (s *Store) DeleteAll() error {
	s.Lock()
	defer s.Unlock()

	if err := s.writable(); nil != err {
		return err
	}

	s.log.Warnf("delete all: %q", s.name)

	// cut back to the header then extend with zeros for an empty index
	if err := s.file.Truncate(indexOffset); nil != err {
		return fault.NewIOError("truncate store", err)
	}
	if err := s.file.Truncate(s.dataStart); nil != err {
		return fault.NewIOError("clear index", err)
	}
	if err := s.file.Sync(); nil != err {
		return fault.NewIOError("sync store", err)
	}

	for i := range s.index {
		s.index[i] = 0
	}
	s.fileEnd = s.dataStart
	s.free.reset()
	s.cache.flush()
	return nil
}

func (s *Store) writable() error {
	if s.closed {
		return fault.ErrStoreClosed
	}
	if s.readOnly {
		return fault.ErrStorageReadOnly
	}
	return nil
}

// find - walk the key's bucket chain
//
// returns nil location if the key is not present
func (s *Store) find(key []byte) (*location, error) {
	bucket := bucketOf(key, s.bucketCount)

	previous := int64(0)
	offset := s.index[bucket]
	limit := s.totalBlocks()

	for steps := int64(0); 0 != offset; steps += 1 {
		if steps > limit {
			s.log.Errorf("%q: bucket: %d chain does not terminate", s.name, bucket)
			return nil, fault.ErrDataCorruption
		}

		start, err := s.readStart(offset)
		if nil != err {
			return nil, err
		}

		if int(start.keyLength) == len(key) {
			k := start.payload
			if uint64(len(k)) < uint64(start.keyLength) {
				payload, _, err := s.readPayload(offset, start)
				if nil != err {
					return nil, err
				}
				k = payload
			}
			if bytes.Equal(key, k[:start.keyLength]) {
				return &location{
					bucket:   bucket,
					previous: previous,
					offset:   offset,
					start:    start,
				}, nil
			}
		}

		previous = offset
		offset = start.next
	}
	return nil, nil
}

func (s *Store) readStart(offset int64) (*startBlock, error) {
	image, err := s.readBlock(offset)
	if nil != err {
		return nil, err
	}
	start, err := decodeStart(image)
	if nil != err {
		s.log.Errorf("%q: start block at: 0x%x  error: %s", s.name, offset, err)
		return nil, err
	}
	return start, nil
}

// readPayload - key ++ value of a record and the offsets of all its blocks
func (s *Store) readPayload(offset int64, start *startBlock) ([]byte, []int64, error) {
	total := start.total()
	payload := make([]byte, 0, total)
	payload = append(payload, start.payload...)
	held := []int64{offset}

	next := start.continuation
	for 0 != next {
		remaining := total - uint64(len(payload))
		image, err := s.readBlock(next)
		if nil != err {
			return nil, nil, err
		}
		c, err := decodeContinuation(image, remaining)
		if nil != err {
			s.log.Errorf("%q: continuation block at: 0x%x  error: %s", s.name, next, err)
			return nil, nil, err
		}
		held = append(held, next)
		payload = append(payload, c.payload...)
		next = c.continuation
	}
	if uint64(len(payload)) != total {
		return nil, nil, fault.ErrInvalidRecordLength
	}
	return payload, held, nil
}

// readBlock - a validated block image, served from cache when possible
func (s *Store) readBlock(offset int64) ([]byte, error) {
	if !s.validOffset(offset) {
		s.log.Errorf("%q: invalid block offset: 0x%x", s.name, offset)
		return nil, fault.ErrInvalidBlockOffset
	}
	if image, ok := s.cache.get(offset); ok {
		return image, nil
	}
	image := make([]byte, BlockSize)
	if _, err := s.file.ReadAt(image, offset); nil != err {
		if io.EOF == err {
			return nil, fault.ErrDataCorruption
		}
		return nil, fault.NewIOError("read block", err)
	}
	s.cache.put(offset, image)
	return image, nil
}

func (s *Store) writeBlock(offset int64, image []byte) error {
	if _, err := s.file.WriteAt(image, offset); nil != err {
		s.cache.evict(offset)
		return fault.NewIOError("write block", err)
	}
	s.cache.put(offset, image)
	return nil
}

// relink - point a start block's chain pointer somewhere else
func (s *Store) relink(offset int64, next int64) error {
	image, err := s.readBlock(offset)
	if nil != err {
		return err
	}
	return s.writeBlock(offset, setNext(image, next))
}

func (s *Store) writeSlot(bucket uint32, offset int64) error {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(offset))
	if _, err := s.file.WriteAt(b, indexOffset+8*int64(bucket)); nil != err {
		return fault.NewIOError("write index", err)
	}
	s.index[bucket] = offset
	return nil
}

// allocate - reuse the most recently freed block or grow the file
func (s *Store) allocate() int64 {
	if offset, ok := s.free.pop(); ok {
		return offset
	}
	offset := s.fileEnd
	s.fileEnd += BlockSize
	return offset
}

// release - mark a block unused and make it available again
func (s *Store) release(offset int64) error {
	if err := s.markUnused(offset); nil != err {
		return err
	}
	s.free.push(offset)
	return nil
}

func (s *Store) markUnused(offset int64) error {
	s.cache.evict(offset)
	if _, err := s.file.WriteAt([]byte{codeUnused}, offset); nil != err {
		return fault.NewIOError("release block", err)
	}
	return nil
}

// abandon - return the blocks allocated by a failed Set
//
// reused blocks go back on the free list, blocks beyond the old end of
// the file are cut off
func (s *Store) abandon(fresh []int64, end int64) {
	for i := len(fresh) - 1; i >= 0; i -= 1 {
		offset := fresh[i]
		s.cache.evict(offset)
		if offset >= end {
			continue
		}
		if err := s.markUnused(offset); nil != err {
			// unreachable, reclaimed at the next open
			s.log.Errorf("%q: abandon block: 0x%x  error: %s", s.name, offset, err)
		}
		s.free.push(offset)
	}
	if s.fileEnd > end {
		s.fileEnd = end
		if err := s.file.Truncate(end); nil != err {
			s.log.Errorf("%q: truncate to: 0x%x  error: %s", s.name, end, err)
		}
	}
}

func (s *Store) validOffset(offset int64) bool {
	return offset >= s.dataStart &&
		0 == (offset-s.dataStart)%BlockSize &&
		offset+BlockSize <= s.fileEnd
}

func (s *Store) totalBlocks() int64 {
	return (s.fileEnd - s.dataStart) / BlockSize
}
