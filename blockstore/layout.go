// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"encoding/binary"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/transactionrecord"
)

// BlockSize - fixed size of every block in the file
const BlockSize = 1024

// block codes
const (
	codeUnused       = byte(0)
	codeStart        = byte(1)
	codeContinuation = byte(2)
)

// header sizes
const (
	startHeaderSize              = 1 + 4 + 4 + 8
	startLinkedHeaderSize        = startHeaderSize + 8
	continuationHeaderSize       = 1 + 4
	continuationLinkedHeaderSize = continuationHeaderSize + 8
)

// payload capacities
const (
	startCapacity              = BlockSize - startHeaderSize
	startLinkedCapacity        = BlockSize - startLinkedHeaderSize
	continuationCapacity       = BlockSize - continuationHeaderSize
	continuationLinkedCapacity = BlockSize - continuationLinkedHeaderSize
)

// MaximumRecordLength - limit on key length + value length
const MaximumRecordLength = 0x7fffffff

// identifies the file format
var fileTag = []byte("HSTORE\x00\x01")

// offset of the bucket count and the first index slot
const (
	bucketCountOffset = 8
	indexOffset       = bucketCountOffset + 4
)

// the decoded header of a start block plus the payload it holds
type startBlock struct {
	keyLength    uint32
	dataLength   uint32
	next         int64
	continuation int64
	payload      []byte
}

func (b *startBlock) total() uint64 {
	return uint64(b.keyLength) + uint64(b.dataLength)
}

// the decoded header of a continuation block plus its payload
type continuationBlock struct {
	remainder    uint32
	continuation int64
	payload      []byte
}

// bucketOf - bucket number of a key
func bucketOf(key []byte, bucketCount uint32) uint32 {
	return uint32(transactionrecord.Hash31(key)) % bucketCount
}

// prologueSize - bytes before the first block, rounded up to a block
func prologueSize(bucketCount uint32) int64 {
	n := int64(indexOffset) + 8*int64(bucketCount)
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

// blocksNeeded - number of blocks a payload of n bytes occupies
func blocksNeeded(n uint64) int {
	if n <= startCapacity {
		return 1
	}
	count := 1
	remaining := n - startLinkedCapacity
	for remaining > continuationCapacity {
		remaining -= continuationLinkedCapacity
		count += 1
	}
	return count + 1
}

// encodeRecord - split key ++ value over the given block offsets
//
// offsets must hold exactly blocksNeeded(len(key)+len(value)) entries,
// offsets[0] is the start block
func encodeRecord(key []byte, value []byte, next int64, offsets []int64) [][]byte {
	payload := make([]byte, 0, len(key)+len(value))
	payload = append(payload, key...)
	payload = append(payload, value...)

	images := make([][]byte, len(offsets))

	start := make([]byte, BlockSize)
	start[0] = codeStart
	binary.BigEndian.PutUint32(start[1:], uint32(len(key)))
	binary.BigEndian.PutUint32(start[5:], uint32(len(value)))
	binary.BigEndian.PutUint64(start[9:], uint64(next))

	if len(payload) <= startCapacity {
		copy(start[startHeaderSize:], payload)
		images[0] = start
		return images
	}

	binary.BigEndian.PutUint64(start[17:], uint64(offsets[1]))
	copy(start[startLinkedHeaderSize:], payload[:startLinkedCapacity])
	images[0] = start
	payload = payload[startLinkedCapacity:]

	for i := 1; i < len(offsets); i += 1 {
		b := make([]byte, BlockSize)
		b[0] = codeContinuation
		binary.BigEndian.PutUint32(b[1:], uint32(len(payload)))
		if len(payload) <= continuationCapacity {
			copy(b[continuationHeaderSize:], payload)
			payload = nil
		} else {
			binary.BigEndian.PutUint64(b[5:], uint64(offsets[i+1]))
			copy(b[continuationLinkedHeaderSize:], payload[:continuationLinkedCapacity])
			payload = payload[continuationLinkedCapacity:]
		}
		images[i] = b
	}
	return images
}

// decodeStart - parse a start block, the payload slice aliases b
func decodeStart(b []byte) (*startBlock, error) {
	if BlockSize != len(b) || codeStart != b[0] {
		return nil, fault.ErrDataCorruption
	}
	h := &startBlock{
		keyLength:  binary.BigEndian.Uint32(b[1:]),
		dataLength: binary.BigEndian.Uint32(b[5:]),
		next:       int64(binary.BigEndian.Uint64(b[9:])),
	}
	if h.keyLength > MaximumRecordLength || h.dataLength > MaximumRecordLength || h.total() > MaximumRecordLength {
		return nil, fault.ErrInvalidRecordLength
	}

	n := h.total()
	if n <= startCapacity {
		h.payload = b[startHeaderSize : startHeaderSize+n]
		return h, nil
	}
	h.continuation = int64(binary.BigEndian.Uint64(b[17:]))
	if 0 == h.continuation {
		return nil, fault.ErrDataCorruption
	}
	h.payload = b[startLinkedHeaderSize:]
	return h, nil
}

// decodeContinuation - parse a continuation block that must hold the
// final "remaining" bytes of a record
func decodeContinuation(b []byte, remaining uint64) (*continuationBlock, error) {
	if BlockSize != len(b) || codeContinuation != b[0] {
		return nil, fault.ErrDataCorruption
	}
	c := &continuationBlock{
		remainder: binary.BigEndian.Uint32(b[1:]),
	}
	if uint64(c.remainder) != remaining {
		return nil, fault.ErrInvalidRecordLength
	}
	if remaining <= continuationCapacity {
		c.payload = b[continuationHeaderSize : continuationHeaderSize+remaining]
		return c, nil
	}
	c.continuation = int64(binary.BigEndian.Uint64(b[5:]))
	if 0 == c.continuation {
		return nil, fault.ErrDataCorruption
	}
	c.payload = b[continuationLinkedHeaderSize:]
	return c, nil
}

// setNext - copy of a start block with a different chain pointer
func setNext(b []byte, next int64) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	binary.BigEndian.PutUint64(c[9:], uint64(next))
	return c
}
