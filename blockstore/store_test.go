// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
	"math/rand"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/handlestore/fault"
)

type pair struct {
	key   string
	value string
}

func scanAll(t *testing.T, s *Store) []pair {
	result := []pair(nil)
	err := s.Scan(func(key []byte, value []byte) error {
		result = append(result, pair{string(key), string(value)})
		return nil
	})
	require.NoError(t, err, "scan")
	return result
}

func requireCheck(t *testing.T, s *Store) *Report {
	r, err := s.Check()
	require.NoError(t, err, "check")
	assert.Truef(t, r.OK(), "integrity problems: %v", r.Problems)
	return r
}

func TestSetGet(t *testing.T) {
	s, _ := openTestStore(t, 16)
	defer s.Close()

	err := s.Set([]byte("0.NA/TEST"), []byte("a value"))
	require.NoError(t, err, "set")

	value, found, err := s.Get([]byte("0.NA/TEST"))
	assert.NoError(t, err, "get")
	assert.True(t, found, "found")
	assert.Equal(t, []byte("a value"), value, "value")

	_, found, err = s.Get([]byte("0.NA/MISSING"))
	assert.NoError(t, err, "get missing")
	assert.False(t, found, "missing key")

	ok, err := s.Has([]byte("0.NA/TEST"))
	assert.NoError(t, err, "has")
	assert.True(t, ok, "has key")
}

func TestEmptyKeyRejected(t *testing.T) {
	s, _ := openTestStore(t, 16)
	defer s.Close()

	err := s.Set(nil, []byte("x"))
	assert.Equal(t, fault.ErrKeyLength, err, "empty key")
}

func TestCollidingDelete(t *testing.T) {
	s, _ := openTestStore(t, 1)
	defer s.Close()

	require.NoError(t, s.Set([]byte("A/1"), []byte("hello")), "set A/1")
	require.NoError(t, s.Set([]byte("A/2"), []byte("world")), "set A/2")

	found, err := s.Delete([]byte("A/1"))
	require.NoError(t, err, "delete")
	assert.True(t, found, "deleted")

	_, found, err = s.Get([]byte("A/1"))
	assert.NoError(t, err, "get A/1")
	assert.False(t, found, "A/1 gone")

	value, found, err := s.Get([]byte("A/2"))
	assert.NoError(t, err, "get A/2")
	assert.True(t, found, "A/2 present")
	assert.Equal(t, []byte("world"), value, "A/2 value")

	assert.Equal(t, []pair{{"A/2", "world"}}, scanAll(t, s), "scan")
	requireCheck(t, s)
}

func TestDeleteHeadOfChain(t *testing.T) {
	s, _ := openTestStore(t, 1)
	defer s.Close()

	for i := 0; i < 3; i += 1 {
		require.NoError(t, s.Set([]byte(fmt.Sprintf("K/%d", i)), []byte{byte(i)}), "set")
	}

	// K/2 was prepended last so it heads the chain
	found, err := s.Delete([]byte("K/2"))
	require.NoError(t, err, "delete")
	assert.True(t, found, "found")

	for i := 0; i < 2; i += 1 {
		value, found, err := s.Get([]byte(fmt.Sprintf("K/%d", i)))
		assert.NoError(t, err, "get")
		assert.True(t, found, "found")
		assert.Equal(t, []byte{byte(i)}, value, "value")
	}
	requireCheck(t, s)
}

func TestDeleteThenSetAgain(t *testing.T) {
	s, _ := openTestStore(t, 4)
	defer s.Close()

	key := []byte("X/1")
	require.NoError(t, s.Set(key, []byte("first")), "set")
	_, err := s.Delete(key)
	require.NoError(t, err, "delete")
	require.NoError(t, s.Set(key, []byte("second")), "set again")

	value, found, err := s.Get(key)
	assert.NoError(t, err, "get")
	assert.True(t, found, "found")
	assert.Equal(t, []byte("second"), value, "value")

	assert.Equal(t, int64(1), s.Stats().TotalBlocks, "freed block reused")
	requireCheck(t, s)
}

func TestDeleteMissingKey(t *testing.T) {
	s, _ := openTestStore(t, 4)
	defer s.Close()

	require.NoError(t, s.Set([]byte("A/1"), []byte("v")), "set")
	_, err := s.Delete([]byte("A/1"))
	require.NoError(t, err, "delete")
	before := s.Stats()

	found, err := s.Delete([]byte("A/1"))
	assert.NoError(t, err, "second delete")
	assert.False(t, found, "not found")
	assert.Equal(t, before, s.Stats(), "nothing changed")
}

func TestOverwriteInPlace(t *testing.T) {
	s, _ := openTestStore(t, 1)
	defer s.Close()

	require.NoError(t, s.Set([]byte("A/1"), []byte("small")), "set A/1")
	require.NoError(t, s.Set([]byte("A/2"), []byte("other")), "set A/2")

	s.Lock()
	head := s.index[0]
	loc, err := s.find([]byte("A/1"))
	s.Unlock()
	require.NoError(t, err, "find")
	require.NotNil(t, loc, "located")
	original := loc.offset

	big := bytes.Repeat([]byte{'x'}, 3000)
	require.NoError(t, s.Set([]byte("A/1"), big), "grow")

	s.Lock()
	loc, err = s.find([]byte("A/1"))
	assert.Equal(t, head, s.index[0], "chain head unchanged")
	s.Unlock()
	require.NoError(t, err, "find")
	assert.Equal(t, original, loc.offset, "start block reused")
	assert.Equal(t, int64(2+2), s.Stats().TotalBlocks, "two continuation blocks added")

	require.NoError(t, s.Set([]byte("A/1"), []byte("tiny")), "shrink")
	assert.Equal(t, 2, s.Stats().FreeBlocks, "continuation blocks recycled")

	value, _, err := s.Get([]byte("A/1"))
	assert.NoError(t, err, "get")
	assert.Equal(t, []byte("tiny"), value, "value")
	requireCheck(t, s)
}

func TestLargeValues(t *testing.T) {
	s, _ := openTestStore(t, 8)
	defer s.Close()

	key := []byte("BIG/1")
	sizes := []int{
		0,
		1,
		startCapacity - len(key),
		startCapacity - len(key) + 1,
		startLinkedCapacity + continuationCapacity - len(key),
		startLinkedCapacity + continuationCapacity - len(key) + 1,
		5000,
		100000,
	}

	for _, size := range sizes {
		value := make([]byte, size)
		for i := range value {
			value[i] = byte(i * 7)
		}
		require.NoErrorf(t, s.Set(key, value), "set size: %d", size)

		actual, found, err := s.Get(key)
		require.NoErrorf(t, err, "get size: %d", size)
		assert.Truef(t, found, "found size: %d", size)
		assert.Truef(t, bytes.Equal(value, actual), "round trip size: %d", size)

		stats := s.Stats()
		live := stats.TotalBlocks - int64(stats.FreeBlocks)
		assert.Equalf(t, int64(blocksNeeded(uint64(len(key)+size))), live, "live blocks size: %d", size)
	}
	requireCheck(t, s)
}

func TestLongKeySpanningBlocks(t *testing.T) {
	s, _ := openTestStore(t, 2)
	defer s.Close()

	key := bytes.Repeat([]byte{'k'}, 2500)
	other := append(bytes.Repeat([]byte{'k'}, 2499), 'j')
	require.NoError(t, s.Set(key, []byte("v1")), "set long key")
	require.NoError(t, s.Set(other, []byte("v2")), "set similar key")

	value, found, err := s.Get(key)
	assert.NoError(t, err, "get")
	assert.True(t, found, "found")
	assert.Equal(t, []byte("v1"), value, "value")

	value, found, err = s.Get(other)
	assert.NoError(t, err, "get other")
	assert.True(t, found, "found other")
	assert.Equal(t, []byte("v2"), value, "other value")
	requireCheck(t, s)
}

func TestDeleteAll(t *testing.T) {
	s, fileName := openTestStore(t, 8)

	for i := 0; i < 20; i += 1 {
		require.NoError(t, s.Set([]byte(fmt.Sprintf("D/%d", i)), bytes.Repeat([]byte{'v'}, i*100)), "set")
	}
	require.NoError(t, s.DeleteAll(), "delete all")

	assert.Empty(t, scanAll(t, s), "nothing left")
	assert.Equal(t, int64(0), s.Stats().TotalBlocks, "no blocks")

	require.NoError(t, s.Set([]byte("D/new"), []byte("after")), "set after reset")
	require.NoError(t, s.Close(), "close")

	s, err := Open(fileName, Options{})
	require.NoError(t, err, "reopen")
	defer s.Close()

	assert.Equal(t, []pair{{"D/new", "after"}}, scanAll(t, s), "persisted")
	requireCheck(t, s)
}

func TestReopenRebuildsFreeList(t *testing.T) {
	s, fileName := openTestStore(t, 4)

	for i := 0; i < 10; i += 1 {
		require.NoError(t, s.Set([]byte(fmt.Sprintf("R/%d", i)), []byte("value")), "set")
	}
	for i := 0; i < 10; i += 2 {
		_, err := s.Delete([]byte(fmt.Sprintf("R/%d", i)))
		require.NoError(t, err, "delete")
	}
	require.NoError(t, s.Close(), "close")
	assert.NoError(t, s.Close(), "second close")

	s, err := Open(fileName, Options{BucketCount: 99})
	require.NoError(t, err, "reopen")
	defer s.Close()

	stats := s.Stats()
	assert.Equal(t, uint32(4), stats.Buckets, "bucket count from file")
	assert.Equal(t, int64(10), stats.TotalBlocks, "blocks")
	assert.Equal(t, 5, stats.FreeBlocks, "free blocks")

	for i := 0; i < 10; i += 1 {
		_, found, err := s.Get([]byte(fmt.Sprintf("R/%d", i)))
		assert.NoError(t, err, "get")
		assert.Equalf(t, 1 == i%2, found, "key: %d", i)
	}
	requireCheck(t, s)
}

func TestReopenReclaimsUnlinkedRecord(t *testing.T) {
	s, fileName := openTestStore(t, 4)
	require.NoError(t, s.Set([]byte("U/kept"), []byte("value")), "set")

	// a Set that wrote its blocks but stopped before linking the slot
	key := []byte("U/lost")
	value := bytes.Repeat([]byte("u"), 1500)
	s.Lock()
	offsets := []int64{s.allocate(), s.allocate()}
	images := encodeRecord(key, value, s.index[bucketOf(key, 4)], offsets)
	for i := range images {
		require.NoError(t, s.writeBlock(offsets[i], images[i]), "write block")
	}
	s.Unlock()

	r, err := s.Check()
	require.NoError(t, err, "check")
	assert.False(t, r.OK(), "unreachable blocks before reopen")
	require.NoError(t, s.Close(), "close")

	s, err = Open(fileName, Options{})
	require.NoError(t, err, "reopen")
	defer s.Close()

	r = requireCheck(t, s)
	assert.Equal(t, int64(3), r.TotalBlocks, "total")
	assert.Equal(t, int64(2), r.FreeBlocks, "reclaimed")
	assert.Equal(t, 2, s.Stats().FreeBlocks, "free list")

	_, found, err := s.Get(key)
	assert.NoError(t, err, "get lost")
	assert.False(t, found, "never linked")

	require.NoError(t, s.Set([]byte("U/next"), value), "set reuses blocks")
	assert.Equal(t, int64(3), s.Stats().TotalBlocks, "file did not grow")
	requireCheck(t, s)
}

func TestReopenReclaimsSplicedRecord(t *testing.T) {
	s, fileName := openTestStore(t, 2)

	first := keyInBucket("S", 0, 2)
	second := keyInBucket("S/x", 0, 2)
	require.NoError(t, s.Set(first, bytes.Repeat([]byte("f"), 1500)), "set first")
	require.NoError(t, s.Set(second, []byte("second")), "set second")

	// a Delete that spliced the chain but stopped before releasing
	s.Lock()
	loc, err := s.find(second)
	require.NoError(t, err, "find")
	require.NotNil(t, loc, "location")
	require.NoError(t, s.writeSlot(loc.bucket, loc.start.next), "splice")
	s.Unlock()
	require.NoError(t, s.Close(), "close")

	s, err = Open(fileName, Options{})
	require.NoError(t, err, "reopen")
	defer s.Close()

	r := requireCheck(t, s)
	assert.Equal(t, 1, r.Records, "records")
	assert.Equal(t, int64(1), r.FreeBlocks, "reclaimed")

	value, found, err := s.Get(first)
	assert.NoError(t, err, "get first")
	assert.True(t, found, "first found")
	assert.Equal(t, bytes.Repeat([]byte("f"), 1500), value, "first value")
}

func TestReopenKeepsBlocksOfDamagedChain(t *testing.T) {
	s, fileName := openTestStore(t, 2)

	key := keyInBucket("D", 0, 2)
	require.NoError(t, s.Set(key, bytes.Repeat([]byte("d"), 1500)), "set")

	s.Lock()
	offset := s.index[0]
	s.Unlock()
	require.NoError(t, s.Close(), "close")

	f, err := os.OpenFile(fileName, os.O_WRONLY, 0600)
	require.NoError(t, err, "open file")
	_, err = f.WriteAt([]byte{0x7f}, offset)
	require.NoError(t, err, "damage block")
	require.NoError(t, f.Close(), "close file")

	s, err = Open(fileName, Options{})
	require.NoError(t, err, "reopen")
	defer s.Close()

	assert.Equal(t, 0, s.Stats().FreeBlocks, "continuation block not reused")

	r, err := s.Check()
	require.NoError(t, err, "check")
	assert.False(t, r.OK(), "damage reported")
}

func TestFailedSetReturnsBlocks(t *testing.T) {
	s, fileName := openTestStore(t, 4)

	require.NoError(t, s.Set([]byte("F/1"), []byte("one")), "set")
	require.NoError(t, s.Set([]byte("F/2"), bytes.Repeat([]byte("2"), 3000)), "set")
	_, err := s.Delete([]byte("F/2"))
	require.NoError(t, err, "delete")

	before := s.Stats()
	assert.Equal(t, 3, before.FreeBlocks, "free before")

	// reads still work but every write fails
	readOnly, err := os.Open(fileName)
	require.NoError(t, err, "open read only")
	s.Lock()
	writable := s.file
	s.file = readOnly
	s.Unlock()

	err = s.Set([]byte("F/3"), bytes.Repeat([]byte("3"), 5000))
	assert.True(t, fault.IsErrIO(err), "write error")

	after := s.Stats()
	assert.Equal(t, before.TotalBlocks, after.TotalBlocks, "file end restored")
	assert.Equal(t, before.FreeBlocks, after.FreeBlocks, "free blocks returned")
	requireCheck(t, s)

	s.Lock()
	s.file = writable
	s.Unlock()
	require.NoError(t, readOnly.Close(), "close read only")

	require.NoError(t, s.Set([]byte("F/3"), bytes.Repeat([]byte("3"), 5000)), "set after failure")
	requireCheck(t, s)
	require.NoError(t, s.Close(), "close")
}

func TestReadOnly(t *testing.T) {
	s, fileName := openTestStore(t, 4)
	require.NoError(t, s.Set([]byte("A/1"), []byte("v")), "set")
	require.NoError(t, s.Close(), "close")

	s, err := Open(fileName, Options{ReadOnly: true})
	require.NoError(t, err, "open read only")
	defer s.Close()

	value, found, err := s.Get([]byte("A/1"))
	assert.NoError(t, err, "get")
	assert.True(t, found, "found")
	assert.Equal(t, []byte("v"), value, "value")

	err = s.Set([]byte("A/2"), []byte("v"))
	assert.Equal(t, fault.ErrStorageReadOnly, err, "set")
	assert.True(t, fault.IsErrReadOnly(err), "class")

	_, err = s.Delete([]byte("A/1"))
	assert.Equal(t, fault.ErrStorageReadOnly, err, "delete")

	err = s.DeleteAll()
	assert.Equal(t, fault.ErrStorageReadOnly, err, "delete all")

	assert.Equal(t, 0, s.Stats().FreeBlocks, "free list not loaded")
	requireCheck(t, s)
}

func TestReadOnlyMissingFile(t *testing.T) {
	_, err := Open(testFileName(t), Options{ReadOnly: true})
	assert.Error(t, err, "missing file")
	assert.True(t, fault.IsErrIO(err), "io error")
}

func TestInvalidFileTag(t *testing.T) {
	fileName := testFileName(t)
	err := ioutil.WriteFile(fileName, []byte("this is not a store file"), 0600)
	require.NoError(t, err, "write")

	_, err = Open(fileName, Options{})
	assert.Equal(t, fault.ErrInvalidFileTag, err, "tag")
	assert.True(t, fault.IsErrCorruption(err), "class")
}

func TestClosedStore(t *testing.T) {
	s, _ := openTestStore(t, 4)
	require.NoError(t, s.Close(), "close")

	_, _, err := s.Get([]byte("A/1"))
	assert.Equal(t, fault.ErrStoreClosed, err, "get")
	err = s.Set([]byte("A/1"), nil)
	assert.Equal(t, fault.ErrStoreClosed, err, "set")
	err = s.Scan(func([]byte, []byte) error { return nil })
	assert.Equal(t, fault.ErrStoreClosed, err, "scan")
}

func TestScanCallbackError(t *testing.T) {
	s, _ := openTestStore(t, 4)
	defer s.Close()

	for i := 0; i < 5; i += 1 {
		require.NoError(t, s.Set([]byte(fmt.Sprintf("S/%d", i)), []byte("v")), "set")
	}

	stop := errors.New("stop")
	calls := 0
	err := s.Scan(func([]byte, []byte) error {
		calls += 1
		return stop
	})
	assert.Equal(t, stop, err, "error returned")
	assert.Equal(t, 1, calls, "stopped at first record")
}

func TestScanCallbackMayWrite(t *testing.T) {
	s, _ := openTestStore(t, 4)
	defer s.Close()

	for i := 0; i < 5; i += 1 {
		require.NoError(t, s.Set([]byte(fmt.Sprintf("W/%d", i)), []byte("old")), "set")
	}
	err := s.Scan(func(key []byte, value []byte) error {
		return s.Set(key, []byte("new"))
	})
	require.NoError(t, err, "scan")

	for _, p := range scanAll(t, s) {
		assert.Equal(t, "new", p.value, p.key)
	}
}

func TestScanSkipsWrongBucket(t *testing.T) {
	s, _ := openTestStore(t, 2)
	defer s.Close()

	key := keyInBucket("WB", 0, 2)
	require.NoError(t, s.Set(key, []byte("v")), "set")

	// make bucket 1 point at a record that belongs to bucket 0
	s.Lock()
	err := s.writeSlot(1, s.index[0])
	s.Unlock()
	require.NoError(t, err, "write slot")

	assert.Equal(t, []pair{{string(key), "v"}}, scanAll(t, s), "scan")

	r, err := s.Check()
	require.NoError(t, err, "check")
	assert.False(t, r.OK(), "check detects misplaced record")
}

func TestCorruptionIsIsolated(t *testing.T) {
	s, fileName := openTestStore(t, 2)
	defer s.Close()

	bad := keyInBucket("C", 0, 2)
	good := keyInBucket("C", 1, 2)
	require.NoError(t, s.Set(bad, []byte("damaged")), "set bad")
	require.NoError(t, s.Set(good, []byte("intact")), "set good")

	s.Lock()
	offset := s.index[0]
	s.Unlock()

	f, err := os.OpenFile(fileName, os.O_WRONLY, 0600)
	require.NoError(t, err, "open file")
	_, err = f.WriteAt([]byte{0x7f}, offset)
	require.NoError(t, err, "damage block")
	require.NoError(t, f.Close(), "close file")
	s.cache.flush()

	_, _, err = s.Get(bad)
	assert.True(t, fault.IsErrCorruption(err), "damaged key")

	value, found, err := s.Get(good)
	assert.NoError(t, err, "intact key")
	assert.True(t, found, "found")
	assert.Equal(t, []byte("intact"), value, "value")

	assert.Equal(t, []pair{{string(good), "intact"}}, scanAll(t, s), "scan continues")
}

func TestRandomOperations(t *testing.T) {
	s, fileName := openTestStore(t, 8)

	r := rand.New(rand.NewSource(20200304))
	model := make(map[string][]byte)

	for i := 0; i < 600; i += 1 {
		key := fmt.Sprintf("RND/%d", r.Intn(40))
		switch r.Intn(4) {
		case 0:
			found, err := s.Delete([]byte(key))
			require.NoError(t, err, "delete")
			_, expected := model[key]
			assert.Equal(t, expected, found, "delete found")
			delete(model, key)
		default:
			value := make([]byte, r.Intn(3500))
			r.Read(value)
			require.NoError(t, s.Set([]byte(key), value), "set")
			model[key] = value
		}
	}

	verify := func(s *Store) {
		for k, v := range model {
			actual, found, err := s.Get([]byte(k))
			require.NoError(t, err, "get")
			assert.True(t, found, k)
			assert.Truef(t, bytes.Equal(v, actual), "value for: %s", k)
		}
		assert.Equal(t, len(model), len(scanAll(t, s)), "scan count")
		report := requireCheck(t, s)
		assert.Equal(t, len(model), report.Records, "records")
	}

	verify(s)
	require.NoError(t, s.Close(), "close")

	s, err := Open(fileName, Options{CacheBlocks: 3})
	require.NoError(t, err, "reopen")
	defer s.Close()
	verify(s)
}
