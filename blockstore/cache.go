// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"strconv"

	cache "github.com/patrickmn/go-cache"
)

// DefaultCacheBlocks - cache capacity when none is configured
const DefaultCacheBlocks = 4096

// blockCache - copies of recently read or written blocks keyed by offset
//
// the file is always authoritative.  When the capacity would be exceeded
// the whole cache is flushed; this is not an LRU
type blockCache struct {
	capacity int
	items    *cache.Cache
}

func newBlockCache(capacity int) *blockCache {
	return &blockCache{
		capacity: capacity,
		items:    cache.New(cache.NoExpiration, 0),
	}
}

func cacheKey(offset int64) string {
	return strconv.FormatInt(offset, 16)
}

// get - the cached image, callers must not modify it
func (c *blockCache) get(offset int64) ([]byte, bool) {
	obj, found := c.items.Get(cacheKey(offset))
	if !found {
		return nil, false
	}
	return obj.([]byte), true
}

// put - remember a block image, the slice must not be modified afterwards
func (c *blockCache) put(offset int64, image []byte) {
	if c.capacity <= 0 {
		return
	}
	if c.items.ItemCount() >= c.capacity {
		c.items.Flush()
	}
	c.items.Set(cacheKey(offset), image, cache.NoExpiration)
}

func (c *blockCache) evict(offset int64) {
	c.items.Delete(cacheKey(offset))
}

func (c *blockCache) flush() {
	c.items.Flush()
}

func (c *blockCache) count() int {
	return c.items.ItemCount()
}
