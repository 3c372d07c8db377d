// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

// freeList - LIFO stack of reusable block offsets
type freeList struct {
	offsets []int64
}

func (f *freeList) push(offset int64) {
	f.offsets = append(f.offsets, offset)
}

// pop - most recently freed offset
func (f *freeList) pop() (int64, bool) {
	n := len(f.offsets)
	if 0 == n {
		return 0, false
	}
	offset := f.offsets[n-1]
	f.offsets = f.offsets[:n-1]
	return offset, true
}

func (f *freeList) len() int {
	return len(f.offsets)
}

func (f *freeList) reset() {
	f.offsets = nil
}
