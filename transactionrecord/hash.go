// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package transactionrecord

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// separates the naming authority (prefix) from the local id (suffix)
const handleSeparator = '/'

// Hash31 - SHA3-256 of the data, first four digest bytes as big endian
// with the sign bit masked off
//
// the block store derives bucket numbers from this value so it must
// never change for existing files
func Hash31(data []byte) int32 {
	digest := sha3.Sum256(data)
	return int32(binary.BigEndian.Uint32(digest[0:4]) & 0x7fffffff)
}

// SplitHandle - split "prefix/suffix"; a key without a separator is all
// prefix
func SplitHandle(key []byte) ([]byte, []byte) {
	n := bytes.IndexByte(key, handleSeparator)
	if n < 0 {
		return key, nil
	}
	return key[:n], key[n+1:]
}

// Hashes - the three partitioning projections of a key
//
// prefixes are case insensitive so they are upper-cased (ASCII only)
// before hashing, suffixes are hashed exactly
func Hashes(key []byte) (onAll int32, onNA int32, onId int32) {
	prefix, suffix := SplitHandle(key)
	upper := asciiUpper(prefix)

	all := make([]byte, 0, len(upper)+1+len(suffix))
	all = append(all, upper...)
	all = append(all, handleSeparator)
	all = append(all, suffix...)

	return Hash31(all), Hash31(upper), Hash31(suffix)
}

func asciiUpper(b []byte) []byte {
	u := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		u[i] = c
	}
	return u
}
