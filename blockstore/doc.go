// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockstore - hashed key/value file made of fixed size blocks
//
// File layout:
//
//   tag(8) ++ bucketCount(4) ++ [bucketCount]firstOffset(8) ++ padding
//   block ++ block ++ ...
//
// the first block starts at the prologue length rounded up to the block
// size (1024).  All integers are big endian.  An offset of zero is "none".
//
// Blocks:
//
//   unused                   code(1)=0
//   start                    code(1)=1 ++ keyLength(4) ++ dataLength(4) ++ next(8)
//   start + continuation     code(1)=1 ++ keyLength(4) ++ dataLength(4) ++ next(8) ++ continuation(8)
//   continuation             code(1)=2 ++ remainderLength(4)
//   continuation + further   code(1)=2 ++ remainderLength(4) ++ continuation(8)
//
// the payload (key ++ value) follows the header.  Whether a block holds a
// continuation pointer is implied by the payload still to be stored: a
// start block without one holds up to 1007 bytes, with one 999 bytes; a
// continuation block holds up to 1019 bytes without and 1011 with.
//
// "next" links the start blocks of a bucket into its collision chain;
// "continuation" links the blocks of one record.
//
// Buckets:
//
//   bucket = (SHA3-256(key)[0:4] as big endian uint32 & 0x7fffffff) % bucketCount
//
// changing the digest would move every key so it is fixed for the format.
//
// Concurrency: one mutex per store serialises every structural operation.
// Scan collects one bucket at a time under the lock and calls back
// outside it.
package blockstore
