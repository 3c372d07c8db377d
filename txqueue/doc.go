// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txqueue - durable transaction logs
//
// Two backends implement the Queue interface:
//
//   FileQueue   daily segment files of text lines plus a segment index
//   LevelQueue  a LevelDB database keyed by big endian transaction id
//
// ConcatenatedQueue joins an old queue to a current one so that a
// backend migration is invisible to replication scanners.
//
// Appends are synced to disk before returning.  Listeners run on the
// appending goroutine in registration order, one append at a time.
package txqueue
