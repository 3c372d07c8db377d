// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Storage daemon for the handle store
//
// This program owns the handle and prefix block stores and the local
// transaction queue.  It prunes the local queue and any replicated
// queues on a fixed schedule and applies retention changes from its
// configuration file without a restart.
package main
