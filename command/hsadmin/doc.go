// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Offline administration of handle stores and transaction queues
//
// Must not be run against a queue that handlestored has open; the
// queue lock rejects a second writer.
package main
