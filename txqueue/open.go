// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"os"
	"strings"

	"github.com/bitmark-inc/handlestore/fault"
)

// backend names accepted by Open
const (
	BackendFile         = "file"
	BackendLevel        = "level"
	BackendConcatenated = "concatenated"
)

// Open - open a queue by backend name
//
// the concatenated backend reads a file queue in oldDirectory followed by
// a level queue in directory; once the old directory has gone (retired)
// only the level queue is opened
func Open(backend string, directory string, oldDirectory string, options Options) (Queue, error) {
	switch strings.ToLower(backend) {

	case BackendFile:
		return NewFileQueue(directory, options)

	case BackendLevel:
		return NewLevelQueue(directory, options)

	case BackendConcatenated:
		if "" == oldDirectory {
			return nil, fault.ErrInvalidBackend
		}
		current, err := NewLevelQueue(directory, options)
		if nil != err {
			return nil, err
		}
		if _, err := os.Stat(oldDirectory); os.IsNotExist(err) {
			return current, nil
		}
		old, err := NewFileQueue(oldDirectory, options)
		if nil != err {
			current.Shutdown()
			return nil, err
		}
		q, err := NewConcatenatedQueue(old, current)
		if nil != err {
			old.Shutdown()
			current.Shutdown()
			return nil, err
		}
		return q, nil

	default:
		return nil, fault.ErrInvalidBackend
	}
}
