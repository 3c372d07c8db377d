// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"fmt"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type CorruptionError GenericError
type ExistsError GenericError
type InvalidError GenericError
type LockError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type ReadOnlyError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised       = ExistsError("already initialised")
	ErrDataCorruption           = CorruptionError("data corruption")
	ErrInvalidAction            = InvalidError("invalid transaction action")
	ErrInvalidBackend           = InvalidError("invalid queue backend")
	ErrInvalidBlockOffset       = CorruptionError("invalid block offset")
	ErrInvalidBucketCount       = InvalidError("invalid bucket count")
	ErrInvalidFileTag           = CorruptionError("invalid file tag")
	ErrInvalidLoggerChannel     = ProcessError("invalid logger channel")
	ErrInvalidRecordLength      = CorruptionError("invalid record length")
	ErrInvalidStructPointer     = InvalidError("invalid struct pointer")
	ErrInvalidTransactionId     = InvalidError("invalid transaction id")
	ErrInvalidTransactionRecord = CorruptionError("invalid transaction record")
	ErrKeyExists                = ExistsError("key already exists")
	ErrKeyLength                = InvalidError("key length is invalid")
	ErrKeyNotFound              = NotFoundError("key not found")
	ErrQueueLocked              = LockError("queue directory is locked by another process")
	ErrQueueReadOnly            = ReadOnlyError("queue is read only")
	ErrQueueShutdown            = ProcessError("queue has been shut down")
	ErrRecordTooLarge           = InvalidError("record is too large")
	ErrStorageReadOnly          = ReadOnlyError("storage is read only")
	ErrStoreClosed              = ProcessError("store is closed")
	ErrTransactionOutOfOrder    = InvalidError("transaction id is not after the last id")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e CorruptionError) Error() string { return string(e) }
func (e ExistsError) Error() string     { return string(e) }
func (e InvalidError) Error() string    { return string(e) }
func (e LockError) Error() string       { return string(e) }
func (e NotFoundError) Error() string   { return string(e) }
func (e ProcessError) Error() string    { return string(e) }
func (e ReadOnlyError) Error() string   { return string(e) }

// IOError - an underlying file system failure, carries the operation
// that failed
type IOError struct {
	Op  string
	Err error
}

// NewIOError - wrap a file system error, nil stays nil
func NewIOError(op string, err error) error {
	if nil == err {
		return nil
	}
	return &IOError{Op: op, Err: err}
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %s", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

// determine the class of an error
func IsErrCorruption(e error) bool { _, ok := e.(CorruptionError); return ok }
func IsErrExists(e error) bool     { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool    { _, ok := e.(InvalidError); return ok }
func IsErrIO(e error) bool         { _, ok := e.(*IOError); return ok }
func IsErrLock(e error) bool       { _, ok := e.(LockError); return ok }
func IsErrNotFound(e error) bool   { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool    { _, ok := e.(ProcessError); return ok }
func IsErrReadOnly(e error) bool   { _, ok := e.(ReadOnlyError); return ok }
