// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package util - path helpers shared by the commands
package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureAbsolute - prefix a relative path with the directory
func EnsureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}

// EnsureDirectory - create the directory if missing and check that an
// existing path is a directory
func EnsureDirectory(directory string) error {
	if err := os.MkdirAll(directory, 0700); nil != err {
		return err
	}
	info, err := os.Stat(directory)
	if nil != err {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path: %q is not a directory", directory)
	}
	return nil
}

// PlainName - true if the name has no directory part
func PlainName(name string) bool {
	switch filepath.Dir(name) {
	case "", ".":
		return "" != name
	default:
		return false
	}
}
