// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/require"
)

const (
	testingDirName = "testing"
)

func setupTestLogger() {
	removeFiles()
	_ = os.Mkdir(testingDirName, 0700)

	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	}

	// start logging
	_ = logger.Initialise(logging)
}

func teardownTestLogger() {
	logger.Finalise()
	removeFiles()
}

func removeFiles() {
	_ = os.RemoveAll(testingDirName)
}

func TestMain(m *testing.M) {
	setupTestLogger()
	rc := m.Run()
	teardownTestLogger()
	os.Exit(rc)
}

// a file name unique to the running test
func testFileName(t *testing.T) string {
	name := strings.Replace(t.Name(), "/", "_", -1) + ".hs"
	fileName := filepath.Join(testingDirName, name)
	_ = os.Remove(fileName)
	return fileName
}

func openTestStore(t *testing.T, buckets uint32) (*Store, string) {
	fileName := testFileName(t)
	s, err := Open(fileName, Options{BucketCount: buckets})
	require.NoError(t, err, "open store")
	return s, fileName
}

// keyInBucket - first generated key that hashes to the given bucket
func keyInBucket(prefix string, bucket uint32, buckets uint32) []byte {
	for i := 0; ; i += 1 {
		k := []byte(fmt.Sprintf("%s/%d", prefix, i))
		if bucket == bucketOf(k, buckets) {
			return k
		}
	}
}
