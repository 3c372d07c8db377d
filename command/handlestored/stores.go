// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/blockstore"
)

// maximum problems logged for one store
const maximumLoggedProblems = 20

type storeReport struct {
	name     string
	fileName string
	report   *blockstore.Report
}

// verifyStores - open and check the handles and prefixes stores
//
// a read-write open returns blocks left unreachable by an interrupted Set
// or Delete to the free list, so this runs before anything else uses the
// files.  Damage is logged and does not stop the daemon
func verifyStores(log *logger.L, c *Configuration) ([]storeReport, error) {
	stores := []struct {
		name     string
		fileName string
	}{
		{"handles", c.Database.Name},
		{"prefixes", c.Prefixes.Name},
	}

	reports := make([]storeReport, 0, len(stores))
	for _, item := range stores {
		log.Infof("verify %s: %s", item.name, item.fileName)

		s, err := blockstore.Open(item.fileName, c.storeOptions())
		if nil != err {
			log.Criticalf("open %s: %s  error: %s", item.name, item.fileName, err)
			return reports, err
		}

		report, err := s.Check()
		if e := s.Close(); nil == err {
			err = e
		}
		if nil != err {
			log.Errorf("check %s: %s  error: %s", item.name, item.fileName, err)
			return reports, err
		}

		log.Infof("%s: buckets: %d  records: %d  live: %d  free: %d  total: %d",
			item.name, report.Buckets, report.Records, report.LiveBlocks, report.FreeBlocks, report.TotalBlocks)
		if !report.OK() {
			log.Warnf("%s: %d integrity problems", item.name, len(report.Problems))
			for i, p := range report.Problems {
				if i >= maximumLoggedProblems {
					break
				}
				log.Warnf("%s: %s", item.name, p)
			}
		}

		reports = append(reports, storeReport{
			name:     item.name,
			fileName: item.fileName,
			report:   report,
		})
	}
	return reports, nil
}
