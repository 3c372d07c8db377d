// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package background_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/handlestore/background"
)

// compactor - counts passes until shut down, then records a final state
type compactor struct {
	name     string
	passes   int64
	finished int32
}

func (c *compactor) Run(args interface{}, shutdown <-chan struct{}) {
	t := args.(*testing.T)

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-time.After(time.Millisecond):
			atomic.AddInt64(&c.passes, 1)
		}
	}

	t.Logf("%s: passes: %d", c.name, atomic.LoadInt64(&c.passes))
	atomic.StoreInt32(&c.finished, 1)
}

func TestStartStop(t *testing.T) {
	handles := &compactor{name: "handles"}
	prefixes := &compactor{name: "prefixes"}

	p := background.Start(background.Processes{handles, prefixes}, t)
	time.Sleep(20 * time.Millisecond)
	p.Stop()

	for _, c := range []*compactor{handles, prefixes} {
		assert.Equalf(t, int32(1), atomic.LoadInt32(&c.finished), "%s: did not finish", c.name)
		assert.Truef(t, atomic.LoadInt64(&c.passes) > 0, "%s: never ran", c.name)
	}
}

func TestStopTwice(t *testing.T) {
	c := &compactor{name: "queue"}

	p := background.Start(background.Processes{c}, t)
	p.Stop()
	p.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&c.finished), "finished")
}

func TestStopNil(t *testing.T) {
	var p *background.T
	p.Stop()
}

func TestStartEmpty(t *testing.T) {
	p := background.Start(background.Processes{}, nil)
	p.Stop()
}
