// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package pruner

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/handlestore/background"
	"github.com/bitmark-inc/handlestore/txqueue/mocks"
)

const (
	testingDirName = "testing"
)

var now = time.Date(2020, 3, 4, 5, 6, 7, 0, time.UTC)

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

func newTestPruner(t *testing.T, days int) *Pruner {
	p, err := New(days, time.Hour)
	require.NoError(t, err, "new pruner")
	p.clock = func() time.Time { return now }
	return p
}

func TestPruneNowAllQueues(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	ctx := context.Background()
	cutoff := now.Add(-7 * 24 * time.Hour)

	first := mocks.NewMockQueue(ctl)
	second := mocks.NewMockQueue(ctl)
	third := mocks.NewMockQueue(ctl)

	failure := fmt.Errorf("disk failure")
	first.EXPECT().PruneBefore(ctx, cutoff).Return(5, nil)
	second.EXPECT().PruneBefore(ctx, cutoff).Return(1, failure)
	third.EXPECT().PruneBefore(ctx, cutoff).Return(2, nil)

	p := newTestPruner(t, 7)
	p.Register("local", first)
	p.Register("replica-a", second)
	p.Register("replica-b", third)

	n, err := p.PruneNow(ctx)
	assert.Equal(t, failure, err, "first error")
	assert.Equal(t, 8, n, "total deleted")
}

func TestPruneDisabled(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	// no calls expected
	q := mocks.NewMockQueue(ctl)

	for _, days := range []int{0, -1} {
		p := newTestPruner(t, days)
		p.Register("local", q)

		n, err := p.PruneNow(context.Background())
		assert.NoErrorf(t, err, "days: %d", days)
		assert.Equalf(t, 0, n, "days: %d", days)
	}
}

func TestSetRetention(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	q := mocks.NewMockQueue(ctl)
	q.EXPECT().PruneBefore(gomock.Any(), now.Add(-2*24*time.Hour)).Return(0, nil)

	p := newTestPruner(t, 0)
	p.Register("local", q)

	_, err := p.PruneNow(context.Background())
	require.NoError(t, err, "disabled")

	p.SetRetention(2)
	assert.Equal(t, 2, p.Retention(), "retention")
	_, err = p.PruneNow(context.Background())
	assert.NoError(t, err, "enabled")
}

func TestPruneStopsWhenCancelled(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := mocks.NewMockQueue(ctl)
	second := mocks.NewMockQueue(ctl)
	first.EXPECT().PruneBefore(ctx, gomock.Any()).Return(0, context.Canceled)

	p := newTestPruner(t, 1)
	p.Register("first", first)
	p.Register("second", second)

	_, err := p.PruneNow(ctx)
	assert.Equal(t, context.Canceled, err, "cancelled")
}

func TestRunOnTrigger(t *testing.T) {
	ctl := gomock.NewController(t)
	defer ctl.Finish()

	pruned := make(chan struct{}, 1)
	q := mocks.NewMockQueue(ctl)
	q.EXPECT().PruneBefore(gomock.Any(), now.Add(-24*time.Hour)).DoAndReturn(
		func(ctx context.Context, cutoff time.Time) (int, error) {
			pruned <- struct{}{}
			return 3, nil
		},
	).Times(1)

	p := newTestPruner(t, 1)
	p.Register("local", q)

	processes := background.Start(background.Processes{p}, nil)
	p.Trigger()

	select {
	case <-pruned:
	case <-time.After(5 * time.Second):
		t.Error("trigger did not run the pruner")
	}
	processes.Stop()
}
