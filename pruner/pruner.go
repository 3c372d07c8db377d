// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package pruner - periodic retention pruning of transaction queues
package pruner

import (
	"context"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/txqueue"
)

// DefaultInterval - time between scheduled runs
const DefaultInterval = 24 * time.Hour

const day = 24 * time.Hour

type registration struct {
	name  string
	queue txqueue.Queue
}

// Pruner - deletes transactions older than the retention period from
// every registered queue
type Pruner struct {
	sync.Mutex

	log           *logger.L
	queues        []registration
	retentionDays int
	interval      time.Duration
	clock         func() time.Time
	trigger       chan struct{}
}

// New - create a pruner, a non-positive retention disables pruning
func New(retentionDays int, interval time.Duration) (*Pruner, error) {
	log := logger.New("pruner")
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Pruner{
		log:           log,
		retentionDays: retentionDays,
		interval:      interval,
		clock:         time.Now,
		trigger:       make(chan struct{}, 1),
	}, nil
}

// Register - add a queue to be pruned
func (p *Pruner) Register(name string, queue txqueue.Queue) {
	p.Lock()
	defer p.Unlock()

	p.queues = append(p.queues, registration{name: name, queue: queue})
	p.log.Infof("register: %s", name)
}

// SetRetention - takes effect from the next run
func (p *Pruner) SetRetention(days int) {
	p.Lock()
	defer p.Unlock()

	if days != p.retentionDays {
		p.log.Infof("retention: %d days -> %d days", p.retentionDays, days)
	}
	p.retentionDays = days
}

// Retention - current retention in days
func (p *Pruner) Retention() int {
	p.Lock()
	defer p.Unlock()
	return p.retentionDays
}

// Trigger - ask the running pruner to run as soon as possible
func (p *Pruner) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
		// already pending
	}
}

// PruneNow - prune every queue synchronously
//
// a queue that fails is logged and the rest are still pruned; the first
// error is returned.  Cancelling ctx stops at the next batch
func (p *Pruner) PruneNow(ctx context.Context) (int, error) {
	p.Lock()
	days := p.retentionDays
	queues := make([]registration, len(p.queues))
	copy(queues, p.queues)
	now := p.clock()
	p.Unlock()

	if days <= 0 {
		p.log.Debugf("disabled: retention: %d days", days)
		return 0, nil
	}

	cutoff := now.Add(-time.Duration(days) * day)
	p.log.Infof("prune before: %s", cutoff.UTC().Format(time.RFC3339))

	total := 0
	var firstErr error
	for _, r := range queues {
		n, err := r.queue.PruneBefore(ctx, cutoff)
		total += n
		if nil != err {
			p.log.Errorf("%s: prune error: %s", r.name, err)
			if nil == firstErr {
				firstErr = err
			}
			if nil != ctx.Err() {
				break
			}
			continue
		}
		p.log.Infof("%s: pruned: %d", r.name, n)
	}
	return total, firstErr
}

// Run - background.Process loop
func (p *Pruner) Run(args interface{}, shutdown <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// abandon a long prune as soon as shutdown starts
	go func() {
		select {
		case <-shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-shutdown:
			break loop
		case <-ticker.C:
			p.PruneNow(ctx)
		case <-p.trigger:
			p.PruneNow(ctx)
		}
	}
	p.log.Info("stopped")
}
