// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"path/filepath"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/fsnotify/fsnotify"

	"github.com/bitmark-inc/handlestore/fault"
	"github.com/bitmark-inc/handlestore/pruner"
)

const (
	watcherLoggerPrefix = "config-watcher"

	// editors write in several steps
	defaultSettleTime = 2 * time.Second
)

// configWatcher - calls reload after the configuration file changes
//
// the containing directory is watched so that editors which replace the
// file by rename are also seen
type configWatcher struct {
	log      *logger.L
	watcher  *fsnotify.Watcher
	filePath string
	settle   time.Duration
	reload   func() error
}

func newConfigWatcher(fileName string, settle time.Duration, reload func() error) (*configWatcher, error) {
	log := logger.New(watcherLoggerPrefix)
	if nil == log {
		return nil, fault.ErrInvalidLoggerChannel
	}

	filePath, err := filepath.Abs(filepath.Clean(fileName))
	if nil != err {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if nil != err {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(filePath)); nil != err {
		watcher.Close()
		return nil, err
	}

	return &configWatcher{
		log:      log,
		watcher:  watcher,
		filePath: filePath,
		settle:   settle,
		reload:   reload,
	}, nil
}

// Run - background.Process loop
func (w *configWatcher) Run(args interface{}, shutdown <-chan struct{}) {
	defer w.watcher.Close()

	var settled <-chan time.Time

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case event, ok := <-w.watcher.Events:
			if !ok {
				break loop
			}
			if event.Name != w.filePath {
				continue loop
			}
			w.log.Debugf("file event: %v", event)
			if changeEvent(event) {
				settled = time.After(w.settle)
			} else if event.Op&fsnotify.Remove == fsnotify.Remove {
				w.log.Warnf("file: %s removed", w.filePath)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				break loop
			}
			w.log.Errorf("watcher error: %s", err)

		case <-settled:
			settled = nil
			w.log.Infof("reload: %s", w.filePath)
			if err := w.reload(); nil != err {
				w.log.Errorf("reload: %s  error: %s", w.filePath, err)
			}
		}
	}
	w.log.Info("stopped")
}

func changeEvent(event fsnotify.Event) bool {
	return event.Op&fsnotify.Write == fsnotify.Write ||
		event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Rename == fsnotify.Rename
}

// reloadConfiguration - re-read the file and apply the settings that
// can change without a restart
func reloadConfiguration(fileName string, p *pruner.Pruner) func() error {
	return func() error {
		c, err := getConfiguration(fileName)
		if nil != err {
			return err
		}
		p.SetRetention(c.Queue.RetentionDays)
		return nil
	}
}
