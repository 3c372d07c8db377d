// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/handlestore/blockstore"
	"github.com/bitmark-inc/handlestore/configuration"
	"github.com/bitmark-inc/handlestore/pruner"
	"github.com/bitmark-inc/handlestore/txqueue"
	"github.com/bitmark-inc/handlestore/util"
)

// basic defaults (directories and files are relative to the "DataDirectory" from Configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultDatabaseDirectory = "data"
	defaultDatabaseName      = "handles.hs"
	defaultPrefixesName      = "prefixes.hs"

	defaultQueueBackend      = txqueue.BackendFile
	defaultQueueDirectory    = "queue"
	defaultRetentionDays     = 30
	defaultPruneHourInterval = 24

	defaultLogDirectory = "log"
	defaultLogFile      = "handlestored.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

type DatabaseType struct {
	Directory   string `gluamapper:"directory" json:"directory"`
	Name        string `gluamapper:"name" json:"name"`
	Buckets     int    `gluamapper:"buckets" json:"buckets"`
	CacheBlocks int    `gluamapper:"cache_blocks" json:"cache_blocks"`
	ReadOnly    bool   `gluamapper:"read_only" json:"read_only"`
}

type PrefixesType struct {
	Name string `gluamapper:"name" json:"name"`
}

type QueueType struct {
	Backend           string `gluamapper:"backend" json:"backend"`
	Directory         string `gluamapper:"directory" json:"directory"`
	OldDirectory      string `gluamapper:"old_directory" json:"old_directory"`
	RetentionDays     int    `gluamapper:"retention_days" json:"retention_days"`
	PruneHourInterval int    `gluamapper:"prune_hour_interval" json:"prune_hour_interval"`
	PruneBatch        int    `gluamapper:"prune_batch" json:"prune_batch"`
}

type Configuration struct {
	DataDirectory string               `gluamapper:"data_directory" json:"data_directory"`
	PidFile       string               `gluamapper:"pidfile" json:"pidfile"`
	Database      DatabaseType         `gluamapper:"database" json:"database"`
	Prefixes      PrefixesType         `gluamapper:"prefixes" json:"prefixes"`
	Queue         QueueType            `gluamapper:"queue" json:"queue"`
	Replicated    map[string]string    `gluamapper:"replicated" json:"replicated"`
	Logging       logger.Configuration `gluamapper:"logging" json:"logging"`
}

// will read decode and verify the configuration
func getConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Database: DatabaseType{
			Directory: defaultDatabaseDirectory,
			Name:      defaultDatabaseName,
			Buckets:   blockstore.DefaultBucketCount,
		},

		Prefixes: PrefixesType{
			Name: defaultPrefixesName,
		},

		Queue: QueueType{
			Backend:           defaultQueueBackend,
			Directory:         defaultQueueDirectory,
			RetentionDays:     defaultRetentionDays,
			PruneHourInterval: defaultPruneHourInterval,
			PruneBatch:        txqueue.DefaultPruneBatch,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	variables := map[string]string{
		"config_directory": dataDirectory,
	}
	if err := configuration.ParseConfigurationFile(configurationFileName, options, variables); err != nil {
		return nil, err
	}

	options.Queue.Backend = strings.ToLower(options.Queue.Backend)
	switch options.Queue.Backend {
	case txqueue.BackendFile, txqueue.BackendLevel:
	case txqueue.BackendConcatenated:
		if "" == options.Queue.OldDirectory {
			return nil, fmt.Errorf("Queue: backend %q requires old_directory", options.Queue.Backend)
		}
	default:
		return nil, fmt.Errorf("Queue: backend %q is not supported", options.Queue.Backend)
	}

	if options.Database.Buckets <= 0 {
		return nil, fmt.Errorf("Database: buckets: %d must be positive", options.Database.Buckets)
	}
	if options.Queue.PruneHourInterval <= 0 {
		options.Queue.PruneHourInterval = defaultPruneHourInterval
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("Path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	}
	options.DataDirectory = filepath.Clean(options.DataDirectory)

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("Path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Queue.Directory,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = util.EnsureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	optionalAbsolute := []*string{
		&options.PidFile,
		&options.Queue.OldDirectory,
	}
	for _, f := range optionalAbsolute {
		if "" != *f {
			*f = util.EnsureAbsolute(options.DataDirectory, *f)
		}
	}

	for name, directory := range options.Replicated {
		options.Replicated[name] = util.EnsureAbsolute(options.DataDirectory, directory)
	}

	// fail if any of these are not simple file names then add the
	// correct directory prefix, file item is first and corresponding
	// directory is second
	mustNotBePaths := [][2]*string{
		{&options.Database.Name, &options.Database.Directory},
		{&options.Prefixes.Name, &options.Database.Directory},
		{&options.Logging.File, nil},
	}
	for _, f := range mustNotBePaths {
		if !util.PlainName(*f[0]) {
			return nil, fmt.Errorf("Files: %q is not plain name", *f[0])
		}
		if nil != f[1] {
			*f[0] = util.EnsureAbsolute(*f[1], *f[0])
		}
	}

	// create directories if they do not already exist
	for _, d := range []string{
		options.Database.Directory,
		options.Logging.Directory,
	} {
		if err := util.EnsureDirectory(d); nil != err {
			return nil, err
		}
	}

	// done
	return options, nil
}

// replicatedNames - sorted so startup logging is stable
func (c *Configuration) replicatedNames() []string {
	names := make([]string, 0, len(c.Replicated))
	for name := range c.Replicated {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Configuration) storeOptions() blockstore.Options {
	return blockstore.Options{
		BucketCount: uint32(c.Database.Buckets),
		CacheBlocks: c.Database.CacheBlocks,
		ReadOnly:    c.Database.ReadOnly,
	}
}

func (c *Configuration) queueOptions() txqueue.Options {
	return txqueue.Options{
		ReadOnly:   c.Database.ReadOnly,
		PruneBatch: c.Queue.PruneBatch,
	}
}

func (c *Configuration) pruneInterval() time.Duration {
	if c.Queue.PruneHourInterval <= 0 {
		return pruner.DefaultInterval
	}
	return time.Duration(c.Queue.PruneHourInterval) * time.Hour
}
