// Copyright 2026 The Stratum Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Command stratum inspects and maintains a document store directory.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"

	"github.com/stratumdb/stratum/pkg/docdb"
	"github.com/stratumdb/stratum/pkg/storage"
	"github.com/stratumdb/stratum/pkg/util/hlc"
)

type config struct {
	// Dir is the store directory.
	Dir string `yaml:"dir"`
	// DefaultTTL is the table-level expiry applied to records without an
	// explicit one. Zero means records never expire by default.
	DefaultTTL time.Duration `yaml:"default_ttl"`
	// RetainHistoryFor is how far back in time reads must stay
	// serviceable; compaction keeps everything newer than now minus this
	// window.
	RetainHistoryFor time.Duration `yaml:"retain_history_for"`
}

func loadConfig(path string, cfg *config) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}
	return nil
}

func main() {
	log := logrus.New()
	cfg := config{RetainHistoryFor: 15 * time.Minute}
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:           "stratum",
		Short:         "inspect and maintain a document store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
			if err := loadConfig(configPath, &cfg); err != nil {
				return err
			}
			if cfg.Dir == "" {
				return fmt.Errorf("no store directory given, use --dir or a config file")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&cfg.Dir, "dir", "", "store directory")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	openStore := func(readOnly bool) (*docdb.DB, *storage.Pebble, error) {
		eng, err := storage.OpenPebble(storage.PebbleConfig{
			Dir:      cfg.Dir,
			ReadOnly: readOnly,
			Logger:   log,
		})
		if err != nil {
			return nil, nil, err
		}
		db := docdb.New(eng, docdb.Options{TableTTL: cfg.DefaultTTL, Logger: log})
		return db, eng, nil
	}

	dump := &cobra.Command{
		Use:   "dump",
		Short: "print every record of the store in key order",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, eng, err := openStore(true)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()
			out, err := db.DebugDump()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	var cutoffMicros int64
	compact := &cobra.Command{
		Use:   "compact",
		Short: "trim document history outside the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, eng, err := openStore(false)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()
			cutoff := hlc.FromMicros(cutoffMicros)
			if cutoffMicros == 0 {
				cutoff = hlc.FromMicros(time.Now().Add(-cfg.RetainHistoryFor).UnixMicro())
			}
			log.WithField("cutoff", cutoff.String()).Info("starting history compaction")
			return db.CompactHistory(docdb.HistoryRetention{
				Cutoff:   cutoff,
				TableTTL: cfg.DefaultTTL,
			})
		},
	}
	compact.Flags().Int64Var(&cutoffMicros, "cutoff-micros", 0,
		"history cutoff as physical microseconds, defaults to now minus the retention window")

	root.AddCommand(dump, compact)
	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
