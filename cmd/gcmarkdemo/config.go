// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the demo's tunable parameters, loadable from a TOML file and
// overridable by flags.
type Config struct {
	Workers      int    `toml:"workers"`
	Objects      int    `toml:"objects"`
	FanOut       int    `toml:"fan_out"`
	Regions      int    `toml:"regions"`
	Stride       int    `toml:"stride"`
	Policy       string `toml:"policy"`
	DedupStrings bool   `toml:"dedup_strings"`
	SpinMaster   bool   `toml:"spin_master"`
	Verbose      bool   `toml:"verbose"`
}

// DefaultConfig returns the demo's built-in defaults.
func DefaultConfig() Config {
	return Config{
		Workers: 4,
		Objects: 200000,
		FanOut:  4,
		Regions: 16,
		Stride:  64,
		Policy:  "resolve",
	}
}

// LoadConfig reads a TOML config file, overlaying it on DefaultConfig.
// A missing path is not an error; callers pass "" to skip loading.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("gcmarkdemo: decode config %s: %w", path, err)
	}
	return cfg, nil
}
