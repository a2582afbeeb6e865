// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig holds the subset of flags a project can pin in a
// depsentry.yaml at its root, so a team doesn't have to repeat the
// same --include/--exclude/--threshold flags on every invocation.
// Flags passed explicitly on the command line always win; this is
// read once in rootCmd's PersistentPreRun and only fills in values
// still at their zero value.
type fileConfig struct {
	Include     []string `yaml:"include"`
	Exclude     []string `yaml:"exclude"`
	MaxWorkers  int      `yaml:"max_workers"`
	Threshold   float64  `yaml:"threshold"`
	MaxFileSize int      `yaml:"max_file_size"`
}

// loadFileConfig reads and parses path, returning a zero-value
// fileConfig (not an error) if path is empty or doesn't exist — a
// project config file is an opt-in convenience, not a requirement.
func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// applyFileConfig fills in any of the global flag variables that were
// left at their zero value with cfg's corresponding setting.
func applyFileConfig(cfg fileConfig) {
	if len(includeGlobs) == 0 {
		includeGlobs = cfg.Include
	}
	if len(excludeGlobs) == 0 {
		excludeGlobs = cfg.Exclude
	}
	if maxWorkers == 0 {
		maxWorkers = cfg.MaxWorkers
	}
	if threshold == 0 {
		threshold = cfg.Threshold
	}
	if maxFileSize == 0 {
		maxFileSize = cfg.MaxFileSize
	}
}
