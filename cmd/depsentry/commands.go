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
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/aleutian-oss/depsentry/pkg/logging"
)

// --- Global command flags ---
var (
	includeGlobs []string
	excludeGlobs []string
	maxWorkers   int

	metricFlag string
	topN       int

	folderMode  bool
	threshold   float64
	maxFileSize int

	patchPath   string
	relatedOnly bool

	logDir              string
	logLevel            string
	logJSON             bool
	traceOn             bool
	cfgPath             string
	watchFS             bool
	centralityCachePath string

	// appLogger is built from the above flags in rootCmd's
	// PersistentPreRun; every command that accepts a *slog.Logger
	// collaborator (the detector, the repair coordinator, the graph
	// builder) is handed appLogger.Slog().
	appLogger *logging.Logger

	// telemetryShutdown flushes and closes the OTel providers set up by
	// --trace; nil when tracing was never enabled.
	telemetryShutdown func(context.Context) error

	rootCmd = &cobra.Command{
		Use:   "depsentry",
		Short: "Analyzes, diagnoses, and repairs a codebase's dependency graph and bug candidates",
		Long: `depsentry builds a typed dependency graph across a codebase's source
files, detects bug candidates with pattern, syntactic, and context-aware
analysis, and drives verifiable repairs with atomic apply and rollback.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			appLogger = logging.New(logging.Config{
				Level:   parseLogLevel(logLevel),
				LogDir:  logDir,
				Service: "depsentry",
				JSON:    logJSON,
			})
			if fc, err := loadFileConfig(cfgPath); err != nil {
				appLogger.Slog().Warn("ignoring config file", "path", cfgPath, "error", err)
			} else {
				applyFileConfig(fc)
			}
			if traceOn {
				shutdown, err := setupTelemetry(cmd.Context(), os.Stderr, os.Stderr)
				if err != nil {
					appLogger.Slog().Warn("telemetry setup failed, continuing without span/metric export", "error", err)
				} else {
					telemetryShutdown = shutdown
				}
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if telemetryShutdown != nil {
				_ = telemetryShutdown(cmd.Context())
			}
			appLogger.Close()
		},
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [root]",
		Short: "Builds the dependency graph for a repo and prints a summary",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze,
	}

	centralCmd = &cobra.Command{
		Use:   "central [root]",
		Short: "Lists the most central files by a centrality metric",
		Args:  cobra.ExactArgs(1),
		RunE:  runCentral,
	}

	cyclesCmd = &cobra.Command{
		Use:   "cycles [root]",
		Short: "Finds import cycles in a repo's dependency graph",
		Args:  cobra.ExactArgs(1),
		RunE:  runCycles,
	}

	detectCmd = &cobra.Command{
		Use:   "detect [path]",
		Short: "Detects bug candidates in a file, or a folder with --folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetect,
	}

	repairCmd = &cobra.Command{
		Use:   "repair [file] [patch-file]",
		Short: "Applies a patch to a file, verifies it against related tests, and rolls back on failure",
		Args:  cobra.ExactArgs(2),
		RunE:  runRepair,
	}

	validateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "Runs a file's related tests against a candidate patch without committing it",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
)

// parseLogLevel maps a --log-level flag value to a logging.Level,
// defaulting to Info on anything it doesn't recognize.
func parseLogLevel(s string) logging.Level {
	switch s {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&includeGlobs, "include", nil, "glob patterns of files to include (default: all supported languages)")
	rootCmd.PersistentFlags().StringSliceVar(&excludeGlobs, "exclude", nil, "glob patterns of files to exclude")
	rootCmd.PersistentFlags().IntVar(&maxWorkers, "max-workers", 0, "maximum concurrent workers (default: 8)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "directory to also write JSON logs to (default: stderr only)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "minimum log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "format stderr logs as JSON instead of text")
	rootCmd.PersistentFlags().BoolVar(&traceOn, "trace", false, "export spans and metrics to stderr via the OpenTelemetry stdout exporters")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a depsentry.yaml providing defaults for include/exclude/threshold/max-workers/max-file-size")
	rootCmd.PersistentFlags().BoolVar(&watchFS, "watch", false, "invalidate the graph builder's stat cache opportunistically on out-of-process file changes under root, via fsnotify")
	rootCmd.PersistentFlags().StringVar(&centralityCachePath, "centrality-cache", "", "directory for a badger-backed cross-session cache of PageRank/Betweenness results, keyed by graph content hash")

	centralCmd.Flags().StringVar(&metricFlag, "metric", "pagerank", "centrality metric: pagerank, in_degree, out_degree, betweenness")
	centralCmd.Flags().IntVar(&topN, "top", 10, "number of files to list")

	detectCmd.Flags().BoolVar(&folderMode, "folder", false, "treat path as a folder and analyze every file under it")
	detectCmd.Flags().Float64Var(&threshold, "threshold", 0, "false-positive probability threshold (default: detector default, 0.8)")
	detectCmd.Flags().IntVar(&maxFileSize, "max-file-size", 0, "maximum file size in bytes to analyze (default: detector default)")

	repairCmd.Flags().StringSliceVar(&includeGlobs, "related-tests", nil, "explicit test paths to verify with (default: auto-discovered)")

	validateCmd.Flags().StringVar(&patchPath, "patch", "", "path to the candidate patch content (required)")
	validateCmd.Flags().BoolVar(&relatedOnly, "related-only", true, "restrict verification to auto-discovered related tests")
	validateCmd.MarkFlagRequired("patch")

	rootCmd.AddCommand(analyzeCmd, centralCmd, cyclesCmd, detectCmd, repairCmd, validateCmd)
}
