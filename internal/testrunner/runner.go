// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testrunner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/aleutian-oss/depsentry/internal/errs"
)

// commandFor maps a test file's extension to the interpreter invocation
// that runs it. Extend this table, not the call sites, to add a language.
var commandFor = map[string][]string{
	".py": {"python3", "-m", "pytest", "-q"},
	".go": {"go", "test"},
	".js": {"node", "--test"},
	".ts": {"node", "--test"},
}

// Runner discovers and executes tests, and backs the Repair Coordinator's
// patch validation.
//
// Thread Safety: safe for concurrent use; Runner carries no mutable state.
type Runner struct {
	options Options
}

// New builds a Runner with the given options; a zero-value Timeout is
// replaced with DefaultOptions().Timeout.
func New(options Options) *Runner {
	if options.Timeout <= 0 {
		options.Timeout = DefaultOptions().Timeout
	}
	return &Runner{options: options}
}

// RunTest executes a single test path under a timeout, classifying the
// outcome the same way the lint runner classifies a linter invocation:
// a deadline-exceeded context is a timeout, and a non-zero exit with no
// stdout but some stderr is treated as the runner itself failing to run
// rather than a genuine test failure.
func (r *Runner) RunTest(ctx context.Context, testPath string) (*Result, error) {
	start := time.Now()

	cmdArgs, ok := commandFor[filepath.Ext(testPath)]
	if !ok {
		return nil, errs.New(errs.KindNoAnalysis, errs.SeverityLow,
			fmt.Sprintf("no test runner registered for %s", filepath.Ext(testPath))).
			WithFile(testPath, 0)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.options.Timeout)
	defer cancel()

	args := append(append([]string{}, cmdArgs[1:]...), testPath)
	cmd := exec.CommandContext(cmdCtx, cmdArgs[0], args...)
	if r.options.WorkingDir != "" {
		cmd.Dir = r.options.WorkingDir
	} else {
		cmd.Dir = filepath.Dir(testPath)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	duration := time.Since(start)

	if cmdCtx.Err() == context.DeadlineExceeded {
		return &Result{TestPath: testPath, Kind: KindTimeout, Output: stderr.String(), Duration: duration},
			errs.New(errs.KindTimeout, errs.SeverityMedium, "test run exceeded timeout").
				WithFile(testPath, 0).
				WithDetails(map[string]any{"timeout": r.options.Timeout.String()})
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if runErr != nil && stdout.Len() == 0 && stderr.Len() > 0 {
		return &Result{TestPath: testPath, Kind: KindError, Output: stderr.String(), Duration: duration},
			errs.New(errs.KindNoAnalysis, errs.SeverityMedium, "test runner failed to execute").
				WithFile(testPath, 0).
				WithDetails(map[string]any{"stderr": stderr.String()})
	}

	output := stdout.String() + stderr.String()
	if runErr != nil {
		return &Result{TestPath: testPath, Kind: KindFailed, Output: output, Duration: duration}, nil
	}
	return &Result{TestPath: testPath, Kind: KindPassed, Output: output, Duration: duration}, nil
}

// RunAll runs every path in testPaths sequentially, stopping at the first
// failure-or-error result since validate-patch only needs a yes/no answer
// and the failing Result to report.
func (r *Runner) RunAll(ctx context.Context, testPaths []string) ([]Result, error) {
	results := make([]Result, 0, len(testPaths))
	for _, p := range testPaths {
		res, err := r.RunTest(ctx, p)
		if err != nil && res == nil {
			return results, err
		}
		results = append(results, *res)
		if !res.Passed() {
			break
		}
	}
	return results, nil
}

// allPassed reports whether every result in results passed.
func allPassed(results []Result) bool {
	for _, res := range results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// firstFailure returns a one-line summary of the first non-passing
// result, or "" if every result passed.
func firstFailure(results []Result) string {
	for _, res := range results {
		if !res.Passed() {
			return fmt.Sprintf("%s: %s", res.TestPath, strings.TrimSpace(firstLine(res.Output)))
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
