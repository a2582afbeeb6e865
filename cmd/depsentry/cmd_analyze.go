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

	"github.com/spf13/cobra"

	"github.com/aleutian-oss/depsentry/internal/relationship"
)

// newRelationshipService builds a relationship.Service wired to every
// CLI flag that affects graph construction and analysis. The second
// return value closes the badger centrality cache (a no-op if
// --centrality-cache was never set) and must be deferred alongside
// Service.Close.
func newRelationshipService() (*relationship.Service, func() error, error) {
	opts, err := buildOptionsFromFlags()
	if err != nil {
		return nil, nil, err
	}
	db, closeCache, err := openCentralityCache()
	if err != nil {
		return nil, nil, fmt.Errorf("opening centrality cache: %w", err)
	}
	svc := relationship.New(newRegistry(), opts...)
	svc.SetAnalyzerOptions(analyzerOptionsFromFlags(db)...)
	return svc, closeCache, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	root := args[0]
	svc, closeCache, err := newRelationshipService()
	if err != nil {
		return err
	}
	defer closeCache()
	defer svc.Close()

	summary, err := svc.AnalyzeCodebase(cmd.Context(), root, false)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", root, err)
	}

	fmt.Printf("files analyzed:     %d\n", summary.FilesAnalyzed)
	fmt.Printf("dependencies found: %d\n", summary.DependenciesFound)
	fmt.Printf("cycles detected:    %d\n", summary.CyclesDetected)
	fmt.Printf("languages:          %v\n", summary.LanguagesDetected)
	return nil
}

func runCentral(cmd *cobra.Command, args []string) error {
	root := args[0]
	svc, closeCache, err := newRelationshipService()
	if err != nil {
		return err
	}
	defer closeCache()
	defer svc.Close()

	if _, err := svc.AnalyzeCodebase(cmd.Context(), root, false); err != nil {
		return fmt.Errorf("analyze %s: %w", root, err)
	}

	ranked, err := svc.GetMostCentralFiles(topN, relationship.Metric(metricFlag))
	if err != nil {
		return fmt.Errorf("central %s: %w", root, err)
	}

	for i, rf := range ranked {
		fmt.Printf("%3d. %-60s %.4f\n", i+1, rf.Path, rf.Score)
	}
	return nil
}

func runCycles(cmd *cobra.Command, args []string) error {
	root := args[0]
	svc, closeCache, err := newRelationshipService()
	if err != nil {
		return err
	}
	defer closeCache()
	defer svc.Close()

	if _, err := svc.AnalyzeCodebase(cmd.Context(), root, false); err != nil {
		return fmt.Errorf("analyze %s: %w", root, err)
	}

	cycles, err := svc.FindCycles(cmd.Context())
	if err != nil {
		return fmt.Errorf("cycles %s: %w", root, err)
	}

	if len(cycles) == 0 {
		fmt.Println("no cycles found")
		return nil
	}
	for i, cycle := range cycles {
		fmt.Printf("cycle %d: %v\n", i+1, cycle)
	}
	exitCode = 1
	return nil
}
