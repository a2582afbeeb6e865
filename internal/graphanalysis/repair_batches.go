// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graphanalysis

import (
	"context"
	"sort"
)

// RepairBatches partitions every file in the graph into ordered sets
// such that repairing batch i before batch i+1 never repairs a file
// before one of its dependencies. Files inside the same strongly
// connected component cannot be strictly ordered relative to one
// another (each depends, transitively, on every other), so they share
// a batch.
//
// Algorithm: condense the graph's SCCs into a single component-DAG
// node apiece, topologically sort that DAG, then expand each
// component back into its member file paths (sorted, for determinism).
func (a *Analyzer) RepairBatches(ctx context.Context) ([][]string, error) {
	sccs, err := a.graph.StronglyConnectedComponents(ctx)
	if err != nil {
		return nil, err
	}

	// Map every file to its component index.
	compOf := make(map[string]int, a.graph.NodeCount())
	for i, comp := range sccs {
		for _, p := range comp {
			compOf[p] = i
		}
	}

	// Build the condensed DAG's adjacency: compEdges[i] is the set of
	// components that component i has an edge into (dependency targets).
	compEdges := make([]map[int]struct{}, len(sccs))
	for i := range compEdges {
		compEdges[i] = make(map[int]struct{})
	}
	indegree := make([]int, len(sccs))
	for i, comp := range sccs {
		for _, p := range comp {
			for _, succ := range a.graph.Successors(p) {
				j := compOf[succ]
				if j == i {
					continue
				}
				if _, exists := compEdges[i][j]; !exists {
					compEdges[i][j] = struct{}{}
					indegree[j]++
				}
			}
		}
	}

	// Kahn's algorithm over the condensed DAG. Repairs must proceed
	// dependency-first: a component with no unrepaired dependency (i.e.
	// zero remaining out-edges satisfied) is repairable, so we sort by
	// out-edges rather than in-edges — a component that depends on
	// nothing else (out-degree 0 within the DAG) goes first.
	outstanding := make([]int, len(sccs))
	for i := range sccs {
		outstanding[i] = len(compEdges[i])
	}
	// reverse adjacency: who depends on component i
	dependents := make([]map[int]struct{}, len(sccs))
	for i := range dependents {
		dependents[i] = make(map[int]struct{})
	}
	for i, targets := range compEdges {
		for j := range targets {
			dependents[j][i] = struct{}{}
		}
	}

	batches := make([][]string, 0)
	remaining := len(sccs)
	done := make([]bool, len(sccs))
	for remaining > 0 {
		ready := make([]int, 0)
		for i := 0; i < len(sccs); i++ {
			if !done[i] && outstanding[i] == 0 {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			// Should not happen: condensation of SCCs is always a DAG. Guard
			// against an infinite loop by flushing everything left.
			for i := 0; i < len(sccs); i++ {
				if !done[i] {
					ready = append(ready, i)
				}
			}
		}

		batch := make([]string, 0)
		for _, i := range ready {
			done[i] = true
			remaining--
			batch = append(batch, sccs[i]...)
		}
		for _, i := range ready {
			for dep := range dependents[i] {
				outstanding[dep]--
			}
		}
		sort.Strings(batch)
		batches = append(batches, batch)
	}

	return batches, nil
}
