// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workerpool provides the bounded-concurrency fan-out shared by
// the Graph Builder's per-file parse dispatch and the Bug Detector's
// folder scan: run N independent units of work with at most maxWorkers
// in flight, collecting a per-item result (success or error) without
// letting one item's failure abort the rest.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Run executes work(i) for every i in [0, n) with at most maxWorkers
// goroutines in flight at once, and returns the i'th result of work in
// results[i]. A work function's error is recorded, not propagated: Run
// never aborts early because one item failed, matching the Graph
// Builder's "per-file parse failures don't abort the build" policy.
//
// maxWorkers <= 0 is treated as 1.
func Run(ctx context.Context, n, maxWorkers int, work func(ctx context.Context, i int) error) []error {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	results := make([]error, n)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			results[i] = work(gCtx, i)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
