// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunCollectsPerItemErrorsWithoutAborting(t *testing.T) {
	n := 10
	results := Run(context.Background(), n, 3, func(ctx context.Context, i int) error {
		if i%2 == 0 {
			return errors.New("boom")
		}
		return nil
	})

	require := assert.New(t)
	require.Len(results, n)
	for i, err := range results {
		if i%2 == 0 {
			require.Error(err)
		} else {
			require.NoError(err)
		}
	}
}

func TestRunRespectsMaxWorkersBound(t *testing.T) {
	var concurrent int32
	var maxSeen int32

	Run(context.Background(), 50, 4, func(ctx context.Context, i int) error {
		cur := atomic.AddInt32(&concurrent, 1)
		for {
			prev := atomic.LoadInt32(&maxSeen)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, cur) {
				break
			}
		}
		atomic.AddInt32(&concurrent, -1)
		return nil
	})

	assert.LessOrEqual(t, maxSeen, int32(4))
}
