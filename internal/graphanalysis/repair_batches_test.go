// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphanalysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairBatchesChainOrdersDependencyFirst(t *testing.T) {
	g := chainGraph(t)
	a := New(g)

	batches, err := a.RepairBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 4)
	assert.Equal(t, []string{"d.go"}, batches[0])
	assert.Equal(t, []string{"c.go"}, batches[1])
	assert.Equal(t, []string{"b.go"}, batches[2])
	assert.Equal(t, []string{"a.go"}, batches[3])
}

func TestRepairBatchesCycleSharesOneBatch(t *testing.T) {
	// A -> B -> C -> A forms a single SCC; D depends on C so it must
	// land in a batch after the cycle's batch.
	g := buildGraph(t,
		[]string{"A.go", "B.go", "C.go", "D.go"},
		[][2]string{{"A.go", "B.go"}, {"B.go", "C.go"}, {"C.go", "A.go"}, {"D.go", "C.go"}},
	)
	a := New(g)

	batches, err := a.RepairBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.ElementsMatch(t, []string{"A.go", "B.go", "C.go"}, batches[0])
	assert.Equal(t, []string{"D.go"}, batches[1])
}

func TestRepairBatchesEmptyGraph(t *testing.T) {
	a := New(buildGraph(t, nil, nil))
	batches, err := a.RepairBatches(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batches)
}
