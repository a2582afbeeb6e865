// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graphanalysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImpactScoreRootOfChainScoresHigherThanLeaf(t *testing.T) {
	g := chainGraph(t)
	a := New(g)

	// Edges run a -> b -> c -> d, so d.go, the root of the chain, is
	// depended on (transitively) by a, b and c; a.go is the leaf nobody
	// depends on.
	assert.Greater(t, a.ImpactScore("d.go"), a.ImpactScore("a.go"))
}

func TestImpactScoreSingleNodeGraphIsZero(t *testing.T) {
	g := buildGraph(t, []string{"only.go"}, nil)
	a := New(g)
	assert.Equal(t, 0.0, a.ImpactScore("only.go"))
}

func TestImpactScoreUnknownPathIsZero(t *testing.T) {
	g := chainGraph(t)
	a := New(g)
	assert.Equal(t, 0.0, a.ImpactScore("missing.go"))
}
