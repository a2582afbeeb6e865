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

func TestPrioritizeByInDegree(t *testing.T) {
	// a -> b, c -> b: b has in-degree 2, a and c have in-degree 0.
	g := buildGraph(t, []string{"a.go", "b.go", "c.go"}, [][2]string{{"a.go", "b.go"}, {"c.go", "b.go"}})
	a := New(g)

	order := a.Prioritize([]string{"a.go", "b.go", "c.go"}, StrategyInDegree, nil)
	assert.Equal(t, "b.go", order[0])
}

func TestPrioritizeNoneStrategyFallsBackToExtraWeightsAndPathOrder(t *testing.T) {
	g := chainGraph(t)
	a := New(g)

	order := a.Prioritize([]string{"d.go", "a.go", "b.go"}, StrategyNone, nil)
	assert.Equal(t, []string{"a.go", "b.go", "d.go"}, order)
}

func TestPrioritizeExtraWeightsBreakTies(t *testing.T) {
	g := chainGraph(t)
	a := New(g)

	order := a.Prioritize([]string{"a.go", "b.go"}, StrategyNone, map[string]float64{"b.go": 5})
	assert.Equal(t, []string{"b.go", "a.go"}, order)
}
