// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package depgraph

import (
	"context"
	"sort"
)

// tarjanContextCheckInterval bounds how often a long-running SCC walk
// checks ctx for cancellation, so the check itself doesn't dominate
// runtime on large graphs.
const tarjanContextCheckInterval = 1000

const (
	phaseInit         = 0
	phaseProcessEdges = 1
	phasePostChild    = 2
	phaseFinalize     = 3
)

// tarjanFrame is one stack frame of the iterative Tarjan walk. Using an
// explicit stack instead of native recursion keeps this safe on import
// graphs many thousands of files deep, and lets the walk check ctx
// between frames instead of only between top-level calls.
type tarjanFrame struct {
	nodeID    string
	edgeIndex int
	childID   string
	phase     int
}

// tarjanState carries the algorithm's working sets across every
// connected component processed by StronglyConnectedComponents.
type tarjanState struct {
	index   map[string]int
	lowlink map[string]int
	onStack map[string]bool
	stack   []string // the Tarjan "S" stack of nodes in an open component
	counter int
	comps   [][]string
}

// StronglyConnectedComponents returns every strongly connected
// component of the graph, including singletons, using Tarjan's
// algorithm. Components are returned in the order their root was
// finalized; node order within a component is insertion order from the
// algorithm's pop, not sorted, since that order has no defined meaning
// beyond "this component".
//
// ctx is checked periodically; on cancellation the components found so
// far are returned alongside ctx.Err().
func (g *DependencyGraph) StronglyConnectedComponents(ctx context.Context) ([][]string, error) {
	st := &tarjanState{
		index:   make(map[string]int, len(g.nodes)),
		lowlink: make(map[string]int, len(g.nodes)),
		onStack: make(map[string]bool, len(g.nodes)),
		comps:   make([][]string, 0),
	}

	if ctx != nil && ctx.Err() != nil {
		return st.comps, ctx.Err()
	}

	iterations := 0
	for _, node := range g.Nodes() {
		if _, visited := st.index[node.Path]; visited {
			continue
		}
		if err := g.tarjanWalk(ctx, node.Path, st, &iterations); err != nil {
			return st.comps, err
		}
	}
	return st.comps, nil
}

// tarjanWalk runs the iterative DFS for one connected component rooted
// at startID, accumulating completed components into st.comps.
func (g *DependencyGraph) tarjanWalk(ctx context.Context, startID string, st *tarjanState, iterations *int) error {
	frames := make([]tarjanFrame, 0, 64)
	frames = append(frames, tarjanFrame{nodeID: startID, phase: phaseInit})

	for len(frames) > 0 {
		*iterations++
		if *iterations%tarjanContextCheckInterval == 0 && ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		frame := &frames[len(frames)-1]

		switch frame.phase {
		case phaseInit:
			st.index[frame.nodeID] = st.counter
			st.lowlink[frame.nodeID] = st.counter
			st.counter++
			st.stack = append(st.stack, frame.nodeID)
			st.onStack[frame.nodeID] = true
			frame.edgeIndex = 0
			frame.phase = phaseProcessEdges

		case phaseProcessEdges:
			successors := g.Successors(frame.nodeID)
			advanced := false
			for frame.edgeIndex < len(successors) {
				w := successors[frame.edgeIndex]
				frame.edgeIndex++

				if _, visited := st.index[w]; !visited {
					frame.phase = phasePostChild
					frame.childID = w
					frames = append(frames, tarjanFrame{nodeID: w, phase: phaseInit})
					advanced = true
					break
				}
				if st.onStack[w] {
					if st.index[w] < st.lowlink[frame.nodeID] {
						st.lowlink[frame.nodeID] = st.index[w]
					}
				}
			}
			if advanced {
				continue
			}
			frame.phase = phaseFinalize

		case phasePostChild:
			if st.lowlink[frame.childID] < st.lowlink[frame.nodeID] {
				st.lowlink[frame.nodeID] = st.lowlink[frame.childID]
			}
			frame.phase = phaseProcessEdges

		case phaseFinalize:
			if st.lowlink[frame.nodeID] == st.index[frame.nodeID] {
				component := make([]string, 0)
				for {
					n := st.stack[len(st.stack)-1]
					st.stack = st.stack[:len(st.stack)-1]
					st.onStack[n] = false
					component = append(component, n)
					if n == frame.nodeID {
						break
					}
				}
				st.comps = append(st.comps, component)
			}
			frames = frames[:len(frames)-1]
		}
	}
	return nil
}

// FindCycles returns every strongly connected component of size >= 2
// (genuine multi-file cycles) plus every single-node component whose
// node carries a self-loop edge, per spec §4.4's find_cycles contract.
// Components are sorted for deterministic output: by size descending,
// then lexicographically by their smallest member.
func (g *DependencyGraph) FindCycles(ctx context.Context) ([][]string, error) {
	comps, err := g.StronglyConnectedComponents(ctx)
	if err != nil {
		return nil, err
	}

	cycles := make([][]string, 0)
	for _, comp := range comps {
		if len(comp) >= 2 {
			cycles = append(cycles, sortedPaths(comp))
			continue
		}
		node := comp[0]
		if g.hasSelfLoop(node) {
			cycles = append(cycles, []string{node})
		}
	}

	sort.Slice(cycles, func(i, j int) bool {
		if len(cycles[i]) != len(cycles[j]) {
			return len(cycles[i]) > len(cycles[j])
		}
		return cycles[i][0] < cycles[j][0]
	})
	return cycles, nil
}

func (g *DependencyGraph) hasSelfLoop(path string) bool {
	for _, e := range g.outgoing[path] {
		if e.Target == path {
			return true
		}
	}
	return false
}
