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

import "sort"

// Strategy names a centrality measure to rank files by in Prioritize.
type Strategy string

const (
	StrategyPageRank    Strategy = "pagerank"
	StrategyInDegree    Strategy = "in_degree"
	StrategyOutDegree   Strategy = "out_degree"
	StrategyBetweenness Strategy = "betweenness"
	StrategyNone        Strategy = "none"
)

// Prioritize returns files sorted descending by score(f) +
// extraWeights[f], where score is whichever centrality strategy names.
// extraWeights may be nil; a missing entry contributes 0. Ties break by
// path, ascending, for determinism.
func (a *Analyzer) Prioritize(files []string, strategy Strategy, extraWeights map[string]float64) []string {
	scoreOf := a.scoreFunc(strategy)

	type scored struct {
		path  string
		score float64
	}
	ranked := make([]scored, 0, len(files))
	for _, f := range files {
		s := scoreOf(f)
		if extraWeights != nil {
			s += extraWeights[f]
		}
		ranked = append(ranked, scored{path: f, score: s})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].path < ranked[j].path
	})

	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.path
	}
	return out
}

func (a *Analyzer) scoreFunc(strategy Strategy) func(string) float64 {
	switch strategy {
	case StrategyPageRank:
		pr := a.PageRank(DefaultPageRankOptions())
		return func(f string) float64 { return pr[f] }
	case StrategyInDegree:
		return func(f string) float64 { return float64(a.InDegree(f)) }
	case StrategyOutDegree:
		return func(f string) float64 { return float64(a.OutDegree(f)) }
	case StrategyBetweenness:
		b := a.Betweenness()
		return func(f string) float64 { return b[f] }
	default:
		return func(string) float64 { return 0 }
	}
}
