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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithBadgerCache makes centrality results survive across process
// restarts: PageRank and Betweenness check db before recomputing and
// write their result back into it, keyed off a hash of the graph's
// current content. Grounded on the teacher's GraphAnalytics, whose
// getCachedPathQueryResult/setCachedPathQueryResult (services/trace/
// graph/analytics.go) do the same for path queries — no TTL, the key
// itself expires when the graph's content changes.
func WithBadgerCache(db *badger.DB, logger *slog.Logger) Option {
	return func(a *Analyzer) {
		a.db = db
		a.cacheLogger = logger
	}
}

// graphHash fingerprints the graph's current content (every node's
// path and content hash) so a cache key naturally goes stale the
// instant the graph it was computed for changes, without needing an
// explicit invalidation call.
func (a *Analyzer) graphHash() string {
	nodes := a.graph.Nodes()
	paths := make([]string, len(nodes))
	byPath := make(map[string]string, len(nodes))
	for i, n := range nodes {
		paths[i] = n.Path
		byPath[n.Path] = n.Hash
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(byPath[p]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// centralityCacheKey names one metric's cached result for the graph's
// current content. variant distinguishes PageRank computed under
// different options from the plain Betweenness key.
func (a *Analyzer) centralityCacheKey(metric, variant string) string {
	return fmt.Sprintf("depsentry:centrality:%s:%s:%s", metric, a.graphHash(), variant)
}

// getCachedScores attempts a badger lookup for key. Returns (nil,
// false) whenever caching is disabled, the key is absent, or the
// cached value fails to decode — any of those is just a cache miss.
func (a *Analyzer) getCachedScores(key string) (map[string]float64, bool) {
	if a.db == nil {
		return nil, false
	}

	var scores map[string]float64
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &scores)
		})
	})
	if err != nil {
		if err != badger.ErrKeyNotFound && a.cacheLogger != nil {
			a.cacheLogger.Warn("graphanalysis: badger cache read error", "key", key, "error", err)
		}
		return nil, false
	}
	return scores, true
}

// setCachedScores stores scores under key. Failures are logged, not
// returned — a failed cache write never fails the query that computed
// the result it's trying to save.
func (a *Analyzer) setCachedScores(key string, scores map[string]float64) {
	if a.db == nil {
		return
	}

	value, err := json.Marshal(scores)
	if err != nil {
		return
	}
	if err := a.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil && a.cacheLogger != nil {
		a.cacheLogger.Warn("graphanalysis: badger cache write error", "key", key, "error", err)
	}
}
