// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command depsentry is the thin CLI collaborator around the dependency
// graph, bug detector, and repair coordinator: analyze a repo, list its
// most central files, find import cycles, detect bug candidates in a
// file or folder, drive one repair, or validate a candidate patch
// against its related tests.
//
// Usage:
//
//	depsentry analyze ./myrepo
//	depsentry central ./myrepo --metric pagerank --top 10
//	depsentry cycles ./myrepo
//	depsentry detect ./myrepo/app.py
//	depsentry detect ./myrepo --folder
//	depsentry validate ./myrepo/app.py --patch ./candidate.py
//
// Exit codes: 0 success, 1 partial success or failed verification,
// 2 hard error (bad arguments, I/O failure, analysis never ran).
package main

import (
	"log"
	"os"
)

// exitCode is set by a RunE body to request 1 (partial success / tests
// failed) instead of cobra's default 0; a RunE that returns a non-nil
// error always exits 2, matching spec §6's 0/1/2 contract.
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
