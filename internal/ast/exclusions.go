// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ast

// Exclusions is a per-language curated list of module/package prefixes
// that a parser should never try to resolve against the repo: the
// standard library, and common external packages whose source does not
// live in the scanned tree. Spec §4.3 calls for these lists to be
// configurable per language rather than hardcoded, so the Python and
// JS/TS parser constructors accept an Exclusions override. The Go
// parser takes no Exclusions; it resolves only imports under its
// configured module prefix.
type Exclusions struct {
	// Prefixes is matched against the import specifier: an exact match,
	// or a match up to the next "/" or ".", excludes the import from
	// resolution attempts entirely (it is dropped, not erred).
	Prefixes []string
}

// Matches reports whether spec falls under one of e's excluded prefixes.
func (e Exclusions) Matches(spec string) bool {
	for _, prefix := range e.Prefixes {
		if spec == prefix {
			return true
		}
		if len(spec) > len(prefix) && spec[:len(prefix)] == prefix {
			next := spec[len(prefix)]
			if next == '/' || next == '.' {
				return true
			}
		}
	}
	return false
}

// DefaultPythonExclusions covers the CPython standard library's most
// commonly imported top-level modules.
func DefaultPythonExclusions() Exclusions {
	return Exclusions{Prefixes: []string{
		"os", "sys", "re", "json", "typing", "collections", "itertools",
		"functools", "pathlib", "dataclasses", "abc", "enum", "math",
		"random", "time", "datetime", "logging", "argparse", "subprocess",
		"threading", "multiprocessing", "asyncio", "unittest", "io",
		"shutil", "tempfile", "hashlib", "copy", "contextlib", "warnings",
		"traceback", "inspect", "string", "struct", "socket", "http",
		"urllib", "xml", "csv", "sqlite3", "pickle", "base64", "uuid",
	}}
}

// DefaultJSExclusions covers Node builtins and the most common external
// registry packages.
func DefaultJSExclusions() Exclusions {
	return Exclusions{Prefixes: []string{
		"fs", "path", "os", "http", "https", "crypto", "util", "events",
		"stream", "child_process", "assert", "url", "querystring", "net",
		"react", "react-dom", "lodash", "axios", "express", "vue",
		"next", "webpack", "typescript", "jest", "eslint",
	}}
}
