// Package sindex maintains a persistent semantic index of the identifiers
// in a body of C source code. For every occurrence of a named entity —
// variable, function, struct/union tag, or member — it records where the
// occurrence is, what kind of entity it is, how it is accessed, and the
// enclosing definition, in a SQLite database that can then be queried by
// name, location, access mode, or kind.
//
// # Pipeline
//
// Indexing runs in two phases:
//
//  1. Analyze: each input file is parsed by the tree-sitter based C
//     frontend, which reports definitions and uses to the engine's
//     reporter sink. Records are normalized (composite member names,
//     access-mode bitfields, locality filtering) and written to an
//     in-memory staging table attached to the store.
//
//  2. Publish: when the frontend has emitted its last record, the staged
//     rows are merged into the persistent table in a single transaction.
//     Duplicate occurrences coalesce; readers never observe a partial run.
//
// File identity is incremental: source paths map to stable file ids, and a
// path whose modification time has changed is invalidated wholesale — its
// old records are removed by cascade before the new ones land.
//
// # Usage
//
// Create an Engine, index some files, and search:
//
//	e, err := sindex.New("sindex.sqlite", true)
//	if err != nil { ... }
//	defer e.Close()
//
//	err = e.Add(ctx, []string{"main.c", "util.c"})
//
//	recs, err := e.Search(sindex.SearchOptions{Symbol: "refcount"})
//
// Search results come back ordered by file name, line and column, which is
// what lets the [Formatter] extract source lines with a single forward
// pass per file.
package sindex
