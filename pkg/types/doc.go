// Package types provides shared type definitions for the blockoli engine.
//
// This package defines domain types used across multiple components,
// including code blocks, parse results, index reports, and search results.
//
// # Core Types
//
// CodeBlock represents one indexed unit of source code (a function or method)
// extracted via AST parsing:
//
//	block := &types.CodeBlock{
//	    Name:    "ParseFile",
//	    Scope:   "Parser",
//	    Path:    "internal/parser/parser.go",
//	    Kind:    types.BlockMethod,
//	    Content: source,
//	}
//
// A block's match key (Path, Name, Scope) identifies the same logical block
// across reindexes, so an unchanged function keeps its identity and a changed
// one is updated in place rather than duplicated.
//
// # Error Taxonomy
//
// Structural errors are sentinels checked with errors.Is:
//
//	if errors.Is(err, types.ErrProjectNotFound) { ... }
//
// Per-item failures during indexing (ParseFailure, EmbeddingFailure) are
// recorded in the IndexReport and never abort the batch: one bad file degrades
// the index, it does not corrupt it.
package types
