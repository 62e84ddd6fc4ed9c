package types

import (
	"crypto/sha256"
	"errors"
)

// BlockKind represents the kind of code block extracted from source
type BlockKind string

const (
	BlockFunction BlockKind = "function"
	BlockMethod   BlockKind = "method"
)

// CodeBlock represents one indexed unit of source code: a function or method
// definition with its location, raw text, and an optional embedding vector.
type CodeBlock struct {
	// Identification
	ID      int64  // Project-scoped, assigned by the store in insertion order
	Project string // Owning project name

	// Match key: (Path, Name, Scope) identifies the same block across reindexes
	Name  string // Function or method name
	Scope string // Enclosing scope (receiver type, parent function); empty for top-level
	Path  string // Source file path, relative to the project root when known

	// Location
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int

	// Content
	Kind        BlockKind
	Content     string
	ContentHash [32]byte // SHA-256 of Content, used for change detection

	// Embedding is nil until the embedding pipeline completes for this block.
	// Blocks without an embedding are excluded from similarity search.
	Embedding []float32
}

// MatchKey returns the identity used to match a block against a previously
// stored block on reindex.
func (b *CodeBlock) MatchKey() BlockKey {
	return BlockKey{Path: b.Path, Name: b.Name, Scope: b.Scope}
}

// BlockKey is the reindex match identity of a code block.
type BlockKey struct {
	Path  string
	Name  string
	Scope string
}

// HasEmbedding reports whether the block carries an embedding vector.
func (b *CodeBlock) HasEmbedding() bool {
	return len(b.Embedding) > 0
}

// ComputeContentHash fills ContentHash from Content.
func (b *CodeBlock) ComputeContentHash() {
	b.ContentHash = sha256.Sum256([]byte(b.Content))
}

// ValidateKind checks if the block kind is valid
func (b *CodeBlock) ValidateKind() error {
	switch b.Kind {
	case BlockFunction, BlockMethod:
		return nil
	default:
		return errors.New("invalid block kind")
	}
}

// Validate performs comprehensive validation of the block
func (b *CodeBlock) Validate() error {
	if b.Name == "" {
		return errors.New("block name is required")
	}

	if b.Path == "" {
		return errors.New("source file path is required")
	}

	if b.Content == "" {
		return errors.New("block content cannot be empty")
	}

	if err := b.ValidateKind(); err != nil {
		return err
	}

	if b.StartLine <= 0 || b.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if b.StartLine > b.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	if b.StartByte < 0 || b.EndByte < b.StartByte {
		return errors.New("invalid byte span")
	}

	return nil
}
