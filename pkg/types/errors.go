package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the core engine. Callers distinguish failure kinds with
// errors.Is; backend errors are wrapped with context but never substituted.
var (
	// ErrProjectNotFound is returned when the named project does not exist
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectExists is returned when creating a project whose name is taken
	ErrProjectExists = errors.New("project already exists")
	// ErrAlreadyIndexing is returned when a project has a (re)index in flight
	ErrAlreadyIndexing = errors.New("project is already being indexed")
	// ErrEmptyIndex is returned when searching a project with zero embedded blocks
	ErrEmptyIndex = errors.New("no embedded blocks to search")
	// ErrBlockNotFound is returned when a requested block does not exist
	ErrBlockNotFound = errors.New("block not found")
	// ErrDimensionMismatch is returned when a query vector's dimension disagrees
	// with the indexed dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Search result validation errors
var (
	ErrInvalidRank      = errors.New("rank must be >= 1")
	ErrNegativeDistance = errors.New("distance cannot be negative")
)

// DimensionError wraps ErrDimensionMismatch with the disagreeing dimensions.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index has %d, query has %d", e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// ParseFailure records a per-file parse error during indexing. It is carried
// in the IndexReport and never aborts the rest of the batch.
type ParseFailure struct {
	Path    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface
func (pf *ParseFailure) Error() string {
	if pf.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", pf.Path, pf.Line, pf.Column, pf.Message)
	}
	return fmt.Sprintf("%s: %s", pf.Path, pf.Message)
}

// EmbeddingFailure records a per-block embedding error during indexing.
// The affected block is stored without an embedding and excluded from
// similarity search until re-embedded.
type EmbeddingFailure struct {
	Path  string
	Block string
	Err   error
}

// Error implements the error interface
func (ef *EmbeddingFailure) Error() string {
	return fmt.Sprintf("embedding %s in %s: %v", ef.Block, ef.Path, ef.Err)
}

func (ef *EmbeddingFailure) Unwrap() error {
	return ef.Err
}
