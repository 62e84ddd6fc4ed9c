package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexReportAddFile(t *testing.T) {
	r := &IndexReport{RunID: "run-1", Project: "demo"}

	r.AddFile(FileStatus{Path: "a.go", Parsed: true, BlocksFound: 3, BlocksEmbedded: 3})
	r.AddFile(FileStatus{Path: "b.go", Parsed: true, BlocksFound: 2, BlocksEmbedded: 1,
		EmbedErrors: []EmbeddingFailure{{Path: "b.go", Block: "Run", Err: errors.New("timeout")}}})
	r.AddFile(FileStatus{Path: "c.go", Parsed: false,
		ParseError: &ParseFailure{Path: "c.go", Line: 1, Column: 1, Message: "expected 'package'"}})

	assert.Equal(t, 5, r.BlocksIndexed)
	assert.Equal(t, 4, r.BlocksEmbedded)
	assert.Equal(t, 1, r.FilesFailed)
	assert.Len(t, r.Files, 3)
}

func TestIndexReportErrors(t *testing.T) {
	r := &IndexReport{}
	assert.Empty(t, r.Errors())

	r.AddFile(FileStatus{Path: "b.go", Parsed: true, BlocksFound: 1,
		EmbedErrors: []EmbeddingFailure{{Path: "b.go", Block: "Run", Err: errors.New("timeout")}}})
	r.AddFile(FileStatus{Path: "c.go",
		ParseError: &ParseFailure{Path: "c.go", Message: "bad syntax"}})

	msgs := r.Errors()
	assert.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Run")
	assert.Contains(t, msgs[1], "c.go")
}

func TestFileStatusFailed(t *testing.T) {
	parsed := FileStatus{Path: "a.go", Parsed: true}
	assert.False(t, parsed.Failed())

	// Partial parses still contribute blocks, so they do not count as failed
	partial := FileStatus{Path: "b.go", Parsed: true,
		ParseError: &ParseFailure{Path: "b.go", Message: "unexpected EOF"}}
	assert.False(t, partial.Failed())

	failed := FileStatus{Path: "c.go", Parsed: false}
	assert.True(t, failed.Failed())
}

func TestSearchResultValidate(t *testing.T) {
	block := validBlock()

	ok := SearchResult{Block: block, Distance: 0.5, Rank: 1}
	assert.NoError(t, ok.Validate())

	missing := SearchResult{Distance: 0.5, Rank: 1}
	assert.ErrorIs(t, missing.Validate(), ErrBlockNotFound)

	badRank := SearchResult{Block: block, Distance: 0.5, Rank: 0}
	assert.ErrorIs(t, badRank.Validate(), ErrInvalidRank)

	negative := SearchResult{Block: block, Distance: -0.1, Rank: 1}
	assert.ErrorIs(t, negative.Validate(), ErrNegativeDistance)
}
