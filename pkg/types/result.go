package types

// SearchResult pairs a code block with its distance to the query vector.
// Results are ordered by non-decreasing distance; equal distances are
// tie-broken by ascending block ID so output is deterministic.
type SearchResult struct {
	Block    *CodeBlock
	Distance float64
	Rank     int // Position in result set (1-based)
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Block == nil {
		return ErrBlockNotFound
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.Distance < 0 {
		return ErrNegativeDistance
	}

	return nil
}
