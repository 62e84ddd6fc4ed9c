package types

// SourceFile is one unit of input to a reindex: a path and its source text.
type SourceFile struct {
	Path   string
	Source []byte
}

// ParseResult represents the output of parsing one source file
type ParseResult struct {
	Path        string
	PackageName string

	// Extracted block candidates, in source order, without embeddings
	Blocks []*CodeBlock

	// Errors encountered during parsing; a non-empty list does not
	// necessarily mean zero blocks were extracted
	Errors []ParseFailure
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(path string, line, col int, msg string) {
	pr.Errors = append(pr.Errors, ParseFailure{
		Path:    path,
		Line:    line,
		Column:  col,
		Message: msg,
	})
}
