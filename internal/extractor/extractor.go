package extractor

import (
	"fmt"
	"path/filepath"

	"github.com/getAsterisk/blockoli/pkg/types"
)

// Extractor turns source files into CodeBlock candidates using registered
// parser capabilities. It is safe for concurrent use: parsers are selected by
// file extension and each Parse call is independent.
type Extractor struct {
	parsers map[string]Parser // keyed by extension, including the dot
}

// New creates an Extractor with the built-in Go parser registered
func New() *Extractor {
	e := &Extractor{parsers: make(map[string]Parser)}
	e.Register(NewGoParser())
	return e
}

// Register adds a parser capability; later registrations win on extension conflicts
func (e *Extractor) Register(p Parser) {
	for _, ext := range p.Extensions() {
		e.parsers[ext] = p
	}
}

// Supports reports whether any registered parser claims the file's extension
func (e *Extractor) Supports(path string) bool {
	_, ok := e.parsers[filepath.Ext(path)]
	return ok
}

// Extensions lists every extension a registered parser claims
func (e *Extractor) Extensions() []string {
	exts := make([]string, 0, len(e.parsers))
	for ext := range e.parsers {
		exts = append(exts, ext)
	}
	return exts
}

// ExtractFile parses one source file and returns its block candidates.
// A *types.ParseFailure error means the file is malformed or unsupported and
// contributed nothing; the caller isolates it from the rest of the batch.
func (e *Extractor) ExtractFile(file types.SourceFile) (*types.ParseResult, error) {
	p, ok := e.parsers[filepath.Ext(file.Path)]
	if !ok {
		return nil, &types.ParseFailure{
			Path:    file.Path,
			Message: fmt.Sprintf("no parser registered for %q files", filepath.Ext(file.Path)),
		}
	}

	result, err := p.Parse(file.Path, file.Source)
	if err != nil {
		return nil, &types.ParseFailure{Path: file.Path, Message: err.Error()}
	}

	// A file that parsed to nothing and reported errors failed outright
	if len(result.Blocks) == 0 && result.HasErrors() {
		pf := result.Errors[0]
		return nil, &pf
	}

	return result, nil
}
