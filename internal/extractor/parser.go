package extractor

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"

	"github.com/getAsterisk/blockoli/pkg/types"
)

// Parser is the black-box parsing capability consumed by the extractor.
// Given source text it yields block candidates for one file; implementations
// exist per language grammar.
type Parser interface {
	// Parse parses one source file. Syntax errors are recorded in the
	// result rather than returned, so a partially valid file still yields
	// the blocks that could be extracted. A non-nil error means the file
	// produced nothing at all.
	Parse(path string, src []byte) (*types.ParseResult, error)

	// Language returns the grammar name this parser handles
	Language() string

	// Extensions returns the file extensions this parser claims
	Extensions() []string
}

// GoParser extracts function and method blocks from Go source via go/ast
type GoParser struct{}

// NewGoParser creates a Parser for Go source files
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Language returns the grammar name
func (p *GoParser) Language() string { return "go" }

// Extensions returns the file extensions handled by this parser
func (p *GoParser) Extensions() []string { return []string{".go"} }

// Parse parses a Go source file and extracts function and method blocks
func (p *GoParser) Parse(path string, src []byte) (*types.ParseResult, error) {
	result := &types.ParseResult{Path: path}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		// Syntax errors are non-fatal - record them but continue with the
		// partial AST; go/parser often returns usable nodes on error
		pos := firstErrorPosition(err)
		result.AddError(path, pos.Line, pos.Column, err.Error())
	}

	if file == nil {
		return result, nil
	}

	if file.Name != nil {
		result.PackageName = file.Name.Name
	}

	v := &blockVisitor{
		fset:   fset,
		path:   path,
		src:    src,
		result: result,
	}
	ast.Inspect(file, v.visit)

	return result, nil
}

// firstErrorPosition pulls a location out of a go/parser error list when possible
func firstErrorPosition(err error) token.Position {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return list[0].Pos
	}
	return token.Position{}
}

// blockVisitor walks the AST collecting function and method declarations
type blockVisitor struct {
	fset   *token.FileSet
	path   string
	src    []byte
	result *types.ParseResult
}

func (v *blockVisitor) visit(node ast.Node) bool {
	if node == nil {
		return false
	}

	fn, ok := node.(*ast.FuncDecl)
	if !ok {
		return true
	}

	v.result.Blocks = append(v.result.Blocks, v.blockFromFunc(fn))
	// Function literals nested inside a declaration belong to its block
	return false
}

// blockFromFunc builds a CodeBlock candidate from a function declaration
func (v *blockVisitor) blockFromFunc(fn *ast.FuncDecl) *types.CodeBlock {
	start := fn.Pos()
	if fn.Doc != nil {
		start = fn.Doc.Pos()
	}
	startPos := v.fset.Position(start)
	endPos := v.fset.Position(fn.End())

	block := &types.CodeBlock{
		Name:      fn.Name.Name,
		Path:      v.path,
		Kind:      types.BlockFunction,
		StartByte: startPos.Offset,
		EndByte:   endPos.Offset,
		StartLine: startPos.Line,
		EndLine:   endPos.Line,
		Content:   string(v.src[startPos.Offset:endPos.Offset]),
	}

	if fn.Recv != nil && len(fn.Recv.List) > 0 {
		block.Kind = types.BlockMethod
		block.Scope = receiverTypeName(fn.Recv.List[0].Type)
	}

	block.ComputeContentHash()
	return block
}

// receiverTypeName extracts the bare receiver type name, stripping pointers
// and type parameters
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	default:
		return ""
	}
}
