package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getAsterisk/blockoli/pkg/types"
)

const sampleSource = `package sample

import "fmt"

// Greet prints a greeting.
func Greet(name string) {
	fmt.Println("hello", name)
}

type Counter struct {
	n int
}

// Incr adds one.
func (c *Counter) Incr() {
	c.n++
}

func (c Counter) Value() int {
	return c.n
}

func helper() func() int {
	return func() int { return 42 }
}
`

func TestGoParserExtractsFunctionsAndMethods(t *testing.T) {
	p := NewGoParser()
	result, err := p.Parse("sample.go", []byte(sampleSource))
	require.NoError(t, err)
	require.False(t, result.HasErrors())
	assert.Equal(t, "sample", result.PackageName)

	require.Len(t, result.Blocks, 4)

	byName := make(map[string]*types.CodeBlock)
	for _, b := range result.Blocks {
		byName[b.Name] = b
	}

	greet := byName["Greet"]
	require.NotNil(t, greet)
	assert.Equal(t, types.BlockFunction, greet.Kind)
	assert.Empty(t, greet.Scope)
	// Doc comment is part of the block span
	assert.Contains(t, greet.Content, "// Greet prints a greeting.")
	assert.Contains(t, greet.Content, `fmt.Println("hello", name)`)

	incr := byName["Incr"]
	require.NotNil(t, incr)
	assert.Equal(t, types.BlockMethod, incr.Kind)
	assert.Equal(t, "Counter", incr.Scope, "pointer receiver resolves to the bare type name")

	value := byName["Value"]
	require.NotNil(t, value)
	assert.Equal(t, types.BlockMethod, value.Kind)
	assert.Equal(t, "Counter", value.Scope)

	// Function literals stay inside their enclosing declaration
	helper := byName["helper"]
	require.NotNil(t, helper)
	assert.Contains(t, helper.Content, "func() int { return 42 }")
}

func TestGoParserBlockSpans(t *testing.T) {
	p := NewGoParser()
	result, err := p.Parse("sample.go", []byte(sampleSource))
	require.NoError(t, err)

	for _, b := range result.Blocks {
		assert.NoError(t, b.Validate(), "block %s", b.Name)
		assert.Equal(t, sampleSource[b.StartByte:b.EndByte], b.Content)
		assert.NotZero(t, b.ContentHash)
	}
}

func TestGoParserGenericReceiver(t *testing.T) {
	src := `package sample

type List[T any] struct{ items []T }

func (l *List[T]) Len() int { return len(l.items) }
`
	p := NewGoParser()
	result, err := p.Parse("list.go", []byte(src))
	require.NoError(t, err)
	require.Len(t, result.Blocks, 1)
	assert.Equal(t, "List", result.Blocks[0].Scope)
	assert.Equal(t, types.BlockMethod, result.Blocks[0].Kind)
}

func TestGoParserPartialParse(t *testing.T) {
	src := `package sample

func Good() int { return 1 }

func Broken( {
`
	p := NewGoParser()
	result, err := p.Parse("partial.go", []byte(src))
	require.NoError(t, err)
	assert.True(t, result.HasErrors())
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, "partial.go", result.Errors[0].Path)
	assert.Greater(t, result.Errors[0].Line, 0)

	// The valid declaration still comes out
	names := make([]string, 0, len(result.Blocks))
	for _, b := range result.Blocks {
		names = append(names, b.Name)
	}
	assert.Contains(t, names, "Good")
}

func TestExtractorSupports(t *testing.T) {
	e := New()
	assert.True(t, e.Supports("main.go"))
	assert.True(t, e.Supports("dir/nested/file.go"))
	assert.False(t, e.Supports("README.md"))
	assert.False(t, e.Supports("script.py"))
	assert.Contains(t, e.Extensions(), ".go")
}

func TestExtractFileUnsupported(t *testing.T) {
	e := New()
	_, err := e.ExtractFile(types.SourceFile{Path: "notes.txt", Source: []byte("hi")})
	require.Error(t, err)

	var pf *types.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "notes.txt", pf.Path)
}

func TestExtractFileTotalFailure(t *testing.T) {
	e := New()
	_, err := e.ExtractFile(types.SourceFile{Path: "garbage.go", Source: []byte("not go at all {{{{")})
	require.Error(t, err)

	var pf *types.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, "garbage.go", pf.Path)
}

func TestExtractFileEmptyButValid(t *testing.T) {
	e := New()
	result, err := e.ExtractFile(types.SourceFile{Path: "empty.go", Source: []byte("package empty\n")})
	require.NoError(t, err)
	assert.Empty(t, result.Blocks)
	assert.False(t, result.HasErrors())
}
