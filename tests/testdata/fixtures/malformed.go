package fixtures

// Broken never parses: the struct literal below is unterminated and the file
// declares no functions, so indexing it yields nothing.
type Broken struct {
	Field int
