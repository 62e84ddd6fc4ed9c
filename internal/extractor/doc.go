// Package extractor walks parsed syntax trees and yields discrete, addressable
// code blocks (function and method definitions) with source span, name, and
// enclosing-scope context.
//
// Parsing itself is a pluggable capability behind the Parser interface; the
// built-in GoParser covers Go source via go/ast. Each extracted block carries
// its match key (path, name, scope) so it can be deterministically matched
// against a previously stored block on reindex.
//
// Malformed input fails with a *types.ParseFailure attributable to the
// specific file and never aborts extraction of other files in the same batch.
package extractor
