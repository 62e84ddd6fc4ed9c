// Package index implements the in-memory similarity index: an exact k-d tree
// over a project's embedded code blocks, plus a generation-keyed cache that
// rebuilds trees lazily with singleflight coordination.
//
// The tree is an arena of nodes addressed by index, rebuilt from a snapshot of
// the project's (block ID, embedding) pairs and discarded wholesale when the
// project's generation advances. Queries are exact: a k-d tree result always
// equals a brute-force linear scan over the same points.
package index
