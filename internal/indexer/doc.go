// Package indexer provides the indexing orchestrator. It coordinates
// extraction, embedding, storage, and index invalidation for a project,
// enforcing at-most-one concurrent reindex per project with a non-blocking
// per-project lock.
//
// A reindex run produces an IndexReport enumerating per-file success and
// failure. One bad file degrades the index, it does not corrupt it: parse and
// embedding failures are recorded and isolated while the rest of the batch
// proceeds. The similarity index is not rebuilt eagerly; the generation bump
// from the store's upsert makes cached trees stale, and the first subsequent
// query pays the rebuild.
package indexer
