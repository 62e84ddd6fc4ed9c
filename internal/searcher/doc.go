// Package searcher coordinates the query side of the engine: it embeds query
// text, keeps the per-project k-d trees fresh against the store's generation
// counters, and serves exact k-nearest-neighbor results with a bounded LRU
// result cache.
package searcher
