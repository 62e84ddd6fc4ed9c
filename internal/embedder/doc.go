// Package embedder provides the embedding pipeline: a black-box capability
// that turns code block text into fixed-dimension float vectors.
//
// Three providers are available, selected by configuration or environment:
// Jina and OpenAI over their HTTP embeddings APIs (with bounded exponential
// backoff on transient failures), and a deterministic local hashing provider
// for offline development and tests.
//
// Every provider sits behind a content-hash LRU cache, so re-embedding an
// unchanged block costs nothing. Failures are per-block: a block that cannot
// be embedded is stored without a vector and excluded from similarity search
// until re-embedded.
package embedder
