// Package storage provides the project store: durable per-project collections
// of code blocks and their embeddings behind a backend-agnostic capability
// interface.
//
// Two backends are provided. SQLiteStore persists to a single database file
// (pure Go driver by default, cgo driver behind the cgo_sqlite build tag) with
// versioned migrations, WAL journaling, and cascading project deletes.
// MemoryStore keeps everything in process memory for tests and ephemeral runs.
//
// The store owns the generation counter: every UpsertBlocks call bumps the
// owning project's generation exactly once, which is how cached similarity
// indexes detect staleness.
package storage
