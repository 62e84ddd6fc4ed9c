package storage

import (
	"context"
	"time"

	"github.com/getAsterisk/blockoli/pkg/types"
)

// Store is the persistence capability behind the engine: a durable per-project
// collection of code blocks and their embeddings. Backends are selected at
// startup via configuration; SQLite and an in-memory store are provided.
//
// Every implementation must satisfy the same contract:
//   - CreateProject fails types.ErrProjectExists when the name is taken.
//   - GetProject and DeleteProject fail types.ErrProjectNotFound when absent.
//   - UpsertBlocks replaces blocks sharing a match key (path, name, scope)
//     in place, deletes blocks of covered files whose match key left the
//     batch, preserves blocks of files outside the covered list, and bumps
//     the project's generation exactly once per call.
//   - ListBlocks yields insertion (ID) order; FindByFunctionName is stable
//     across repeated calls absent mutation.
//
// Backend errors are propagated verbatim, wrapped with context but never
// masked behind a different sentinel.
type Store interface {
	// Project operations
	CreateProject(ctx context.Context, name string) error
	GetProject(ctx context.Context, name string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	DeleteProject(ctx context.Context, name string) error
	// SetProjectRoot records the directory a project was last indexed from,
	// so the watcher can re-resolve it. It does not bump the generation.
	SetProjectRoot(ctx context.Context, name, rootPath string) error

	// Block operations. files lists the source paths the batch covers:
	// existing blocks under those paths that the batch no longer carries
	// are deleted in the same transaction.
	UpsertBlocks(ctx context.Context, project string, files []string, blocks []*types.CodeBlock) error
	ListBlocks(ctx context.Context, project string) ([]*types.CodeBlock, error)
	GetBlock(ctx context.Context, project string, id int64) (*types.CodeBlock, error)
	FindByFunctionName(ctx context.Context, project, name string) ([]*types.CodeBlock, error)
	SearchBlockContent(ctx context.Context, project, query string) ([]*types.CodeBlock, error)

	// Database operations
	Close() error
}

// Project describes one named, isolated collection of indexed code blocks.
type Project struct {
	Name string

	// Generation increments on every mutation of the project's blocks and
	// is the staleness key for cached similarity indexes.
	Generation uint64

	TotalBlocks   int
	RootPath      string // Last indexed directory, when indexed from disk
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastIndexedAt time.Time
}
