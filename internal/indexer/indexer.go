package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/getAsterisk/blockoli/internal/embedder"
	"github.com/getAsterisk/blockoli/internal/extractor"
	"github.com/getAsterisk/blockoli/internal/storage"
	"github.com/getAsterisk/blockoli/pkg/types"
)

// Indexer coordinates the indexing pipeline: extract -> embed -> store.
// Per-file and per-block failures are isolated into the IndexReport; the
// whole batch lands in the store through a single UpsertBlocks call.
type Indexer struct {
	extractor *extractor.Extractor
	embedder  embedder.Embedder
	store     storage.Store
	logger    *zap.Logger

	locks   lockRegistry
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers       int  // Number of concurrent workers (default: runtime.NumCPU())
	IncludeTests  bool // Whether to index _test files when walking a directory
	IncludeVendor bool // Whether to index vendor directories
}

// DefaultConfig returns the directory-walk defaults
func DefaultConfig() *Config {
	return &Config{
		Workers:       runtime.NumCPU(),
		IncludeTests:  true,
		IncludeVendor: false,
	}
}

// New creates a new Indexer instance
func New(store storage.Store, emb embedder.Embedder, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		extractor: extractor.New(),
		embedder:  emb,
		store:     store,
		logger:    logger,
		workers:   runtime.NumCPU(),
	}
}

// Extractor exposes the extractor so callers can register extra parsers
func (idx *Indexer) Extractor() *extractor.Extractor {
	return idx.extractor
}

// fileOutcome is one file's contribution to a reindex run
type fileOutcome struct {
	status types.FileStatus
	blocks []*types.CodeBlock
}

// Reindex indexes the given source files into the project. At most one
// reindex per project is in flight: a concurrent call fails
// types.ErrAlreadyIndexing and the caller retries later.
//
// Per-file parse failures and per-block embedding failures are recorded in
// the report without aborting the batch. All extracted blocks, embedded or
// not, are upserted in a single store call so the project generation moves
// exactly once. Files that parsed are reconciled: blocks the file no longer
// yields are deleted. A file that failed to parse keeps its previously
// indexed blocks.
func (idx *Indexer) Reindex(ctx context.Context, project string, files []types.SourceFile) (*types.IndexReport, error) {
	return idx.reindex(ctx, project, files, idx.workers)
}

func (idx *Indexer) reindex(ctx context.Context, project string, files []types.SourceFile, workers int) (*types.IndexReport, error) {
	if _, err := idx.store.GetProject(ctx, project); err != nil {
		return nil, err
	}

	lock := idx.locks.get(project)
	if !lock.TryAcquire() {
		return nil, fmt.Errorf("project %q: %w", project, types.ErrAlreadyIndexing)
	}
	defer lock.Release()

	report := &types.IndexReport{
		RunID:     uuid.NewString(),
		Project:   project,
		StartedAt: time.Now(),
	}

	idx.logger.Info("reindex started",
		zap.String("project", project),
		zap.String("run_id", report.RunID),
		zap.Int("files", len(files)))

	// Extraction and embedding for distinct files run in parallel; outcomes
	// land in input order so the upsert batch is deterministic.
	outcomes := make([]fileOutcome, len(files))
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, file := range files {
		g.Go(func() error {
			outcomes[i] = idx.indexFile(gctx, file)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Only files that parsed are reconciled in the store; a failed file's
	// old blocks stay until it parses again
	var batch []*types.CodeBlock
	var covered []string
	for i := range outcomes {
		report.AddFile(outcomes[i].status)
		batch = append(batch, outcomes[i].blocks...)
		if !outcomes[i].status.Failed() {
			covered = append(covered, outcomes[i].status.Path)
		}
	}

	if err := idx.store.UpsertBlocks(ctx, project, covered, batch); err != nil {
		return nil, fmt.Errorf("failed to store blocks: %w", err)
	}

	report.Duration = time.Since(report.StartedAt)
	idx.logger.Info("reindex finished",
		zap.String("project", project),
		zap.String("run_id", report.RunID),
		zap.Int("blocks", report.BlocksIndexed),
		zap.Int("embedded", report.BlocksEmbedded),
		zap.Int("files_failed", report.FilesFailed),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// indexFile extracts one file and embeds its blocks. Failures stay local to
// the returned outcome.
func (idx *Indexer) indexFile(ctx context.Context, file types.SourceFile) fileOutcome {
	out := fileOutcome{status: types.FileStatus{Path: file.Path}}

	result, err := idx.extractor.ExtractFile(file)
	if err != nil {
		pf, ok := err.(*types.ParseFailure)
		if !ok {
			pf = &types.ParseFailure{Path: file.Path, Message: err.Error()}
		}
		out.status.ParseError = pf
		idx.logger.Warn("parse failed", zap.String("path", file.Path), zap.Error(pf))
		return out
	}

	out.status.Parsed = true
	out.status.BlocksFound = len(result.Blocks)
	if result.HasErrors() {
		// Partial parse: blocks were extracted despite syntax errors
		pf := result.Errors[0]
		out.status.ParseError = &pf
	}

	for _, block := range result.Blocks {
		emb, err := idx.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: block.Content})
		if err != nil {
			// The block is still stored, queryable by structure, and
			// excluded from similarity search until re-embedded
			out.status.EmbedErrors = append(out.status.EmbedErrors, types.EmbeddingFailure{
				Path:  file.Path,
				Block: block.Name,
				Err:   err,
			})
			idx.logger.Warn("embedding failed",
				zap.String("path", file.Path),
				zap.String("block", block.Name),
				zap.Error(err))
		} else {
			block.Embedding = emb.Vector
			out.status.BlocksEmbedded++
		}
		out.blocks = append(out.blocks, block)
	}

	return out
}

// IndexDirectory walks root, reads every supported source file, and reindexes
// the project with the result. The walk skips hidden directories and, by
// default, vendor trees.
func (idx *Indexer) IndexDirectory(ctx context.Context, project, root string, config *Config) (*types.IndexReport, error) {
	if config == nil {
		config = DefaultConfig()
	}

	paths, err := idx.discoverFiles(root, config)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	files := make([]types.SourceFile, 0, len(paths))
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			idx.logger.Warn("read failed", zap.String("path", path), zap.Error(err))
			continue
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		files = append(files, types.SourceFile{Path: rel, Source: src})
	}

	// The per-call worker setting stays local to this run
	report, err := idx.reindex(ctx, project, files, config.Workers)
	if err != nil {
		return nil, err
	}

	if err := idx.store.SetProjectRoot(ctx, project, root); err != nil {
		return nil, err
	}

	return report, nil
}

// discoverFiles finds all supported source files under root
func (idx *Indexer) discoverFiles(root string, config *Config) ([]string, error) {
	var files []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if !config.IncludeVendor && info.Name() == "vendor" {
				return filepath.SkipDir
			}
			if path != root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if !idx.extractor.Supports(path) {
			return nil
		}

		if !config.IncludeTests && strings.HasSuffix(path, "_test.go") {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}
