package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/getAsterisk/blockoli/pkg/types"
)

// MemoryStore implements the Store interface entirely in memory. It backs
// tests and ephemeral runs; durability is explicitly not provided.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]*memoryProject
	nextID   int64
}

type memoryProject struct {
	meta   Project
	blocks []*types.CodeBlock // insertion order
	byKey  map[types.BlockKey]*types.CodeBlock
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]*memoryProject)}
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error { return nil }

// CreateProject creates a new named project
func (s *MemoryStore) CreateProject(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[name]; ok {
		return fmt.Errorf("project %q: %w", name, types.ErrProjectExists)
	}
	now := time.Now()
	s.projects[name] = &memoryProject{
		meta:  Project{Name: name, CreatedAt: now, UpdatedAt: now, LastIndexedAt: now},
		byKey: make(map[types.BlockKey]*types.CodeBlock),
	}
	return nil
}

// GetProject fetches a project by name
func (s *MemoryStore) GetProject(ctx context.Context, name string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[name]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", name, types.ErrProjectNotFound)
	}
	meta := p.meta
	meta.TotalBlocks = len(p.blocks)
	return &meta, nil
}

// ListProjects enumerates all projects sorted by name
func (s *MemoryStore) ListProjects(ctx context.Context) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	projects := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		meta := p.meta
		meta.TotalBlocks = len(p.blocks)
		projects = append(projects, &meta)
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	return projects, nil
}

// DeleteProject removes a project and all its blocks
func (s *MemoryStore) DeleteProject(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[name]; !ok {
		return fmt.Errorf("project %q: %w", name, types.ErrProjectNotFound)
	}
	delete(s.projects, name)
	return nil
}

// SetProjectRoot records the directory a project was last indexed from
func (s *MemoryStore) SetProjectRoot(ctx context.Context, name, rootPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[name]
	if !ok {
		return fmt.Errorf("project %q: %w", name, types.ErrProjectNotFound)
	}
	p.meta.RootPath = rootPath
	p.meta.UpdatedAt = time.Now()
	return nil
}

// UpsertBlocks stores a reindex batch, bumping the generation once per call.
// Blocks under the covered files whose match key is absent from the batch are
// deleted; files outside the list keep their blocks.
func (s *MemoryStore) UpsertBlocks(ctx context.Context, project string, files []string, blocks []*types.CodeBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[project]
	if !ok {
		return fmt.Errorf("project %q: %w", project, types.ErrProjectNotFound)
	}

	batchKeys := make(map[types.BlockKey]bool, len(blocks))
	for _, b := range blocks {
		key := b.MatchKey()
		if existing, ok := p.byKey[key]; ok {
			// Replace in place, keeping ID and insertion position
			b.ID = existing.ID
			*existing = *cloneBlock(b)
		} else {
			s.nextID++
			b.ID = s.nextID
			stored := cloneBlock(b)
			p.blocks = append(p.blocks, stored)
			p.byKey[key] = stored
		}
		b.Project = project
		batchKeys[key] = true
	}

	if len(files) > 0 {
		covered := make(map[string]bool, len(files))
		for _, f := range files {
			covered[f] = true
		}
		keep := p.blocks[:0]
		for _, b := range p.blocks {
			if covered[b.Path] && !batchKeys[b.MatchKey()] {
				delete(p.byKey, b.MatchKey())
				continue
			}
			keep = append(keep, b)
		}
		p.blocks = keep
	}

	now := time.Now()
	p.meta.Generation++
	p.meta.UpdatedAt = now
	p.meta.LastIndexedAt = now
	return nil
}

// ListBlocks enumerates all of a project's blocks in insertion order
func (s *MemoryStore) ListBlocks(ctx context.Context, project string) ([]*types.CodeBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[project]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", project, types.ErrProjectNotFound)
	}

	blocks := make([]*types.CodeBlock, 0, len(p.blocks))
	for _, b := range p.blocks {
		blocks = append(blocks, cloneBlock(b))
	}
	return blocks, nil
}

// GetBlock fetches one block by ID
func (s *MemoryStore) GetBlock(ctx context.Context, project string, id int64) (*types.CodeBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[project]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", project, types.ErrProjectNotFound)
	}
	for _, b := range p.blocks {
		if b.ID == id {
			return cloneBlock(b), nil
		}
	}
	return nil, fmt.Errorf("block %d: %w", id, types.ErrBlockNotFound)
}

// FindByFunctionName returns all blocks whose name matches exactly
func (s *MemoryStore) FindByFunctionName(ctx context.Context, project, name string) ([]*types.CodeBlock, error) {
	return s.filterBlocks(project, func(b *types.CodeBlock) bool {
		return b.Name == name
	})
}

// SearchBlockContent returns named blocks whose content contains the query
func (s *MemoryStore) SearchBlockContent(ctx context.Context, project, query string) ([]*types.CodeBlock, error) {
	return s.filterBlocks(project, func(b *types.CodeBlock) bool {
		return b.Name != "" && strings.Contains(b.Content, query)
	})
}

func (s *MemoryStore) filterBlocks(project string, keep func(*types.CodeBlock) bool) ([]*types.CodeBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[project]
	if !ok {
		return nil, fmt.Errorf("project %q: %w", project, types.ErrProjectNotFound)
	}

	var blocks []*types.CodeBlock
	for _, b := range p.blocks {
		if keep(b) {
			blocks = append(blocks, cloneBlock(b))
		}
	}
	return blocks, nil
}

// cloneBlock copies a block so callers cannot mutate stored state
func cloneBlock(b *types.CodeBlock) *types.CodeBlock {
	c := *b
	if b.Embedding != nil {
		c.Embedding = make([]float32, len(b.Embedding))
		copy(c.Embedding, b.Embedding)
	}
	return &c
}
