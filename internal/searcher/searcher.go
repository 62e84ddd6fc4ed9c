package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/getAsterisk/blockoli/internal/embedder"
	"github.com/getAsterisk/blockoli/internal/index"
	"github.com/getAsterisk/blockoli/internal/storage"
	"github.com/getAsterisk/blockoli/pkg/types"
)

const (
	// DefaultK is the number of neighbors returned when the request leaves K unset
	DefaultK = 5
	// MaxK bounds a single query's result size
	MaxK = 100
	// queryCacheSize bounds the LRU result cache
	queryCacheSize = 1000
)

// SearchRequest contains parameters for a similarity search. Exactly one of
// Query (embedded via the pipeline) or Vector (used as-is) must be set.
type SearchRequest struct {
	Project string
	Query   string
	Vector  []float32
	K       int
}

// SearchResponse contains ranked results and query metadata
type SearchResponse struct {
	Results    []types.SearchResult
	Generation uint64
	Duration   time.Duration
	CacheHit   bool
}

// Searcher answers k-nearest-neighbor queries over a project's embedded
// blocks. Trees are rebuilt lazily per generation; ranked results are
// memoized in an LRU cache whose keys embed the generation, so a stale hit
// is structurally impossible.
type Searcher struct {
	store    storage.Store
	embedder embedder.Embedder
	trees    *index.Cache
	cache    *lru.Cache[[32]byte, []types.SearchResult]
	logger   *zap.Logger
}

// New creates a Searcher over the given store and embedding capability
func New(store storage.Store, emb embedder.Embedder, trees *index.Cache, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[[32]byte, []types.SearchResult](queryCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &Searcher{
		store:    store,
		embedder: emb,
		trees:    trees,
		cache:    cache,
		logger:   logger,
	}
}

// Search runs one similarity query. The project's current generation is
// checked first; a stale or missing tree is rebuilt before the query runs,
// with concurrent callers sharing a single rebuild.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, req.Project)
	if err != nil {
		return nil, err
	}

	vector := req.Vector
	if vector == nil {
		emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query})
		if err != nil {
			return nil, fmt.Errorf("failed to embed query: %w", err)
		}
		vector = emb.Vector
	}

	key := cacheKey(project, vector, req.K)
	if results, ok := s.cache.Get(key); ok {
		return &SearchResponse{
			Results:    results,
			Generation: project.Generation,
			Duration:   time.Since(start),
			CacheHit:   true,
		}, nil
	}

	tree, err := s.trees.Get(req.Project, project.Generation, func() (*index.Tree, error) {
		return s.buildTree(ctx, req.Project)
	})
	if err != nil {
		return nil, err
	}

	neighbors, err := tree.Nearest(vector, req.K)
	if err != nil {
		return nil, err
	}

	results, err := s.resolveNeighbors(ctx, req.Project, neighbors)
	if err != nil {
		return nil, err
	}

	s.cache.Add(key, results)

	s.logger.Debug("search served",
		zap.String("project", req.Project),
		zap.Uint64("generation", project.Generation),
		zap.Int("k", req.K),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return &SearchResponse{
		Results:    results,
		Generation: project.Generation,
		Duration:   time.Since(start),
	}, nil
}

// Invalidate drops the project's tree and is called when the project is
// deleted. Result cache entries die by key: the cache key includes the
// project's creation time, so a recreated namesake never hits them.
func (s *Searcher) Invalidate(project string) {
	s.trees.Invalidate(project)
}

// buildTree snapshots the project's embedded blocks into a fresh k-d tree
func (s *Searcher) buildTree(ctx context.Context, project string) (*index.Tree, error) {
	blocks, err := s.store.ListBlocks(ctx, project)
	if err != nil {
		return nil, err
	}

	points := make([]index.Point, 0, len(blocks))
	for _, b := range blocks {
		if b.HasEmbedding() {
			points = append(points, index.Point{ID: b.ID, Vector: b.Embedding})
		}
	}

	return index.Build(points)
}

// resolveNeighbors loads the blocks behind ranked neighbor IDs
func (s *Searcher) resolveNeighbors(ctx context.Context, project string, neighbors []index.Neighbor) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, 0, len(neighbors))
	for i, n := range neighbors {
		block, err := s.store.GetBlock(ctx, project, n.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve block %d: %w", n.ID, err)
		}
		results = append(results, types.SearchResult{
			Block:    block,
			Distance: n.Distance,
			Rank:     i + 1,
		})
	}
	return results, nil
}

// validateRequest normalizes and checks a search request
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if req.Project == "" {
		return fmt.Errorf("%w: project is required", types.ErrProjectNotFound)
	}
	if req.Query == "" && req.Vector == nil {
		return fmt.Errorf("query or vector is required")
	}
	if req.Query != "" && req.Vector != nil {
		return fmt.Errorf("query and vector are mutually exclusive")
	}
	if req.K <= 0 {
		req.K = DefaultK
	}
	if req.K > MaxK {
		req.K = MaxK
	}
	return nil
}

// cacheKey hashes (project identity, generation, k, vector) into a fixed key.
// Creation time distinguishes a recreated project from its deleted namesake,
// whose generation counter restarted.
func cacheKey(project *storage.Project, vector []float32, k int) [32]byte {
	h := sha256.New()
	h.Write([]byte(project.Name))
	var meta [24]byte
	binary.LittleEndian.PutUint64(meta[0:], project.Generation)
	binary.LittleEndian.PutUint64(meta[8:], uint64(project.CreatedAt.UnixNano()))
	binary.LittleEndian.PutUint64(meta[16:], uint64(k))
	h.Write(meta[:])
	buf := make([]byte, 4)
	for _, v := range vector {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		h.Write(buf)
	}
	var key [32]byte
	copy(key[:], h.Sum(nil))
	return key
}
