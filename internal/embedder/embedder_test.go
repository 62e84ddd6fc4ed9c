package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderDeterministic(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() {}"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() {}"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector, "identical text maps to the identical vector")
	assert.Equal(t, LocalDimension, a.Dimension)
	assert.Len(t, a.Vector, LocalDimension)
	assert.Equal(t, ProviderLocal, a.Provider)

	c, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "different text"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Vector, c.Vector)
}

func TestLocalProviderUnitNorm(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "normalize me"})
	require.NoError(t, err)

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalProviderEmptyText(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProviderBatch(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"one", "two"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.NotEqual(t, resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)

	single, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "one"})
	require.NoError(t, err)
	assert.Equal(t, single.Vector, resp.Embeddings[0].Vector)

	_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"ok", ""}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCacheReturnsCopies(t *testing.T) {
	cache := NewCache(10)
	hash := ComputeHash("text")
	cache.Set(hash, &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Hash: hash})

	got, ok := cache.Get(hash)
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := cache.Get(hash)
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0], "cached vector is insulated from caller mutation")
}

func TestCacheEviction(t *testing.T) {
	cache := NewCache(2)
	cache.Set("a", &Embedding{Vector: []float32{1}})
	cache.Set("b", &Embedding{Vector: []float32{2}})
	cache.Set("c", &Embedding{Vector: []float32{3}})

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("a")
	assert.False(t, ok, "oldest entry evicted")
}

func TestComputeHash(t *testing.T) {
	assert.Equal(t, ComputeHash("x"), ComputeHash("x"))
	assert.NotEqual(t, ComputeHash("x"), ComputeHash("y"))
	assert.Len(t, ComputeHash("x"), 64)
}

func TestNewFactorySelectsProvider(t *testing.T) {
	emb, err := New(Config{Provider: ProviderLocal})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
	assert.Equal(t, LocalDimension, emb.Dimension())

	emb, err = New(Config{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider(), "empty provider falls back to local")

	_, err = New(Config{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	emb, err = New(Config{Provider: ProviderJina, APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, ProviderJina, emb.Provider())
	assert.Equal(t, JinaDimension, emb.Dimension())

	emb, err = New(Config{Provider: ProviderOpenAI, APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, OpenAIDimension, emb.Dimension())
}

func TestDetectProvider(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")
	assert.Equal(t, ProviderLocal, DetectProvider())

	t.Setenv(EnvOpenAIAPIKey, "sk-test")
	assert.Equal(t, ProviderOpenAI, DetectProvider())

	t.Setenv(EnvJinaAPIKey, "jina-test")
	assert.Equal(t, ProviderJina, DetectProvider(), "jina wins when both keys are set")

	t.Setenv(EnvProvider, "local")
	assert.Equal(t, ProviderLocal, DetectProvider(), "explicit provider overrides keys")
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	ctx := context.Background()

	calls := 0
	got, err := withRetry(ctx, func() (string, error) {
		calls++
		if calls < 2 {
			return "", ErrProviderFailed
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), func() (int, error) {
		calls++
		return 0, ErrProviderFailed
	})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, maxAttempts, calls)
}

func TestWithRetryStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := withRetry(ctx, func() (int, error) {
		calls++
		return 0, ErrProviderFailed
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation wins over another attempt")
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	assert.Equal(t, initialBackoff, backoffFor(1))
	assert.Equal(t, 2*initialBackoff, backoffFor(2))
	assert.Equal(t, maxBackoff, backoffFor(20))
}
