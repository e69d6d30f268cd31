package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	gocache "github.com/patrickmn/go-cache"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"multimodal-rag/internal/config"
)

// Querier is the slice of the langchaingo embedder we depend on.
type Querier interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewOllamaEmbedder builds a langchaingo embedder backed by an Ollama
// embedding model.
func NewOllamaEmbedder(cfg config.EmbeddingConfig) (*embeddings.EmbedderImpl, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(cfg.Host),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding model: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}

// Cache is an on-disk embedding cache. Vectors survive restarts so repeated
// ingestion of the same text does not hit the embedding backend again.
type Cache struct {
	inner *gocache.Cache
	path  string
}

// NewCache loads a previously persisted cache from cacheDir, or starts
// empty when none exists.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	c := &Cache{
		inner: gocache.New(gocache.NoExpiration, 0),
		path:  filepath.Join(cacheDir, "embeddings.gob"),
	}
	if err := c.inner.LoadFile(c.path); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("could not load embedding cache, starting fresh")
		}
	} else {
		log.Info().Int("entries", c.inner.ItemCount()).Msg("loaded embedding cache")
	}
	return c, nil
}

func (c *Cache) get(text string) ([]float32, bool) {
	v, ok := c.inner.Get(key(text))
	if !ok {
		return nil, false
	}
	vec, ok := v.([]float32)
	return vec, ok
}

func (c *Cache) put(text string, vec []float32) {
	c.inner.Set(key(text), vec, gocache.NoExpiration)
}

// Save persists the cache to disk. Called on shutdown.
func (c *Cache) Save() error {
	return c.inner.SaveFile(c.path)
}

func key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Func adapts an embedder into the chromem EmbeddingFunc, consulting the
// cache first. A nil cache disables caching.
func Func(embedder Querier, cache *Cache) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		if cache != nil {
			if vec, ok := cache.get(text); ok {
				return vec, nil
			}
		}
		vec, err := embedder.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		if cache != nil {
			cache.put(text, vec)
		}
		return vec, nil
	}
}
