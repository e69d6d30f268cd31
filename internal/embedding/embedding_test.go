package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
}

func (e *countingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.calls++
	return []float32{float32(len(text)), 1, 0}, nil
}

func TestFuncCachesVectors(t *testing.T) {
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)

	embedder := &countingEmbedder{}
	fn := Func(embedder, cache)

	v1, err := fn(context.Background(), "hello world")
	require.NoError(t, err)
	v2, err := fn(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, embedder.calls)
}

func TestFuncWithoutCache(t *testing.T) {
	embedder := &countingEmbedder{}
	fn := Func(embedder, nil)

	_, err := fn(context.Background(), "text")
	require.NoError(t, err)
	_, err = fn(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, 2, embedder.calls)
}

func TestCacheSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	cache, err := NewCache(dir)
	require.NoError(t, err)
	embedder := &countingEmbedder{}
	fn := Func(embedder, cache)
	_, err = fn(context.Background(), "persisted text")
	require.NoError(t, err)
	require.NoError(t, cache.Save())

	reloaded, err := NewCache(dir)
	require.NoError(t, err)
	fn2 := Func(embedder, reloaded)
	_, err = fn2(context.Background(), "persisted text")
	require.NoError(t, err)

	assert.Equal(t, 1, embedder.calls)
}
