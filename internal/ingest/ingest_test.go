package ingest

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodal-rag/internal/chunkstore"
	"multimodal-rag/internal/llm"
)

func stubEmbedding(_ context.Context, text string) ([]float32, error) {
	v := make([]float64, 4)
	for i, b := range []byte(text) {
		v[i%4] += float64(b)
	}
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	out := make([]float32, 4)
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out, nil
}

type stubTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	s.calls++
	return s.transcript, s.err
}

type stubVision struct {
	text string
	err  error
}

func (s *stubVision) Name() string { return "stub-vision" }

func (s *stubVision) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return s.text, s.err
}

func (s *stubVision) AnalyzeImage(_ context.Context, _, _ string, _ []byte) (string, error) {
	return s.text, s.err
}

func newTestService(t *testing.T, tr Transcriber, vision llm.Vision) *Service {
	t.Helper()
	store, err := chunkstore.NewInMemory(chromem.EmbeddingFunc(stubEmbedding), 1000, 200)
	require.NoError(t, err)
	return NewService(store, tr, vision, vision, 30*1024*1024)
}

func TestVideoIngestAndDuplicate(t *testing.T) {
	tr := &stubTranscriber{transcript: strings.Repeat("welcome to the talk. ", 80)}
	svc := newTestService(t, tr, nil)
	ctx := context.Background()

	res, err := svc.Video(ctx, []byte("fake-mp4"), "talk.mp4")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Greater(t, res.ChunkCount, 1)
	assert.Contains(t, res.Message, "chunks from video")

	res, err = svc.Video(ctx, []byte("fake-mp4"), "talk.mp4")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Contains(t, res.Message, "already exists")
}

func TestVideoWithoutTranscriber(t *testing.T) {
	svc := newTestService(t, nil, nil)
	_, err := svc.Video(context.Background(), []byte("x"), "v.mp4")
	assert.Error(t, err)
}

func TestVideoTranscriptionError(t *testing.T) {
	tr := &stubTranscriber{err: errors.New("whisper down")}
	svc := newTestService(t, tr, nil)
	_, err := svc.Video(context.Background(), []byte("x"), "v.mp4")
	assert.ErrorContains(t, err, "transcribe video")
}

func TestAudioIngest(t *testing.T) {
	tr := &stubTranscriber{transcript: "a short voice note about groceries"}
	svc := newTestService(t, tr, nil)

	res, err := svc.Audio(context.Background(), []byte("fake-wav"), "note.wav")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, res.ChunkCount)
}

func TestImageIngest(t *testing.T) {
	vision := &stubVision{text: "A bar chart showing quarterly revenue, Q3 highest."}
	svc := newTestService(t, nil, vision)

	res, err := svc.Image(context.Background(), []byte("fake-png"), "chart.png")
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, res.ChunkCount)

	res, err = svc.Image(context.Background(), []byte("fake-png"), "chart.png")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
}

func TestImageEmptyAnalysisFails(t *testing.T) {
	vision := &stubVision{text: "   "}
	svc := newTestService(t, nil, vision)

	_, err := svc.Image(context.Background(), []byte("fake-png"), "blank.png")
	assert.ErrorContains(t, err, "no text extracted")
}

func TestImageWithoutVisionStoresFallback(t *testing.T) {
	// analysis degrades to a synthesized description, which is still stored
	svc := newTestService(t, nil, nil)

	res, err := svc.Image(context.Background(), []byte("not-an-image"), "odd.bin")
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)
}

func TestPDFSizeLimit(t *testing.T) {
	store, err := chunkstore.NewInMemory(chromem.EmbeddingFunc(stubEmbedding), 1000, 200)
	require.NoError(t, err)
	svc := NewService(store, nil, nil, nil, 10)

	_, err = svc.PDF(context.Background(), make([]byte, 11), "big.pdf")
	assert.ErrorContains(t, err, "too large")
}

func TestPDFUnreadableBytes(t *testing.T) {
	svc := newTestService(t, nil, nil)
	_, err := svc.PDF(context.Background(), []byte("this is not a pdf"), "broken.pdf")
	assert.Error(t, err)
}
