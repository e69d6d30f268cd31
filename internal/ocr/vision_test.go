package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multimodal-rag/internal/llm"
)

// visionStub implements llm.Vision with a fixed reply or error.
type visionStub struct {
	reply string
	err   error
	calls int
}

func (v *visionStub) Name() string { return "stub" }

func (v *visionStub) Chat(_ context.Context, _ []llm.Message) (string, error) {
	return v.reply, v.err
}

func (v *visionStub) AnalyzeImage(_ context.Context, _, _ string, _ []byte) (string, error) {
	v.calls++
	if v.err != nil {
		return "", v.err
	}
	return v.reply, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAnalyzeImageSuccess(t *testing.T) {
	v := &visionStub{reply: "a chart with three bars"}
	out := AnalyzeImage(context.Background(), v, pngBytes(t))
	assert.Equal(t, "a chart with three bars", out)
	assert.Equal(t, 1, v.calls)
}

func TestAnalyzeImagePermanentErrorFallsBack(t *testing.T) {
	v := &visionStub{err: errors.New("model not found (404)")}
	out := AnalyzeImage(context.Background(), v, pngBytes(t))
	assert.Contains(t, out, "PNG format")
	assert.Contains(t, out, "8x6 pixels")
	assert.Equal(t, 1, v.calls, "permanent errors must not be retried")
}

func TestAnalyzeImageExhaustionFallsBack(t *testing.T) {
	v := &visionStub{err: errors.New("connection refused")}
	out := AnalyzeImage(context.Background(), v, pngBytes(t))
	assert.Contains(t, out, "8x6 pixels")
	assert.Equal(t, visionRetries, v.calls)
}

func TestAnalyzeImageNilBackend(t *testing.T) {
	out := AnalyzeImage(context.Background(), nil, pngBytes(t))
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "PNG format")
}

func TestAnalyzeImageUndecodableBytes(t *testing.T) {
	out := AnalyzeImage(context.Background(), nil, []byte("not an image"))
	assert.Contains(t, out, "unknown format")
}
