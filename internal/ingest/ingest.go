// Package ingest turns uploaded media into retrievable knowledge: it
// transcribes, analyzes or extracts text from each modality and stores the
// chunks in the vector store.
package ingest

import (
	"context"

	"multimodal-rag/internal/chunkstore"
	"multimodal-rag/internal/llm"
)

// Transcriber converts audio or video bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, file []byte, filename string) (string, error)
}

// Result reports the outcome of a single upload.
type Result struct {
	Message    string `json:"message"`
	Duplicate  bool   `json:"duplicate"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	OCRUsed    bool   `json:"ocr_used,omitempty"`
}

// Service wires the per-modality pipelines to their shared dependencies.
// Both vision backends are optional: without imageVision image analysis
// degrades to a synthesized description, without ocrVision scanned PDFs
// keep their plain extraction.
type Service struct {
	store       *chunkstore.Store
	transcriber Transcriber
	imageVision llm.Vision
	ocrVision   llm.Vision
	maxPDFBytes int64
}

func NewService(store *chunkstore.Store, transcriber Transcriber, imageVision, ocrVision llm.Vision, maxPDFBytes int64) *Service {
	return &Service{
		store:       store,
		transcriber: transcriber,
		imageVision: imageVision,
		ocrVision:   ocrVision,
		maxPDFBytes: maxPDFBytes,
	}
}
