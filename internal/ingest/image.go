package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/chunkstore"
	"multimodal-rag/internal/ocr"
)

// Image runs vision analysis over an uploaded image and stores the
// resulting description. Analysis never hard-fails; only an empty result
// aborts the upload.
func (s *Service) Image(ctx context.Context, file []byte, filename string) (*Result, error) {
	extracted := ocr.AnalyzeImage(ctx, s.imageVision, file)
	if strings.TrimSpace(extracted) == "" {
		return nil, errors.New("no text extracted from image")
	}
	log.Info().Str("file", filename).Int("chars", len(extracted)).Msg("image analyzed")

	count, exists, err := s.store.StoreIfNew(ctx, extracted, filename, chunkstore.CollectionImage)
	if err != nil {
		return nil, err
	}
	if exists {
		return &Result{
			Message:   fmt.Sprintf("Image '%s' already exists in database. Skipped processing.", filename),
			Duplicate: true,
		}, nil
	}
	return &Result{
		Message:    fmt.Sprintf("Processed %d chunks from image.", count),
		ChunkCount: count,
	}, nil
}
