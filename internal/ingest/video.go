package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/chunkstore"
)

// Video transcribes a video file and stores the transcript chunks, keyed
// by filename for duplicate detection.
func (s *Service) Video(ctx context.Context, file []byte, filename string) (*Result, error) {
	if s.transcriber == nil {
		return nil, errors.New("transcription backend is not configured")
	}

	transcript, err := s.transcriber.Transcribe(ctx, file, filename)
	if err != nil {
		return nil, fmt.Errorf("transcribe video: %w", err)
	}
	log.Info().Str("file", filename).Int("transcript_chars", len(transcript)).Msg("video transcribed")

	count, exists, err := s.store.StoreIfNew(ctx, transcript, filename, chunkstore.CollectionVideo)
	if err != nil {
		return nil, err
	}
	if exists {
		return &Result{
			Message:   fmt.Sprintf("Video '%s' already exists in database. Skipped processing.", filename),
			Duplicate: true,
		}, nil
	}
	return &Result{
		Message:    fmt.Sprintf("Processed %d chunks from video.", count),
		ChunkCount: count,
	}, nil
}
