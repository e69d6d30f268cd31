package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/chunkstore"
)

// Audio transcribes an audio file and stores the transcript chunks.
func (s *Service) Audio(ctx context.Context, file []byte, filename string) (*Result, error) {
	if s.transcriber == nil {
		return nil, errors.New("transcription backend is not configured")
	}

	transcript, err := s.transcriber.Transcribe(ctx, file, filename)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	log.Info().Str("file", filename).Int("transcript_chars", len(transcript)).Msg("audio transcribed")

	count, exists, err := s.store.StoreIfNew(ctx, transcript, filename, chunkstore.CollectionAudio)
	if err != nil {
		return nil, err
	}
	if exists {
		return &Result{
			Message:   fmt.Sprintf("Audio '%s' already exists in database. Skipped processing.", filename),
			Duplicate: true,
		}, nil
	}
	return &Result{
		Message:    fmt.Sprintf("Processed %d chunks from audio.", count),
		ChunkCount: count,
	}, nil
}
