package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/chunkstore"
	"multimodal-rag/internal/ocr"
)

// PDF extracts text from an uploaded PDF, falling back to vision OCR for
// scanned documents, and stores the chunks. OCR output replaces the plain
// extraction only when it is strictly longer.
func (s *Service) PDF(ctx context.Context, file []byte, filename string) (*Result, error) {
	if int64(len(file)) > s.maxPDFBytes {
		return nil, fmt.Errorf("PDF too large (> %d MB)", s.maxPDFBytes/(1024*1024))
	}

	text, pages, err := extractPDFText(file)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}

	ocrUsed := false
	if ocr.NeedsOCR(text, pages) {
		log.Info().Str("file", filename).Int("chars", len(strings.TrimSpace(text))).
			Msg("scanned pdf detected, attempting ocr")
		if s.ocrVision != nil {
			ocrUsed = true
			if ocrText := ocr.ExtractTextOCR(ctx, file, s.ocrVision); len(strings.TrimSpace(ocrText)) > len(strings.TrimSpace(text)) {
				text = ocrText
			} else {
				log.Warn().Str("file", filename).Msg("ocr did not improve extraction, keeping original")
			}
		} else {
			log.Warn().Str("file", filename).Msg("no vision backend for ocr, keeping basic extraction")
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, errors.New("no text extracted from PDF, please ensure the file is readable")
	}

	count, exists, err := s.store.StoreIfNew(ctx, text, filename, chunkstore.CollectionPDF)
	if err != nil {
		return nil, err
	}
	if exists {
		return &Result{
			Message:   fmt.Sprintf("PDF '%s' already exists in database. Skipped processing.", filename),
			Duplicate: true,
		}, nil
	}

	suffix := ""
	if ocrUsed {
		suffix = " (OCR used)"
	}
	return &Result{
		Message:    fmt.Sprintf("Processed %d chunks from PDF%s.", count, suffix),
		ChunkCount: count,
		OCRUsed:    ocrUsed,
	}, nil
}

// extractPDFText concatenates the plain text of every page. Pages that
// fail to decode are skipped; the page count still includes them so the
// scanned-document heuristic sees the real document length.
func extractPDFText(file []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(file), int64(len(file)))
	if err != nil {
		return "", 0, err
	}

	total := reader.NumPage()
	var pages []string
	for n := 1; n <= total; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", n).Msg("pdf page extraction failed")
			continue
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), total, nil
}
