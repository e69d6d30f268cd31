package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/llm"
)

const (
	ocrPrompt = "Extract all text from this document page accurately, including any handwriting. Return only the extracted text."

	// render at ~300 DPI for legible OCR input
	renderDPI = 300
)

// ExtractTextOCR renders every page of a PDF as an image and runs each one
// through the vision backend, concatenating results under page-number
// headers. Failures are logged and an empty string is returned so the
// caller can keep the plain extraction.
func ExtractTextOCR(ctx context.Context, pdfBytes []byte, vision llm.Vision) string {
	if vision == nil {
		return ""
	}

	doc, err := fitz.NewFromMemory(pdfBytes)
	if err != nil {
		log.Warn().Err(err).Msg("ocr: could not open pdf for rendering")
		return ""
	}
	defer doc.Close()

	total := doc.NumPage()
	var pages []string
	for n := 0; n < total; n++ {
		log.Debug().Int("page", n+1).Int("total", total).Msg("ocr: processing page")

		img, err := doc.ImageDPI(n, renderDPI)
		if err != nil {
			log.Warn().Err(err).Int("page", n+1).Msg("ocr: page render failed")
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
			log.Warn().Err(err).Int("page", n+1).Msg("ocr: jpeg encode failed")
			continue
		}

		text, err := vision.AnalyzeImage(ctx, ocrPrompt, "image/jpeg", buf.Bytes())
		if err != nil {
			log.Warn().Err(err).Int("page", n+1).Msg("ocr: vision extraction failed")
			continue
		}
		pages = append(pages, fmt.Sprintf("--- Page %d ---\n%s", n+1, strings.TrimSpace(text)))
	}

	if len(pages) == 0 {
		return ""
	}
	log.Info().Int("pages", len(pages)).Msg("ocr: extraction complete")
	return strings.Join(pages, "\n\n")
}
