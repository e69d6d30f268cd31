package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"multimodal-rag/internal/llm"
)

const (
	analyzePrompt = "Analyze this image in detail. Extract text, layout, objects, and data. Also describe the image based on your understanding."

	visionRetries = 3
	visionBackoff = 2 * time.Second
)

// AnalyzeImage extracts a textual description of an image through a vision
// backend. Transient failures (rate limit, unavailable) are retried up to
// visionRetries times with a fixed backoff; permanent failures and retry
// exhaustion degrade to a synthesized description carrying the image's
// format and dimensions. It never returns an error: the worst case is the
// fallback text.
func AnalyzeImage(ctx context.Context, vision llm.Vision, imgBytes []byte) string {
	if vision == nil {
		return fallbackDescription(imgBytes,
			"Vision backend is not configured. Image stored but AI analysis unavailable.")
	}

	mime := http.DetectContentType(imgBytes)
	var lastErr error
	for attempt := 1; attempt <= visionRetries; attempt++ {
		text, err := vision.AnalyzeImage(ctx, analyzePrompt, mime, imgBytes)
		if err == nil {
			return text
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("image analysis failed")

		if isPermanent(err) {
			return fallbackDescription(imgBytes,
				fmt.Sprintf("Vision API error - %.100s. Image stored but AI analysis unavailable.", err.Error()))
		}
		if isTransient(err) {
			select {
			case <-time.After(visionBackoff):
			case <-ctx.Done():
				return fallbackDescription(imgBytes, "Vision analysis cancelled.")
			}
		}
	}
	return fallbackDescription(imgBytes,
		fmt.Sprintf("Vision API unavailable after %d attempts (%.100s).", visionRetries, lastErr.Error()))
}

func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "unavailable")
}

func isPermanent(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "404") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "invalid model")
}

func fallbackDescription(imgBytes []byte, note string) string {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imgBytes))
	if err != nil {
		return fmt.Sprintf("Image uploaded: unknown format. Note: %s", note)
	}
	return fmt.Sprintf("Image uploaded: %s format, size: %dx%d pixels. Note: %s",
		strings.ToUpper(format), cfg.Width, cfg.Height, note)
}
