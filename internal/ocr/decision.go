package ocr

import (
	"strings"
	"unicode"
)

const (
	minTotalChars   = 300
	minCharsPerPage = 120
	minAlphaRatio   = 0.2
)

// NeedsOCR decides whether extracted document text is too thin to trust and
// the document should go through vision-based extraction instead. It is a
// document-level gate, not per-page.
func NeedsOCR(extracted string, pageCount int) bool {
	text := strings.TrimSpace(extracted)
	totalChars := len([]rune(text))
	if totalChars == 0 {
		return true
	}

	charsPerPage := float64(totalChars)
	if pageCount > 0 {
		charsPerPage = float64(totalChars) / float64(pageCount)
	}

	alphaChars := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			alphaChars++
		}
	}
	alphaRatio := float64(alphaChars) / float64(totalChars)

	return totalChars < minTotalChars ||
		charsPerPage < minCharsPerPage ||
		alphaRatio < minAlphaRatio
}
