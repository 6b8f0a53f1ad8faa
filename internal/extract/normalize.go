package extract

import (
	"regexp"
	"strings"
)

var (
	// horizontalSpaceRE matches runs of horizontal whitespace, including the
	// no-break spaces PDF text extraction tends to emit
	horizontalSpaceRE = regexp.MustCompile(`[ \t\f\v\x{00A0}]+`)
	blankRunRE        = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes line endings and whitespace so the extractors see
// consistent text. It is idempotent and never alters words or punctuation.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = horizontalSpaceRE.ReplaceAllString(text, " ")
	text = blankRunRE.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// toLines splits normalized text into non-empty physical lines
func toLines(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return r == '\n' })
}
