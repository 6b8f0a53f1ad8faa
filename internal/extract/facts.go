package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	monthPattern    = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`
	longDatePattern = `\b` + monthPattern + `\s+\d{1,2},\s+\d{4}\b`
	isoDatePattern  = `\b\d{4}-\d{2}-\d{2}\b`
)

var (
	combinedRatingRE = regexp.MustCompile(`(?i)combined\s+(?:evaluation|rating)\s+(?:is|of)\s+(\d{1,3})\s*percent`)
	effectiveDateRE  = regexp.MustCompile(`(?i)effective\s+(?:date\s+of\s+)?(` + longDatePattern + `|` + isoDatePattern + `)`)
	diagnosticCodeRE = regexp.MustCompile(`(?i)diagnostic\s*code\s*(\d{4})\b`)
	percentNearRE    = regexp.MustCompile(`(?i)\b(\d{1,3})\s*percent(?:\s*(?:evaluation|rating|disabling))?`)
)

// CombinedRating returns the first explicitly stated combined rating,
// clamped to [0,100], or nil when the letter does not state one
func CombinedRating(full string) *int {
	m := combinedRatingRE.FindStringSubmatch(full)
	if m == nil {
		return nil
	}
	if v, ok := parsePercent(m[1]); ok {
		return &v
	}
	return nil
}

// EffectiveDates returns every "effective [date of] DATE" value in document
// order, de-duplicated
func EffectiveDates(full string) []string {
	return dedupe(submatches(effectiveDateRE, full, 1))
}

// DiagnosticCodes returns every "diagnostic code NNNN" value in document
// order, de-duplicated
func DiagnosticCodes(full string) []string {
	return dedupe(submatches(diagnosticCodeRE, full, 1))
}

// submatches collects capture group idx of every match
func submatches(re *regexp.Regexp, s string, idx int) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		out = append(out, m[idx])
	}
	return out
}

// firstSubmatch returns capture group 1 of the first match, or ""
func firstSubmatch(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}

// dedupe removes duplicates keeping first-seen order; never returns nil
func dedupe(values []string) []string {
	seen := make(map[string]bool)
	unique := []string{}

	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}

	return unique
}

// parsePercent parses an integer and clamps it into [0,100]
func parsePercent(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return clampPercent(n), true
}

func clampPercent(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
