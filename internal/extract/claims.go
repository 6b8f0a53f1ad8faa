package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/letteraudit/internal/model"
)

// Phrasing names the wording a claim was recognized from
type Phrasing string

const (
	PhrasingServiceConnection Phrasing = "service_connection" // service connection for X is granted/denied
	PhrasingIncrease          Phrasing = "increase"           // an increase/evaluation of X is granted/denied
	PhrasingRatingFor         Phrasing = "rating_for"         // a N percent evaluation is assigned for X
	PhrasingForRating         Phrasing = "for_rating"         // for X, a N percent evaluation is assigned
	PhrasingFallback          Phrasing = "fallback"           // relaxed whole-document pattern
)

// nameTerminator ends a lazily captured condition name. RE2 has no
// lookahead, so the terminator is consumed; only the capture is used.
const nameTerminator = `(?:\s*[.,;:]|\s+(?:is|was|effective|under|because)\b|\s*$)`

// claimMatch is what a template pulls out of one matching line
type claimMatch struct {
	name      string
	rating    *int
	ambiguous bool // both captures were numeric
}

// claimTemplate pairs one phrasing pattern with its capture extractor
type claimTemplate struct {
	phrasing Phrasing
	pattern  *regexp.Regexp
	extract  func(groups []string) claimMatch
}

// defaultTemplates returns the claim phrasings in priority order.
// The first template matching a line wins.
func defaultTemplates() []claimTemplate {
	return []claimTemplate{
		{
			phrasing: PhrasingServiceConnection,
			pattern:  regexp.MustCompile(`(?i)service\s+connection\s+for\s+(.+?)\s+is\s+(?:granted|denied)`),
			extract:  nameOnly,
		},
		{
			phrasing: PhrasingIncrease,
			pattern:  regexp.MustCompile(`(?i)(?:increase|evaluation)\s+of\s+(.+?)\s+is\s+(?:granted|denied)`),
			extract:  nameOnly,
		},
		{
			phrasing: PhrasingRatingFor,
			pattern:  regexp.MustCompile(`(?i)\b(?:a|an)\s+(\d{1,3})\s*percent\s+(?:evaluation|rating)\s+(?:is\s+assigned\s+for|for)\s+(.+?)` + nameTerminator),
			extract:  func(g []string) claimMatch { return splitNameAndRating(g[1], g[2], 0) },
		},
		{
			phrasing: PhrasingForRating,
			pattern:  regexp.MustCompile(`(?i)\bfor\s+(.+?),\s+(?:a|an)\s+(\d{1,3})\s*percent\s+(?:evaluation|rating)\s+is\s+assigned`),
			extract:  func(g []string) claimMatch { return splitNameAndRating(g[1], g[2], 1) },
		},
	}
}

// fallbackRE is the relaxed "a N percent evaluation ... for X" pattern,
// applied to the whole document only when the line scan finds nothing
var fallbackRE = regexp.MustCompile(`(?im)\b(?:a|an)\s+(\d{1,3})\s*percent\s+(?:evaluation|rating)\b[^\n]*?\bfor\s+([^\n]+?)` + nameTerminator)

var (
	alsoClaimedRE   = regexp.MustCompile(`(?i)\(\s*also\s+claimed\s+as[^)]*\)?`)
	whitespaceRE    = regexp.MustCompile(`\s+`)
	trailingPunctRE = regexp.MustCompile(`[.,;:]+$`)
	sentenceBreakRE = regexp.MustCompile(`[.?!]\s+`)
)

func nameOnly(g []string) claimMatch {
	return claimMatch{name: g[1]}
}

// splitNameAndRating decides which of two captures is the rating by testing
// which one parses as an integer. ratingIdx is the position the template
// expects the rating in; it breaks the tie when both captures are numeric.
func splitNameAndRating(first, second string, ratingIdx int) claimMatch {
	groups := [2]string{first, second}
	_, firstErr := strconv.Atoi(strings.TrimSpace(first))
	_, secondErr := strconv.Atoi(strings.TrimSpace(second))

	switch {
	case firstErr == nil && secondErr == nil:
		v, _ := parsePercent(groups[ratingIdx])
		return claimMatch{name: groups[1-ratingIdx], rating: &v, ambiguous: true}
	case firstErr == nil:
		v, _ := parsePercent(first)
		return claimMatch{name: second, rating: &v}
	case secondErr == nil:
		v, _ := parsePercent(second)
		return claimMatch{name: first, rating: &v}
	default:
		return claimMatch{name: groups[1-ratingIdx]}
	}
}

// ClaimExtractor finds per-condition records in decision letter text
type ClaimExtractor struct {
	templates []claimTemplate
}

// NewClaimExtractor creates a claim extractor with the default phrasings
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{templates: defaultTemplates()}
}

// Extract scans the decision and reasons slices (or the whole text when
// neither heading exists) line by line. Warnings describe lines whose
// rating could not be told apart from the condition name.
func (e *ClaimExtractor) Extract(full string, slices map[model.SectionName]string) ([]model.ClaimRecord, []string) {
	claims := []model.ClaimRecord{}
	var warnings []string

	for _, region := range candidateRegions(full, slices) {
		lines := toLines(region)
		for i := range lines {
			claim, warning, ok := e.matchLine(lines, i)
			if warning != "" {
				warnings = append(warnings, warning)
			}
			if ok {
				claims = append(claims, claim)
			}
		}
	}

	if len(claims) == 0 {
		claims = fallbackClaims(full)
	}

	return claims, warnings
}

// candidateRegions returns the regions to scan for claim lines
func candidateRegions(full string, slices map[model.SectionName]string) []string {
	var regions []string
	if s, ok := slices[model.SectionDecision]; ok && s != "" {
		regions = append(regions, s)
	}
	if s, ok := slices[model.SectionReasons]; ok && s != "" {
		regions = append(regions, s)
	}
	if len(regions) == 0 && full != "" {
		regions = append(regions, full)
	}
	return regions
}

// matchLine applies the templates to lines[i] and fills gaps from the
// two following lines
func (e *ClaimExtractor) matchLine(lines []string, i int) (model.ClaimRecord, string, bool) {
	line := lines[i]

	for _, tmpl := range e.templates {
		groups := tmpl.pattern.FindStringSubmatch(line)
		if groups == nil {
			continue
		}

		m := tmpl.extract(groups)
		var warning string
		if m.ambiguous {
			warning = fmt.Sprintf("ambiguous rating on line %q: both captures are numeric, rating taken from the %s position", line, tmpl.phrasing)
		}

		name := cleanName(m.name)
		if name == "" {
			return model.ClaimRecord{}, warning, false
		}

		neigh := strings.Join(window(lines, i, 3), " ")
		if m.rating == nil {
			if v, ok := parsePercent(firstSubmatch(percentNearRE, neigh)); ok {
				m.rating = &v
			}
		}

		return model.ClaimRecord{
			Name:             name,
			RatingPercent:    m.rating,
			DiagnosticCode:   firstSubmatch(diagnosticCodeRE, neigh),
			EffectiveDate:    firstSubmatch(effectiveDateRE, neigh),
			RationaleSnippet: rationale(strings.Join(window(lines, i, 2), " ")),
			Phrasing:         string(tmpl.phrasing),
		}, warning, true
	}

	return model.ClaimRecord{}, "", false
}

// fallbackClaims applies the relaxed pattern to the whole document
func fallbackClaims(full string) []model.ClaimRecord {
	claims := []model.ClaimRecord{}
	for _, g := range fallbackRE.FindAllStringSubmatch(full, -1) {
		name := cleanName(g[2])
		if name == "" {
			continue
		}
		v, _ := parsePercent(g[1])
		claims = append(claims, model.ClaimRecord{
			Name:          name,
			RatingPercent: &v,
			Phrasing:      string(PhrasingFallback),
		})
	}
	return claims
}

// window returns up to n lines starting at i
func window(lines []string, i, n int) []string {
	end := i + n
	if end > len(lines) {
		end = len(lines)
	}
	return lines[i:end]
}

// cleanName strips "(also claimed as ...)" annotations, collapses
// whitespace and drops trailing punctuation
func cleanName(raw string) string {
	name := alsoClaimedRE.ReplaceAllString(raw, "")
	name = whitespaceRE.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingPunctRE.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// rationale keeps at most the first two sentences of text
func rationale(text string) string {
	breaks := sentenceBreakRE.FindAllStringIndex(text, 2)
	if len(breaks) < 2 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:breaks[1][0]+1])
}
