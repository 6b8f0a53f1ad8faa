package score

import (
	"regexp"
	"strings"

	"github.com/ppiankov/letteraudit/internal/model"
)

const (
	// HighThreshold is the minimum score for high fingerprint confidence
	HighThreshold = 55
	// TargetThreshold is the minimum score for medium confidence and for
	// LooksLikeTarget
	TargetThreshold = 35
	// MaxScore is the sum of all default weights. Scores are not clamped,
	// so a letter hitting every signal scores above 100.
	MaxScore = 115
)

// Signal is one weighted heuristic. Test receives the lower-cased raw
// text and the parse result of the same document.
type Signal struct {
	Label  string
	Points int
	Test   func(lower string, result model.ParseResult) bool
}

// SignalResult is the outcome of one signal for a document
type SignalResult struct {
	Label  string `json:"label"`
	Points int    `json:"points"`
	Fired  bool   `json:"fired"`
}

var (
	authorityRE         = regexp.MustCompile(`\bdepartment of veterans affairs\b`)
	decisionRE          = regexp.MustCompile(`\bdecision\b`)
	evidenceOrReasonsRE = regexp.MustCompile(`evidence|reasons?\s+for\s+decision`)
	diagnosticCodeRE    = regexp.MustCompile(`\bdiagnostic code\b`)
	combinedRE          = regexp.MustCompile(`\bcombined (?:rating|evaluation)\b`)
	effectiveDateRE     = regexp.MustCompile(`\beffective date\b`)
	serviceConnectionRE = regexp.MustCompile(`\bservice[- ]connection(?:ed)?\b`)
	percentRE           = regexp.MustCompile(`\b\d{1,3}\s?%`)
	pageFooterRE        = regexp.MustCompile(`page\s+\d+\s+of\s+\d+`)
)

func matches(re *regexp.Regexp) func(string, model.ParseResult) bool {
	return func(lower string, _ model.ParseResult) bool { return re.MatchString(lower) }
}

// DefaultSignals returns the weight table in evaluation order. The order
// is also the order labels appear in a Fingerprint.
func DefaultSignals() []Signal {
	return []Signal{
		{"Header: Department of Veterans Affairs", 20, matches(authorityRE)},
		{"Sections: Decision + Evidence/Reasons", 20, func(lower string, _ model.ParseResult) bool {
			return decisionRE.MatchString(lower) && evidenceOrReasonsRE.MatchString(lower)
		}},
		{"Mentions Diagnostic Code", 15, matches(diagnosticCodeRE)},
		{"Combined rating stated", 10, matches(combinedRE)},
		{"Effective date present", 10, matches(effectiveDateRE)},
		{"Service connection wording", 10, matches(serviceConnectionRE)},
		{"Percent ratings present", 10, matches(percentRE)},
		{"Claims parsed", 10, func(_ string, r model.ParseResult) bool { return len(r.Claims) > 0 }},
		{"Length > 400 words", 5, func(lower string, _ model.ParseResult) bool { return len(strings.Fields(lower)) > 400 }},
		{"Page x of y footer", 5, matches(pageFooterRE)},
	}
}

// Classifier decides whether a document belongs to the decision-letter family
type Classifier struct {
	signals []Signal
}

// NewClassifier creates a classifier over the default weight table
func NewClassifier() *Classifier {
	return NewClassifierWithSignals(DefaultSignals())
}

// NewClassifierWithSignals creates a classifier over a custom weight table
func NewClassifierWithSignals(signals []Signal) *Classifier {
	return &Classifier{signals: signals}
}

var defaultClassifier = NewClassifier()

// Classify fingerprints raw text with the default weight table
func Classify(raw string, result model.ParseResult) model.Fingerprint {
	return defaultClassifier.Classify(raw, result)
}

// Evaluate runs every signal and reports each outcome, fired or not
func (c *Classifier) Evaluate(raw string, result model.ParseResult) []SignalResult {
	lower := strings.ToLower(raw)

	results := make([]SignalResult, 0, len(c.signals))
	for _, s := range c.signals {
		results = append(results, SignalResult{
			Label:  s.Label,
			Points: s.Points,
			Fired:  s.Test(lower, result),
		})
	}
	return results
}

// Classify sums the points of fired signals and derives the confidence.
// It never fails; unrecognizable text scores 0.
func (c *Classifier) Classify(raw string, result model.ParseResult) model.Fingerprint {
	score := 0
	signals := []string{}

	for _, r := range c.Evaluate(raw, result) {
		if r.Fired {
			score += r.Points
			signals = append(signals, r.Label)
		}
	}

	return model.Fingerprint{
		LooksLikeTarget: score >= TargetThreshold,
		Score:           score,
		Confidence:      ConfidenceFor(score),
		Signals:         signals,
	}
}

// ConfidenceFor maps a fingerprint score onto a confidence level
func ConfidenceFor(score int) model.Confidence {
	switch {
	case score >= HighThreshold:
		return model.ConfidenceHigh
	case score >= TargetThreshold:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
