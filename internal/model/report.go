package model

import "time"

// Confidence is a coarse three-way level used by both extraction and fingerprinting
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank orders confidence levels (low=0, medium=1, high=2; unknown=-1)
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 0
	case ConfidenceMedium:
		return 1
	case ConfidenceHigh:
		return 2
	default:
		return -1
	}
}

// AtLeast reports whether c is at or above min
func (c Confidence) AtLeast(min Confidence) bool {
	return c.Rank() >= 0 && c.Rank() >= min.Rank()
}

// ParseConfidence converts a string into a Confidence, reporting whether it was valid
func ParseConfidence(s string) (Confidence, bool) {
	c := Confidence(s)
	return c, c.Rank() >= 0
}

// ParseResult is the output of parsing one letter. Treat as immutable.
type ParseResult struct {
	Claims               []ClaimRecord `json:"claims"`
	Facts                DocumentFacts `json:"facts"`
	ExtractionConfidence Confidence    `json:"extraction_confidence"`
	Warnings             []string      `json:"warnings,omitempty"` // Ambiguities the parser flagged instead of guessing
}

// Fingerprint answers whether a document belongs to the decision-letter family.
// Score ranges 0..115; it is intentionally not clamped to 100.
type Fingerprint struct {
	LooksLikeTarget bool       `json:"looks_like_target"`
	Score           int        `json:"score"`
	Confidence      Confidence `json:"confidence"`
	Signals         []string   `json:"signals"` // Labels of fired heuristics, in evaluation order
}

// Gate records whether downstream analysis (AI summary) is permitted
type Gate struct {
	Open   bool   `json:"open"`
	Reason string `json:"reason"`
}

// Report is the complete audit of one source document
type Report struct {
	Source            string    `json:"source"`              // Path or URL that was audited
	Format            string    `json:"format"`              // text, html, remote
	PageCount         int       `json:"page_count"`          // As reported by the loader
	HadSelectableText bool      `json:"had_selectable_text"` // False for image-only inputs
	AuditedAt         time.Time `json:"audited_at"`

	Result      ParseResult `json:"result"`
	Fingerprint Fingerprint `json:"fingerprint"`
	Gate        Gate        `json:"gate"`

	LLM *LLMSummary `json:"llm,omitempty"` // Optional summary (never affects parsing or fingerprint)
}

// LLMSummary contains an optional AI-generated plain-English summary
type LLMSummary struct {
	Enabled         bool     `json:"enabled"`
	Provider        string   `json:"provider,omitempty"`         // openai, anthropic, ollama
	Model           string   `json:"model,omitempty"`            // Model name
	Cached          bool     `json:"cached,omitempty"`           // Served from the summary cache
	SummaryMD       string   `json:"summary_md,omitempty"`       // Summary wrapped in disclaimers
	MissingSections []string `json:"missing_sections,omitempty"` // Required headers absent from the output
	Warnings        []string `json:"warnings,omitempty"`
}
