package extract

import "github.com/ppiankov/letteraudit/internal/model"

// Parser turns letter text into a ParseResult. It holds no mutable state
// and is safe for concurrent use.
type Parser struct {
	claims *ClaimExtractor
}

// NewParser creates a parser with the default claim phrasings
func NewParser() *Parser {
	return &Parser{claims: NewClaimExtractor()}
}

var defaultParser = NewParser()

// Parse parses raw letter text with the default parser
func Parse(raw string) model.ParseResult {
	return defaultParser.Parse(raw)
}

// Parse never fails: missing structure lowers the extraction confidence.
// Byte-identical input always yields an identical result.
func (p *Parser) Parse(raw string) model.ParseResult {
	full := Normalize(raw)
	slices := Segment(full)

	facts := model.DocumentFacts{
		CombinedRatingStated: CombinedRating(full),
		EffectiveDates:       EffectiveDates(full),
		DiagnosticCodes:      DiagnosticCodes(full),
		Sections:             buildSections(full, slices),
	}

	claims, warnings := p.claims.Extract(full, slices)

	return model.ParseResult{
		Claims:               claims,
		Facts:                facts,
		ExtractionConfidence: ExtractionConfidence(claims, facts),
		Warnings:             warnings,
	}
}
