package extract

import "github.com/ppiankov/letteraudit/internal/model"

// ExtractionConfidence grades how much structure the parser found.
// It is independent of the fingerprint confidence and may disagree with it.
//
//	high:   sections AND a rated claim AND (an effective date OR a combined rating)
//	medium: sections OR a rated claim
//	low:    neither
func ExtractionConfidence(claims []model.ClaimRecord, facts model.DocumentFacts) model.Confidence {
	hasSections := facts.Sections.Any()

	hasRating := false
	hasEffective := len(facts.EffectiveDates) > 0
	for _, c := range claims {
		if c.HasRating() {
			hasRating = true
		}
		if c.EffectiveDate != "" {
			hasEffective = true
		}
	}

	switch {
	case hasSections && hasRating && (hasEffective || facts.CombinedRatingStated != nil):
		return model.ConfidenceHigh
	case hasSections || hasRating:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
