package model

// ClaimRecord is one adjudicated issue found in a decision letter
type ClaimRecord struct {
	Name             string `json:"name"`                        // Cleaned condition label, never empty
	RatingPercent    *int   `json:"rating_percent,omitempty"`    // 0-100 when stated
	DiagnosticCode   string `json:"diagnostic_code,omitempty"`   // 4-digit code as found
	EffectiveDate    string `json:"effective_date,omitempty"`    // Date text as found (long or ISO form)
	RationaleSnippet string `json:"rationale_snippet,omitempty"` // At most two sentences of surrounding text
	Phrasing         string `json:"phrasing,omitempty"`          // Which phrasing template matched (e.g., "service_connection")
}

// HasRating reports whether the claim carries a rating percent
func (c ClaimRecord) HasRating() bool {
	return c.RatingPercent != nil
}

// Rating returns the rating percent and whether it was present
func (c ClaimRecord) Rating() (int, bool) {
	if c.RatingPercent == nil {
		return 0, false
	}
	return *c.RatingPercent, true
}

// Percent returns a pointer to v, for building optional ratings
func Percent(v int) *int {
	return &v
}
