package model

// SectionName is the canonical name of a recognized letter heading
type SectionName string

const (
	SectionDecision   SectionName = "decision"
	SectionEvidence   SectionName = "evidence"
	SectionReasons    SectionName = "reasons"
	SectionReferences SectionName = "references"
)

// SectionNames lists the canonical sections in reporting order
var SectionNames = []SectionName{SectionDecision, SectionEvidence, SectionReasons, SectionReferences}

// Sections holds the named slices of the normalized text plus the full text.
// An empty slice field means the heading was not found.
type Sections struct {
	Decision   string `json:"decision,omitempty"`
	Evidence   string `json:"evidence,omitempty"`
	Reasons    string `json:"reasons,omitempty"`
	References string `json:"references,omitempty"`
	Full       string `json:"full"`
}

// Get returns the slice for a canonical section name
func (s Sections) Get(name SectionName) (string, bool) {
	var v string
	switch name {
	case SectionDecision:
		v = s.Decision
	case SectionEvidence:
		v = s.Evidence
	case SectionReasons:
		v = s.Reasons
	case SectionReferences:
		v = s.References
	}
	return v, v != ""
}

// Found returns the canonical names of the sections present, in reporting order
func (s Sections) Found() []SectionName {
	found := []SectionName{}
	for _, name := range SectionNames {
		if _, ok := s.Get(name); ok {
			found = append(found, name)
		}
	}
	return found
}

// Any reports whether at least one named section was found
func (s Sections) Any() bool {
	return len(s.Found()) > 0
}

// DocumentFacts contains document-level facts, one per parse
type DocumentFacts struct {
	CombinedRatingStated *int     `json:"combined_rating_stated,omitempty"` // Explicit combined value, distinct from claim ratings
	EffectiveDates       []string `json:"effective_dates"`                  // De-duplicated, first-seen order
	DiagnosticCodes      []string `json:"diagnostic_codes"`                 // De-duplicated, first-seen order
	Sections             Sections `json:"sections"`
}
