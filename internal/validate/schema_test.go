package validate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ppiankov/letteraudit/internal/extract"
)

func TestParseResult_Valid(t *testing.T) {
	data := []byte(`{
		"claims": [
			{"name": "tinnitus", "rating_percent": 10, "diagnostic_code": "6260", "phrasing": "service_connection"},
			{"name": "hearing loss"}
		],
		"facts": {
			"combined_rating_stated": 40,
			"effective_dates": ["January 5, 2020"],
			"diagnostic_codes": ["6260"],
			"sections": {"decision": "Decision", "full": "Decision"}
		},
		"extraction_confidence": "high"
	}`)

	result, err := ParseResult(data)
	if err != nil {
		t.Fatalf("Expected valid parse result, got %v", err)
	}

	if len(result.Claims) != 2 || result.Claims[0].Name != "tinnitus" {
		t.Errorf("Unexpected claims: %+v", result.Claims)
	}
	if v, ok := result.Claims[0].Rating(); !ok || v != 10 {
		t.Errorf("Expected rating 10, got %v", v)
	}
	if result.Claims[1].HasRating() {
		t.Error("Expected no rating on second claim")
	}
	if result.Facts.CombinedRatingStated == nil || *result.Facts.CombinedRatingStated != 40 {
		t.Error("Expected combined rating 40")
	}
}

func TestParseResult_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{claims`},
		{"missing claims", `{"facts": {}, "extraction_confidence": "low"}`},
		{"rating above 100", `{"claims": [{"name": "x", "rating_percent": 120}], "facts": {}, "extraction_confidence": "low"}`},
		{"negative rating", `{"claims": [{"name": "x", "rating_percent": -10}], "facts": {}, "extraction_confidence": "low"}`},
		{"empty name", `{"claims": [{"name": ""}], "facts": {}, "extraction_confidence": "low"}`},
		{"three digit code", `{"claims": [{"name": "x", "diagnostic_code": "626"}], "facts": {}, "extraction_confidence": "low"}`},
		{"unknown confidence", `{"claims": [], "facts": {}, "extraction_confidence": "certain"}`},
		{"combined rating string", `{"claims": [], "facts": {"combined_rating_stated": "40"}, "extraction_confidence": "low"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseResult([]byte(tt.data)); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

func TestParseResult_ErrorMentionsSchema(t *testing.T) {
	_, err := ParseResult([]byte(`{"claims": [], "facts": {}, "extraction_confidence": "certain"}`))
	if err == nil || !strings.Contains(err.Error(), "does not match schema") {
		t.Errorf("Expected schema error, got %v", err)
	}
}

func TestParseResult_AcceptsParserOutput(t *testing.T) {
	letter := "Decision\nService connection for tinnitus is granted.\nA 10 percent evaluation is assigned for tinnitus, effective June 1, 2023.\nDiagnostic Code 6260"

	data, err := json.Marshal(extract.Parse(letter))
	if err != nil {
		t.Fatal(err)
	}

	result, err := ParseResult(data)
	if err != nil {
		t.Fatalf("Expected parser output to validate, got %v", err)
	}
	if len(result.Claims) == 0 {
		t.Error("Expected claims to round trip")
	}
}
