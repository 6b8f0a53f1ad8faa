package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/letteraudit/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a plain-English summary of one decision letter
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Text is the letter text, already truncated to the input budget
	Text string

	// Result is the deterministic parse of the same letter. It is sent as
	// compact structured context next to the text.
	Result model.ParseResult

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text, before disclaimers are added
	Summary string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int

	// Truncated is set when the provider stopped at the token limit
	Truncated bool
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// MaxInputChars caps how much letter text is sent
	MaxInputChars int

	Temperature float32

	// StrictFacts flags percentages in the summary that the letter never states
	StrictFacts bool

	// Rate limit for provider calls
	RequestsPerSecond float64
	Burst             int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:          "", // Disabled by default
		Model:             "",
		Timeout:           45,
		MaxTokens:         1000,
		MaxInputChars:     20000,
		Temperature:       0.2,
		StrictFacts:       true,
		RequestsPerSecond: 1,
		Burst:             2,
	}
}

// SystemPrompt frames every provider call
const SystemPrompt = "You are a careful assistant that summarizes VA decision letters in plain English. You never give legal advice."

// RequiredSections are the headers every summary must contain, in order
var RequiredSections = []string{
	"1) Overview",
	"2) Decisions by condition",
	"3) Combined rating",
	"4) Effective dates",
	"5) Favorable findings",
	"6) Denials",
	"7) What this means in plain English",
	"8) What's missing or unclear",
}

// sectionGuidance tells the model what goes under each required header
var sectionGuidance = map[string]string{
	"1) Overview":                         "1-3 short bullets with the overall outcome: grants, denials, changes.",
	"2) Decisions by condition":           "One bullet per condition: name, rating % (or \"not service-connected\"), diagnostic code and effective date when present.",
	"3) Combined rating":                  "The combined rating if the letter states one, otherwise \"Not found in this letter.\"",
	"4) Effective dates":                  "Important effective dates and what they mean for payments.",
	"5) Favorable findings":               "Summarize any section titled \"favorable findings\". If there is none, list factual favorable points such as service connection established or evidence accepted.",
	"6) Denials":                          "Each denied condition by name, with the stated reason in plain English. If nothing was denied, write \"No denials in this letter.\"",
	"7) What this means in plain English": "2-4 bullets on practical implications, without legal advice.",
	"8) What's missing or unclear":        "1-3 bullets on missing data or ambiguous parts.",
}

// BuildPrompt constructs the default summarization prompt: the truncated
// letter text, a compact parsed snapshot, and the required section layout
func BuildPrompt(text string, result model.ParseResult) string {
	var b strings.Builder

	b.WriteString(`Explain this VA disability decision letter in plain English. Do not give legal advice.
Use short sections and bullets, specific to this letter. Summarize rather than copying long passages.
Include ALL sections below, in order. If the letter lacks the information for a section, say "Not found".
If you are running out of space, shorten earlier sections instead of dropping later ones.

Document text (truncated):
---
`)
	b.WriteString(text)
	b.WriteString("\n---\n\n")
	b.WriteString(BuildContext(result))
	b.WriteString("\nWrite the summary with EXACTLY these sections, in this order:\n\n")

	for _, section := range RequiredSections {
		fmt.Fprintf(&b, "%s\n- %s\n\n", section, sectionGuidance[section])
	}

	b.WriteString(`Style rules:
- Plain language, short bullets or mini-paragraphs.
- No legal advice, no instructions to file, no speculation.
- Aim for 300-400 words; go up to about 500 only for unusually long letters.
`)

	return b.String()
}

// BuildContext renders the parse result as a compact snapshot
func BuildContext(result model.ParseResult) string {
	var b strings.Builder

	b.WriteString("Parsed snapshot:\n")
	fmt.Fprintf(&b, "- Combined rating (stated): %s\n", percentOr(result.Facts.CombinedRatingStated, "not found"))
	fmt.Fprintf(&b, "- Effective dates: %s\n", joinOr(result.Facts.EffectiveDates, "not found"))
	b.WriteString("- Conditions:\n")

	if len(result.Claims) == 0 {
		b.WriteString("  (none parsed)\n")
	}
	for _, c := range result.Claims {
		fmt.Fprintf(&b, "  • %s | rating: %s | DC: %s | effective: %s\n",
			c.Name, percentOr(c.RatingPercent, "?"), valueOr(c.DiagnosticCode, "?"), valueOr(c.EffectiveDate, "?"))
	}

	return b.String()
}

// Truncate cuts text to at most max runes, reporting whether it was cut
func Truncate(text string, max int) (string, bool) {
	if max <= 0 {
		return text, false
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text, false
	}
	return string(runes[:max]), true
}

// Helper functions

func percentOr(v *int, fallback string) string {
	if v == nil {
		return fallback
	}
	return fmt.Sprintf("%d%%", *v)
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func joinOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return strings.Join(values, ", ")
}
