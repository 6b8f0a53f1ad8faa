package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/letteraudit/internal/cache"
	"github.com/ppiankov/letteraudit/internal/model"
	"github.com/ppiankov/letteraudit/internal/worker"
)

var (
	// ErrGateClosed is returned when the fingerprint does not recognize the document
	ErrGateClosed = errors.New("AI analysis is only available for recognized VA decision letters")

	// ErrConsentRequired is returned when letter text would leave the machine without consent
	ErrConsentRequired = errors.New("consent is required before sending letter text to an AI provider")
)

const (
	DisclaimerTop    = "⚠️ This is a plain-English summary for your information only. It is not legal advice."
	DisclaimerBottom = "⚠️ This is not legal advice. If you need help with an appeal or review, consider contacting a qualified representative."
)

const noSummary = "No summary generated."

var percentMentionRE = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:%|percent\b)`)

// Summarizer generates optional plain-English summaries of decision letters
type Summarizer struct {
	provider Provider
	config   Config
	cache    cache.Cache
	limiter  *worker.Limiter
	logger   *slog.Logger
}

// NewSummarizer creates a summarizer for the configured provider. An empty
// provider yields a disabled summarizer. A nil cache stores nothing and a
// nil logger uses slog.Default().
func NewSummarizer(config Config, c cache.Cache, logger *slog.Logger) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, fmt.Errorf("create provider: %w", err)
	}
	return newSummarizer(provider, config, c, logger), nil
}

func newSummarizer(provider Provider, config Config, c cache.Cache, logger *slog.Logger) *Summarizer {
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{
		provider: provider,
		config:   config,
		cache:    c,
		limiter:  worker.NewLimiter(config.RequestsPerSecond, config.Burst),
		logger:   logger,
	}
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// Summarize produces a summary of one letter. It refuses with ErrGateClosed
// or ErrConsentRequired before any text is sent. Provider failures do not
// return an error; they come back as warnings on a disabled summary.
// A disabled summarizer returns (nil, nil).
func (s *Summarizer) Summarize(ctx context.Context, text string, result model.ParseResult, gate model.Gate, consent bool) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}
	if !gate.Open {
		return nil, ErrGateClosed
	}
	if !consent {
		return nil, ErrConsentRequired
	}

	name := s.provider.Name()
	summary := &model.LLMSummary{
		Enabled:  true,
		Provider: name,
		Model:    s.config.Model,
	}

	input, truncated := Truncate(text, s.config.MaxInputChars)
	if truncated {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("Letter text truncated to %d characters before summarizing", s.config.MaxInputChars))
	}

	key := cache.SummaryKey(name, s.config.Model, input)
	if cached, ok := s.fromCache(key); ok {
		s.logger.Info("llm.cache_hit", "provider", name)
		return cached, nil
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("LLM provider '%s' is not available", name))
		return summary, nil
	}

	if err := s.limiter.Wait(ctx, name); err != nil {
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	s.logger.Info("llm.summarize", "provider", name, "input_chars", len(input))
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Text:      input,
		Result:    result,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		s.logger.Warn("llm.failed", "provider", name, "err", err)
		summary.Enabled = false
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	body := strings.TrimSpace(resp.Summary)
	if body == "" {
		body = noSummary
	}
	if resp.Model != "" {
		summary.Model = resp.Model
	}

	summary.MissingSections = MissingSections(body)
	summary.SummaryMD = Wrap(body, summary.MissingSections)

	if s.config.StrictFacts {
		for _, p := range UnsupportedPercents(body, text, result) {
			summary.Warnings = append(summary.Warnings,
				fmt.Sprintf("Summary mentions %d%%, which the letter does not state", p))
		}
	}
	if resp.Truncated {
		summary.Warnings = append(summary.Warnings, "Summary stopped at the max_tokens limit and may be cut off")
	}

	// Token usage belongs to this call only, so it stays out of the cache
	s.store(key, summary)
	if resp.TokensUsed > 0 {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	}
	return summary, nil
}

func (s *Summarizer) fromCache(key string) (*model.LLMSummary, bool) {
	data, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	var summary model.LLMSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		_ = s.cache.Delete(key)
		return nil, false
	}
	summary.Cached = true
	return &summary, true
}

func (s *Summarizer) store(key string, summary *model.LLMSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(key, data, 0); err != nil {
		s.logger.Warn("llm.cache_write_failed", "err", err)
	}
}

// MissingSections returns the required headers absent from body, in order
func MissingSections(body string) []string {
	var missing []string
	for _, h := range RequiredSections {
		if !strings.Contains(body, h) {
			missing = append(missing, h)
		}
	}
	return missing
}

// Wrap adds the condensed-summary note (when sections are missing) and the
// top and bottom disclaimers
func Wrap(body string, missing []string) string {
	var b strings.Builder
	b.WriteString(DisclaimerTop)
	b.WriteString("\n\n")
	b.WriteString(body)
	if len(missing) > 0 {
		fmt.Fprintf(&b, "\n\nNote: The summary may be condensed. Missing sections: %s.", strings.Join(missing, ", "))
	}
	b.WriteString("\n\n")
	b.WriteString(DisclaimerBottom)
	return b.String()
}

// UnsupportedPercents returns percentages the summary states that appear
// neither in the letter text nor in the parse result, in first-seen order
func UnsupportedPercents(summary, letter string, result model.ParseResult) []int {
	known := make(map[int]bool)
	for _, m := range percentMentionRE.FindAllStringSubmatch(letter, -1) {
		if v, err := strconv.Atoi(m[1]); err == nil {
			known[v] = true
		}
	}
	for _, c := range result.Claims {
		if v, ok := c.Rating(); ok {
			known[v] = true
		}
	}
	if result.Facts.CombinedRatingStated != nil {
		known[*result.Facts.CombinedRatingStated] = true
	}

	var out []int
	seen := make(map[int]bool)
	for _, m := range percentMentionRE.FindAllStringSubmatch(summary, -1) {
		v, err := strconv.Atoi(m[1])
		if err != nil || known[v] || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
