package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/letteraudit/internal/cache"
	"github.com/ppiankov/letteraudit/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *SummarizeResponse
	err       error
	calls     int
	lastReq   SummarizeRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

var openGate = model.Gate{Open: true, Reason: "Recognized as a VA decision letter"}

const fullSummary = `1) Overview
- Tinnitus granted at 10%.
2) Decisions by condition
- Tinnitus: 10%, DC 6260.
3) Combined rating
- Not found in this letter.
4) Effective dates
- June 1, 2023.
5) Favorable findings
- Service connection established.
6) Denials
- No denials in this letter.
7) What this means in plain English
- Monthly payments start after the effective date.
8) What's missing or unclear
- Nothing notable.`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func letterResult() model.ParseResult {
	return model.ParseResult{
		Claims: []model.ClaimRecord{{Name: "tinnitus", RatingPercent: model.Percent(10), DiagnosticCode: "6260"}},
	}
}

func newTestSummarizer(p Provider, config Config) *Summarizer {
	return newSummarizer(p, config, nil, quietLogger())
}

func TestNewSummarizer_DisabledProvider(t *testing.T) {
	summarizer, err := NewSummarizer(Config{Provider: ""}, nil, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if summarizer.IsEnabled() {
		t.Error("Expected summarizer to be disabled")
	}
	if summarizer.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}

	summary, err := summarizer.Summarize(context.Background(), "text", model.ParseResult{}, openGate, true)
	if err != nil || summary != nil {
		t.Errorf("Expected (nil, nil) when disabled, got (%v, %v)", summary, err)
	}
}

func TestNewSummarizer_UnknownProvider(t *testing.T) {
	if _, err := NewSummarizer(Config{Provider: "bard"}, nil, nil); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestSummarizer_Summarize_GateClosed(t *testing.T) {
	mock := &MockProvider{name: "test-provider", available: true}
	s := newTestSummarizer(mock, Config{})

	_, err := s.Summarize(context.Background(), "text", model.ParseResult{}, model.Gate{Open: false}, true)
	if !errors.Is(err, ErrGateClosed) {
		t.Errorf("Expected ErrGateClosed, got %v", err)
	}
	if mock.calls != 0 {
		t.Error("Expected no provider call when the gate is closed")
	}
}

func TestSummarizer_Summarize_ConsentRequired(t *testing.T) {
	mock := &MockProvider{name: "test-provider", available: true}
	s := newTestSummarizer(mock, Config{})

	_, err := s.Summarize(context.Background(), "text", model.ParseResult{}, openGate, false)
	if !errors.Is(err, ErrConsentRequired) {
		t.Errorf("Expected ErrConsentRequired, got %v", err)
	}
	if mock.calls != 0 {
		t.Error("Expected no provider call without consent")
	}
}

func TestSummarizer_Summarize_ProviderUnavailable(t *testing.T) {
	s := newTestSummarizer(&MockProvider{name: "test-provider", available: false}, Config{})

	summary, err := s.Summarize(context.Background(), "text", model.ParseResult{}, openGate, true)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if summary == nil {
		t.Fatal("Expected summary object with warnings")
	}
	if summary.Enabled {
		t.Error("Expected summary to be marked as disabled")
	}
	if !containsWarning(summary.Warnings, "not available") {
		t.Errorf("Expected warning about provider unavailability, got %v", summary.Warnings)
	}
}

func TestSummarizer_Summarize_Success(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		response:  &SummarizeResponse{Summary: "  " + fullSummary + "\n", Model: "test-model", TokensUsed: 150},
	}
	s := newTestSummarizer(mock, Config{Model: "test-model", MaxTokens: 800, StrictFacts: true})

	text := "Service connection for tinnitus is granted with an evaluation of 10 percent."
	summary, err := s.Summarize(context.Background(), text, letterResult(), openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !summary.Enabled || summary.Provider != "test-provider" || summary.Model != "test-model" {
		t.Errorf("Unexpected summary metadata: %+v", summary)
	}
	if !strings.HasPrefix(summary.SummaryMD, DisclaimerTop+"\n\n1) Overview") {
		t.Errorf("Expected top disclaimer before the body, got %q", summary.SummaryMD)
	}
	if !strings.HasSuffix(summary.SummaryMD, "\n\n"+DisclaimerBottom) {
		t.Error("Expected bottom disclaimer after the body")
	}
	if strings.Contains(summary.SummaryMD, "Missing sections") {
		t.Error("Expected no condensed note when every section is present")
	}
	if len(summary.MissingSections) != 0 {
		t.Errorf("Expected no missing sections, got %v", summary.MissingSections)
	}
	if !containsWarning(summary.Warnings, "Tokens used: 150") {
		t.Errorf("Expected token warning, got %v", summary.Warnings)
	}
	if containsWarning(summary.Warnings, "does not state") {
		t.Errorf("Expected no unsupported-percent warning, got %v", summary.Warnings)
	}

	if mock.lastReq.MaxTokens != 800 || mock.lastReq.Model != "test-model" {
		t.Errorf("Expected config passed to provider, got %+v", mock.lastReq)
	}
	if mock.lastReq.Text != text {
		t.Error("Expected untruncated letter text")
	}
}

func TestSummarizer_Summarize_MissingSections(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		response:  &SummarizeResponse{Summary: "1) Overview\n- Granted.\n2) Decisions by condition\n- Tinnitus."},
	}
	s := newTestSummarizer(mock, Config{})

	summary, err := s.Summarize(context.Background(), "text", model.ParseResult{}, openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(summary.MissingSections) != 6 || summary.MissingSections[0] != "3) Combined rating" {
		t.Errorf("Expected six missing sections starting at 3), got %v", summary.MissingSections)
	}
	if !strings.Contains(summary.SummaryMD, "Note: The summary may be condensed. Missing sections: 3) Combined rating, 4) Effective dates") {
		t.Errorf("Expected condensed note, got %q", summary.SummaryMD)
	}
	if !strings.HasSuffix(summary.SummaryMD, DisclaimerBottom) {
		t.Error("Expected bottom disclaimer after the note")
	}
}

func TestSummarizer_Summarize_TokenLimit(t *testing.T) {
	mock := &MockProvider{
		name:      "p",
		available: true,
		response:  &SummarizeResponse{Summary: "1) Overview\n- Tinnitus granted at", Truncated: true},
	}
	s := newTestSummarizer(mock, Config{})

	summary, err := s.Summarize(context.Background(), "text", model.ParseResult{}, openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !containsWarning(summary.Warnings, "max_tokens limit") {
		t.Errorf("Expected token limit warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_Summarize_EmptyBody(t *testing.T) {
	mock := &MockProvider{name: "p", available: true, response: &SummarizeResponse{Summary: "   "}}
	s := newTestSummarizer(mock, Config{})

	summary, err := s.Summarize(context.Background(), "text", model.ParseResult{}, openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(summary.SummaryMD, "No summary generated.") {
		t.Errorf("Expected placeholder body, got %q", summary.SummaryMD)
	}
}

func TestSummarizer_Summarize_ProviderError(t *testing.T) {
	mock := &MockProvider{
		name:      "test-provider",
		available: true,
		err:       errors.New("API rate limit exceeded"),
	}
	s := newTestSummarizer(mock, Config{})

	summary, err := s.Summarize(context.Background(), "text", model.ParseResult{}, openGate, true)

	// Should not fail the entire audit, just return summary with warnings
	if err != nil {
		t.Errorf("Expected no error (graceful degradation), got %v", err)
	}
	if summary == nil {
		t.Fatal("Expected summary with error warning")
	}
	if summary.Enabled {
		t.Error("Expected a failed summary to be disabled")
	}
	if md := RenderSeparateMarkdown(summary); md != "" {
		t.Errorf("Expected no separate document for a failed summary, got %q", md)
	}
	if summary.SummaryMD != "" {
		t.Error("Expected no body after a provider failure")
	}
	if !containsWarning(summary.Warnings, "failed") || !containsWarning(summary.Warnings, "rate limit") {
		t.Errorf("Expected warning to mention error: %v", summary.Warnings)
	}
}

func TestSummarizer_Summarize_LimiterCancelled(t *testing.T) {
	mock := &MockProvider{name: "p", available: true, response: &SummarizeResponse{Summary: fullSummary}}
	s := newTestSummarizer(mock, Config{RequestsPerSecond: 0.001, Burst: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := s.Summarize(ctx, "text", model.ParseResult{}, openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if summary.Enabled || mock.calls != 0 {
		t.Errorf("Expected a disabled summary and no provider call, got enabled=%v calls=%d", summary.Enabled, mock.calls)
	}
	if !containsWarning(summary.Warnings, "generation failed") {
		t.Errorf("Expected failure warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_Summarize_StrictFacts(t *testing.T) {
	mock := &MockProvider{
		name:      "p",
		available: true,
		response:  &SummarizeResponse{Summary: fullSummary + "\nYour combined rating may reach 40 percent."},
	}

	strict := newTestSummarizer(mock, Config{StrictFacts: true})
	summary, err := strict.Summarize(context.Background(), "Tinnitus 10%.", letterResult(), openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !containsWarning(summary.Warnings, "Summary mentions 40%") {
		t.Errorf("Expected warning for 40%%, got %v", summary.Warnings)
	}
	if containsWarning(summary.Warnings, "mentions 10%") {
		t.Error("Expected 10% to be accepted since the letter states it")
	}

	lenient := newTestSummarizer(mock, Config{StrictFacts: false})
	summary, err = lenient.Summarize(context.Background(), "Tinnitus 10%.", letterResult(), openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if containsWarning(summary.Warnings, "Summary mentions") {
		t.Errorf("Expected no fact warnings when strict mode is off, got %v", summary.Warnings)
	}
}

func TestSummarizer_Summarize_Truncates(t *testing.T) {
	mock := &MockProvider{name: "p", available: true, response: &SummarizeResponse{Summary: fullSummary}}
	s := newTestSummarizer(mock, Config{MaxInputChars: 10})

	summary, err := s.Summarize(context.Background(), strings.Repeat("a", 50), model.ParseResult{}, openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mock.lastReq.Text) != 10 {
		t.Errorf("Expected 10 characters sent, got %d", len(mock.lastReq.Text))
	}
	if !containsWarning(summary.Warnings, "truncated to 10 characters") {
		t.Errorf("Expected truncation warning, got %v", summary.Warnings)
	}
}

func TestSummarizer_Summarize_Cached(t *testing.T) {
	mock := &MockProvider{name: "p", available: true, response: &SummarizeResponse{Summary: fullSummary, Model: "m", TokensUsed: 120}}
	s := newSummarizer(mock, Config{Model: "m"}, cache.NewMemoryCache(time.Minute, time.Minute), quietLogger())

	first, err := s.Summarize(context.Background(), "letter", model.ParseResult{}, openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := s.Summarize(context.Background(), "letter", model.ParseResult{}, openGate, true)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if mock.calls != 1 {
		t.Errorf("Expected one provider call, got %d", mock.calls)
	}
	if first.Cached || !second.Cached {
		t.Errorf("Expected only the second summary to be cached, got %v / %v", first.Cached, second.Cached)
	}
	if second.SummaryMD != first.SummaryMD {
		t.Error("Expected cached summary body to match")
	}
	if !containsWarning(first.Warnings, "Tokens used: 120") {
		t.Errorf("Expected token usage on the fresh summary, got %v", first.Warnings)
	}
	if containsWarning(second.Warnings, "Tokens used") {
		t.Errorf("Expected no token usage on a cache hit, got %v", second.Warnings)
	}

	if _, err := s.Summarize(context.Background(), "another letter", model.ParseResult{}, openGate, true); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if mock.calls != 2 {
		t.Errorf("Expected a new call for different text, got %d calls", mock.calls)
	}
}

func TestUnsupportedPercents(t *testing.T) {
	result := model.ParseResult{
		Claims: []model.ClaimRecord{{Name: "PTSD", RatingPercent: model.Percent(30)}},
		Facts:  model.DocumentFacts{CombinedRatingStated: model.Percent(70)},
	}

	got := UnsupportedPercents("PTSD 30%, combined 70%, knee 20 percent, back 20%, hip 50%", "Rated 10 percent.", result)
	want := []int{20, 50}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
		}
	}

	if got := UnsupportedPercents("Rated 10 percent.", "Rated 10%.", model.ParseResult{}); len(got) != 0 {
		t.Errorf("Expected nothing unsupported, got %v", got)
	}
}

func TestMissingSections(t *testing.T) {
	if missing := MissingSections(fullSummary); len(missing) != 0 {
		t.Errorf("Expected none missing, got %v", missing)
	}
	if missing := MissingSections(""); len(missing) != len(RequiredSections) {
		t.Errorf("Expected all %d missing, got %d", len(RequiredSections), len(missing))
	}
}

func TestRenderSeparateMarkdown_Disabled(t *testing.T) {
	if md := RenderSeparateMarkdown(&model.LLMSummary{Enabled: false}); md != "" {
		t.Error("Expected empty markdown when disabled")
	}
}

func TestRenderSeparateMarkdown_Nil(t *testing.T) {
	if md := RenderSeparateMarkdown(nil); md != "" {
		t.Error("Expected empty markdown when nil")
	}
}

func TestRenderSeparateMarkdown_Success(t *testing.T) {
	summary := &model.LLMSummary{
		Enabled:   true,
		Provider:  "openai",
		Model:     "gpt-4o-mini",
		SummaryMD: Wrap("This is the generated summary content.", nil),
		Warnings:  []string{"Tokens used: 150"},
	}

	md := RenderSeparateMarkdown(summary)

	required := []string{
		"# LLM Summary",
		"GENERATED CONTENT",
		"determined independently",
		"**Provider:** openai",
		"**Model:** gpt-4o-mini",
		"This is the generated summary content.",
		DisclaimerTop,
		"## Notes",
		"Tokens used: 150",
	}
	for _, section := range required {
		if !strings.Contains(md, section) {
			t.Errorf("Expected markdown to contain '%s'", section)
		}
	}
}

func TestRenderSeparateMarkdown_NoSummary(t *testing.T) {
	md := RenderSeparateMarkdown(&model.LLMSummary{Enabled: true, Provider: "test-provider"})

	if !strings.Contains(md, "No summary generated") {
		t.Error("Expected message about no summary")
	}
	if strings.Contains(md, "## Notes") {
		t.Error("Expected no notes section without warnings")
	}
}

func TestBuildPrompt_BasicStructure(t *testing.T) {
	result := model.ParseResult{
		Claims: []model.ClaimRecord{
			{Name: "PTSD", RatingPercent: model.Percent(30), DiagnosticCode: "9411", EffectiveDate: "March 3, 2023"},
			{Name: "hearing loss"},
		},
		Facts: model.DocumentFacts{
			CombinedRatingStated: model.Percent(70),
			EffectiveDates:       []string{"March 3, 2023"},
		},
	}

	prompt := BuildPrompt("LETTER BODY", result)

	required := []string{
		"Do not give legal advice",
		"---\nLETTER BODY\n---",
		"- Combined rating (stated): 70%",
		"- Effective dates: March 3, 2023",
		"  • PTSD | rating: 30% | DC: 9411 | effective: March 3, 2023",
		"  • hearing loss | rating: ? | DC: ? | effective: ?",
		"Not found",
	}
	for _, element := range required {
		if !strings.Contains(prompt, element) {
			t.Errorf("Expected prompt to contain %q", element)
		}
	}

	last := -1
	for _, section := range RequiredSections {
		idx := strings.Index(prompt, section)
		if idx < 0 {
			t.Fatalf("Expected prompt to contain section %q", section)
		}
		if idx < last {
			t.Errorf("Expected section %q after the previous one", section)
		}
		last = idx
	}
}

func TestBuildContext_Empty(t *testing.T) {
	ctx := BuildContext(model.ParseResult{})

	for _, element := range []string{"Combined rating (stated): not found", "Effective dates: not found", "(none parsed)"} {
		if !strings.Contains(ctx, element) {
			t.Errorf("Expected context to contain %q, got %q", element, ctx)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		want    string
		wantCut bool
	}{
		{"short", "abc", 10, "abc", false},
		{"exact", "abcde", 5, "abcde", false},
		{"cut", "abcdef", 3, "abc", true},
		{"no limit", "abcdef", 0, "abcdef", false},
		{"runes", "§§§§", 2, "§§", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := Truncate(tt.text, tt.max)
			if got != tt.want || cut != tt.wantCut {
				t.Errorf("Truncate(%q, %d) = (%q, %v), want (%q, %v)", tt.text, tt.max, got, cut, tt.want, tt.wantCut)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Provider != "" {
		t.Errorf("Expected provider to be empty (disabled), got '%s'", config.Provider)
	}
	if !config.StrictFacts {
		t.Error("Expected strict facts to be enabled by default")
	}
	if config.MaxInputChars != 20000 {
		t.Errorf("Expected 20000 input chars, got %d", config.MaxInputChars)
	}
	if config.Timeout <= 0 || config.MaxTokens <= 0 {
		t.Error("Expected positive timeout and max tokens")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-key")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	if got := ApplyEnv(Config{Provider: "openai"}); got.APIKey != "env-key" {
		t.Errorf("Expected env key, got %q", got.APIKey)
	}
	if got := ApplyEnv(Config{Provider: "openai", APIKey: "explicit"}); got.APIKey != "explicit" {
		t.Errorf("Expected explicit key to win, got %q", got.APIKey)
	}
	if got := ApplyEnv(Config{Provider: "claude"}); got.APIKey != "anthropic-key" {
		t.Errorf("Expected anthropic key, got %q", got.APIKey)
	}
	if got := ApplyEnv(Config{Provider: "ollama"}); got.BaseURL != "http://ollama:11434" {
		t.Errorf("Expected ollama base URL, got %q", got.BaseURL)
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	if err != nil || p != nil {
		t.Errorf("Expected (nil, nil) for empty provider, got (%v, %v)", p, err)
	}

	p, err = NewProvider(Config{Provider: "Ollama", Model: "llama3.1:8b"})
	if err != nil {
		t.Fatalf("Expected ollama provider, got %v", err)
	}
	if p.Name() != "ollama" {
		t.Errorf("Expected ollama, got %s", p.Name())
	}

	if _, err := NewProvider(Config{Provider: "unknown"}); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func containsWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
