package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ppiankov/letteraudit/internal/cache"
	"github.com/ppiankov/letteraudit/internal/extract"
	"github.com/ppiankov/letteraudit/internal/llm"
	"github.com/ppiankov/letteraudit/internal/model"
	"github.com/ppiankov/letteraudit/internal/score"
)

// GateClosedReason is shown whenever AI analysis is refused for a document
const GateClosedReason = "AI analysis is only available for recognized VA decision letters."

// Pipeline orchestrates the complete audit of one letter:
// load, parse, classify, gate, then an optional summary
type Pipeline struct {
	loader     *Loader
	parser     *extract.Parser
	classifier *score.Classifier
	renderer   *Renderer
	summarizer *llm.Summarizer // Optional LLM summarizer (nil if disabled)
	config     *model.Config
	logger     *slog.Logger

	summarize bool
	consent   bool
}

// NewPipeline creates a new pipeline with the given configuration. A nil
// logger uses slog.Default().
func NewPipeline(cfg *model.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	// Create LLM summarizer if configured
	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		llmConfig := llm.ConfigFromModel(cfg.LLM, cfg.HTTP)
		s, err := llm.NewSummarizer(llmConfig, cache.New(cfg.Cache), logger)
		if err != nil {
			logger.Warn("llm.init_failed", "provider", cfg.LLM.Provider, "err", err)
		} else {
			summarizer = s
		}
	}

	return &Pipeline{
		loader:     NewLoader(cfg.Limits, cfg.HTTP),
		parser:     extract.NewParser(),
		classifier: score.NewClassifier(),
		renderer:   NewRenderer(cfg.Output.IncludeFooter),
		summarizer: summarizer,
		config:     cfg,
		logger:     logger,
	}
}

// EnableSummary asks for an AI summary on every audit. consent records that
// the user agreed to send letter text to the configured provider.
func (p *Pipeline) EnableSummary(consent bool) {
	p.summarize = true
	p.consent = consent
}

// Audit loads and audits one source. It implements worker.Auditor.
func (p *Pipeline) Audit(ctx context.Context, source string) (*model.Report, error) {
	ext, err := p.loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	return p.audit(ctx, ext), nil
}

// AuditText audits text that is already in memory; name is reported as the source
func (p *Pipeline) AuditText(ctx context.Context, name, text string) (*model.Report, error) {
	ext, err := p.loader.FromText(name, FormatText, text)
	if err != nil {
		return nil, err
	}
	return p.audit(ctx, ext), nil
}

func (p *Pipeline) audit(ctx context.Context, ext *Extraction) *model.Report {
	start := time.Now()

	result := p.parser.Parse(ext.Text)
	fp := p.classifier.Classify(ext.Text, result)
	gate := EvaluateGate(fp, p.minConfidence())

	report := &model.Report{
		Source:            ext.Source,
		Format:            ext.Format,
		PageCount:         ext.PageCount,
		HadSelectableText: ext.HadSelectableText,
		AuditedAt:         time.Now().UTC(),
		Result:            result,
		Fingerprint:       fp,
		Gate:              gate,
	}

	// Summary runs last and never changes the parse or fingerprint
	if p.summarize {
		report.LLM = p.summary(ctx, ext.Text, result, gate)
	}

	p.logger.Info("audit.done",
		"source", ext.Source,
		"claims", len(result.Claims),
		"score", fp.Score,
		"gate_open", gate.Open,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return report
}

func (p *Pipeline) summary(ctx context.Context, text string, result model.ParseResult, gate model.Gate) *model.LLMSummary {
	if !p.summarizer.IsEnabled() {
		return &model.LLMSummary{
			Enabled:  false,
			Warnings: []string{"AI summary requested but no LLM provider is configured (set llm.provider)"},
		}
	}

	consent := p.consent || !p.config.Gate.RequireConsent
	summary, err := p.summarizer.Summarize(ctx, text, result, gate, consent)
	switch {
	case errors.Is(err, llm.ErrGateClosed):
		return &model.LLMSummary{Enabled: false, Provider: p.summarizer.ProviderName(), Warnings: []string{GateClosedReason}}
	case errors.Is(err, llm.ErrConsentRequired):
		return &model.LLMSummary{Enabled: false, Provider: p.summarizer.ProviderName(), Warnings: []string{"AI summary skipped: pass --consent to allow cloud processing of this letter"}}
	case err != nil:
		p.logger.Warn("llm.summary_failed", "err", err)
		return &model.LLMSummary{Enabled: false, Warnings: []string{err.Error()}}
	}
	return summary
}

func (p *Pipeline) minConfidence() model.Confidence {
	if c, ok := model.ParseConfidence(p.config.Gate.MinConfidence); ok {
		return c
	}
	return model.ConfidenceMedium
}

// EvaluateGate opens AI analysis only for documents that look like decision
// letters with fingerprint confidence at or above min
func EvaluateGate(fp model.Fingerprint, min model.Confidence) model.Gate {
	if fp.LooksLikeTarget && fp.Confidence.AtLeast(min) {
		return model.Gate{
			Open:   true,
			Reason: fmt.Sprintf("recognized as a VA decision letter (confidence %s)", fp.Confidence),
		}
	}
	return model.Gate{Open: false, Reason: GateClosedReason}
}

// RenderReport renders the report to the specified outputs
func (p *Pipeline) RenderReport(w io.Writer, report *model.Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	// Render LLM summary to separate file if present
	if report.LLM != nil && report.LLM.Enabled && mdPath != "" {
		llmMdPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
		if err := p.renderer.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmMdPath); err != nil {
			p.logger.Warn("render.llm_failed", "path", llmMdPath, "err", err)
		} else if verbose {
			fmt.Fprintf(w, "✓ Wrote LLM Summary: %s\n", llmMdPath)
		}
	}

	p.renderer.RenderSummary(w, report)

	return nil
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Loader returns the pipeline's loader
func (p *Pipeline) Loader() *Loader {
	return p.loader
}

// Classifier returns the pipeline's fingerprint classifier
func (p *Pipeline) Classifier() *score.Classifier {
	return p.classifier
}

// MinConfidence is the fingerprint confidence the AI gate requires
func (p *Pipeline) MinConfidence() model.Confidence {
	return p.minConfidence()
}
