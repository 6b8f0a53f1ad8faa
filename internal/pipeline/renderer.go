package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/letteraudit/internal/model"
)

const footer = "Generated by letteraudit. Claims, ratings and the fingerprint come from deterministic text patterns. This report is not legal advice."

// Renderer writes reports as JSON, Markdown and a short terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new Renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// RenderLLMMarkdown writes an already rendered LLM summary
func (r *Renderer) RenderLLMMarkdown(content string, path string) error {
	return writeFile(path, []byte(content))
}

// Markdown renders the report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	res := report.Result
	fp := report.Fingerprint

	fmt.Fprintf(&b, "# Decision Letter Audit: %s\n\n", filepath.Base(report.Source))
	fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	fmt.Fprintf(&b, "- **Format:** %s, %d page(s)\n", report.Format, report.PageCount)
	if !report.AuditedAt.IsZero() {
		fmt.Fprintf(&b, "- **Audited:** %s\n", report.AuditedAt.Format("2006-01-02 15:04 MST"))
	}
	b.WriteString("\n")

	if fp.LooksLikeTarget {
		fmt.Fprintf(&b, "> ✅ This looks like a VA decision letter. Confidence: **%s** (score %d)", fp.Confidence, fp.Score)
		if res.Facts.CombinedRatingStated != nil {
			fmt.Fprintf(&b, ". Combined rating: **%d%%**", *res.Facts.CombinedRatingStated)
		}
		b.WriteString("\n\n")
	} else {
		b.WriteString("> ⚠️ This doesn't appear to be a VA decision letter. AI analysis is only available for recognized VA decision letters.\n>\n")
		b.WriteString("> Tips: look for headings like \"Decision\", \"Evidence\" and \"Reasons for Decision\", and phrases like \"Diagnostic Code\", \"Combined Rating\" or \"Effective Date\".\n\n")
	}

	b.WriteString("## Claims\n\n")
	if len(res.Claims) == 0 {
		b.WriteString("_No claims found._\n\n")
	} else {
		b.WriteString("| Condition | Rating | Diagnostic Code | Effective Date |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, c := range res.Claims {
			rating := "-"
			if v, ok := c.Rating(); ok {
				rating = fmt.Sprintf("%d%%", v)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				escapeCell(c.Name), rating, dashIfEmpty(c.DiagnosticCode), dashIfEmpty(escapeCell(c.EffectiveDate)))
		}
		b.WriteString("\n")

		for _, c := range res.Claims {
			if c.RationaleSnippet == "" {
				continue
			}
			fmt.Fprintf(&b, "- **%s:** %s\n", c.Name, c.RationaleSnippet)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Document Facts\n\n")
	if res.Facts.CombinedRatingStated != nil {
		fmt.Fprintf(&b, "- **Combined rating:** %d%%\n", *res.Facts.CombinedRatingStated)
	} else {
		b.WriteString("- **Combined rating:** not stated\n")
	}
	fmt.Fprintf(&b, "- **Effective dates:** %s\n", joinOrNone(res.Facts.EffectiveDates))
	fmt.Fprintf(&b, "- **Diagnostic codes:** %s\n", joinOrNone(res.Facts.DiagnosticCodes))
	found := make([]string, 0, len(model.SectionNames))
	for _, s := range res.Facts.Sections.Found() {
		found = append(found, string(s))
	}
	fmt.Fprintf(&b, "- **Sections found:** %s\n", joinOrNone(found))
	fmt.Fprintf(&b, "- **Extraction confidence:** %s\n\n", res.ExtractionConfidence)

	b.WriteString("## Fingerprint Signals\n\n")
	if len(fp.Signals) == 0 {
		b.WriteString("_No signals fired._\n")
	}
	for _, s := range fp.Signals {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	fmt.Fprintf(&b, "\n**AI analysis gate:** %s\n", gateLabel(report.Gate))

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if report.LLM != nil && len(report.LLM.Warnings) > 0 && !report.LLM.Enabled {
		b.WriteString("\n## AI Summary\n\n")
		for _, w := range report.LLM.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	if r.includeFooter {
		fmt.Fprintf(&b, "\n---\n\n_%s_\n", footer)
	}

	return b.String()
}

// RenderSummary prints a short terminal summary
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fp := report.Fingerprint
	res := report.Result

	fmt.Fprintf(w, "\n%s\n", report.Source)
	if fp.LooksLikeTarget {
		fmt.Fprintf(w, "  ✓ VA decision letter (score %d, confidence %s)\n", fp.Score, fp.Confidence)
	} else {
		fmt.Fprintf(w, "  ✗ Not recognized as a VA decision letter (score %d)\n", fp.Score)
	}
	if res.Facts.CombinedRatingStated != nil {
		fmt.Fprintf(w, "  Combined rating: %d%%\n", *res.Facts.CombinedRatingStated)
	}
	fmt.Fprintf(w, "  Claims: %d (extraction confidence %s)\n", len(res.Claims), res.ExtractionConfidence)
	for _, c := range res.Claims {
		rating := "no rating"
		if v, ok := c.Rating(); ok {
			rating = fmt.Sprintf("%d%%", v)
		}
		fmt.Fprintf(w, "    - %s: %s\n", c.Name, rating)
	}
	fmt.Fprintf(w, "  AI gate: %s\n", gateLabel(report.Gate))
}

func gateLabel(g model.Gate) string {
	if g.Open {
		return "open (" + g.Reason + ")"
	}
	return "closed (" + g.Reason + ")"
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "none"
	}
	return strings.Join(values, ", ")
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
