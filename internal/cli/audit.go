package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/letteraudit/internal/model"
)

var (
	outJSON     string
	outMD       string
	summarize   bool
	consent     bool
	llmProvider string
	llmModel    string
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit <source>",
	Short: "Parse, fingerprint and optionally summarize a decision letter",
	Long: `Audit runs the full pipeline on one letter:
- Load the text (.txt, .html, or an http(s) URL with --allow-remote)
- Extract claims, ratings, codes, dates and sections
- Fingerprint the document and decide whether AI analysis is allowed
- With --summary and --consent, ask the configured LLM for a plain-English summary

AI summaries are only produced for recognized VA decision letters, and only
after you pass --consent (the letter text is sent to the provider).

Example:
  letteraudit audit letter.txt
  letteraudit audit letter.txt --json report.json --md report.md
  letteraudit audit letter.txt --summary --consent --llm-provider ollama`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	auditCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	auditCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the summary cache")
	auditCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	addSourceFlags(auditCmd)
	addSummaryFlags(auditCmd)
}

// addSummaryFlags registers the LLM summary flags
func addSummaryFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&summarize, "summary", false, "generate an AI summary (requires llm.provider)")
	cmd.Flags().BoolVar(&consent, "consent", false, "allow the letter text to be sent to the LLM provider")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// applySummaryFlags overlays the LLM flags that were set explicitly
func applySummaryFlags(cfg *model.Config, flagChanged func(string) bool) {
	if flagChanged("llm-provider") {
		cfg.LLM.Provider = llmProvider
	}
	if flagChanged("llm-model") {
		cfg.LLM.Model = llmModel
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd.Flags().Changed)
	applySummaryFlags(cfg, cmd.Flags().Changed)

	// Loading is bounded by the HTTP timeout; a summary gets the LLM timeout on top
	budget := cfg.HTTP.Timeout + time.Duration(cfg.LLM.Timeout)*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Auditing: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "Summary: %v (provider %q)\n", summarize, cfg.LLM.Provider)
		fmt.Fprintln(os.Stderr)
	}

	p := newPipeline(cfg)
	if summarize {
		p.EnableSummary(consent)
	}

	report, err := p.Audit(ctx, args[0])
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if verbose && report.LLM != nil && report.LLM.Enabled {
		fmt.Fprintf(os.Stderr, "✓ Generated LLM summary using %s/%s\n", report.LLM.Provider, report.LLM.Model)
	}

	if err := p.RenderReport(os.Stdout, report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	// Without a Markdown file the summary would otherwise be lost
	if report.LLM != nil && report.LLM.Enabled && outMD == "" {
		fmt.Println()
		fmt.Println(report.LLM.SummaryMD)
	}

	return nil
}
