package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/letteraudit/internal/extract"
)

var (
	parseJSON string
	parseMD   string
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <source>",
	Short: "Extract claims and facts from a decision letter",
	Long: `Parse reads the text of a letter and prints what it states as JSON:
- Each claimed condition with its rating, diagnostic code and effective date
- The combined rating, if the letter states one
- Every effective date and diagnostic code found
- The Decision, Evidence, Reasons and References sections

Sources are .txt or .html files. PDFs must be converted to text first.

Example:
  letteraudit parse letter.txt
  letteraudit parse letter.txt --json parsed.json --md report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseJSON, "json", "", "write ParseResult JSON to this path (default: stdout)")
	parseCmd.Flags().StringVar(&parseMD, "md", "", "write a Markdown report to this path")
	addSourceFlags(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd.Flags().Changed)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
	defer cancel()

	p := newPipeline(cfg)

	if parseMD != "" {
		report, err := p.Audit(ctx, args[0])
		if err != nil {
			return err
		}
		if err := p.Renderer().RenderMarkdown(report, parseMD); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", parseMD)
		}
		return writeJSON(parseJSON, report.Result)
	}

	ext, err := p.Loader().Load(ctx, args[0])
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %s (%s, %d page(s))\n", ext.Source, ext.Format, ext.PageCount)
	}

	return writeJSON(parseJSON, extract.Parse(ext.Text))
}

// addSourceFlags registers the flags every letter-reading command shares
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "timeout for loading a remote source (default from config)")
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent for remote sources")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().BoolVar(&allowURL, "allow-remote", false, "allow http(s) sources")
}
