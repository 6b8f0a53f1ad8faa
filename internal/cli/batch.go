package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/letteraudit/internal/export"
	"github.com/ppiankov/letteraudit/internal/model"
	"github.com/ppiankov/letteraudit/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	xlsxPath     string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Audit many letters listed in a file",
	Long: `Batch audits every source listed in a file (one path or URL per line,
'#' starts a comment, duplicates are skipped):
- Sources are processed in parallel with a configurable worker count
- Each letter gets a JSON and a Markdown report
- manifest.json records the run id and the outcome for every source
- --xlsx writes one workbook with every claim across the batch

Example:
  letteraudit batch letters.txt
  letteraudit batch letters.txt --concurrency 8 --out ./reports --xlsx claims.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, fmt.Sprintf("number of concurrent workers (default from config, max %d)", runtime.NumCPU()*4))
	batchCmd.Flags().StringVar(&outputDir, "out", "./letteraudit-reports", "output directory for reports")
	batchCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write a claims workbook to this path")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the summary cache")
	batchCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	addSourceFlags(batchCmd)
	addSummaryFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd.Flags().Changed)
	applySummaryFlags(cfg, cmd.Flags().Changed)
	if concurrency > 0 {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  letteraudit batch\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	if summarize {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	logger := newLogger(cfg)
	p := newPipeline(cfg)
	if summarize {
		p.EnableSummary(consent)
	}

	started := time.Now()
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, logger)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	manifest := worker.NewManifest(started, results)
	renderer := p.Renderer()
	reports := make([]*model.Report, 0, len(results))

	for i, result := range results {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Source, result.Error)
			continue
		}
		reports = append(reports, result.Report)

		// Index prefix keeps same-named files from different folders apart
		slug := fmt.Sprintf("%03d-%s", i+1, sanitizeFilename(result.Source))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(result.Report, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.Source, err)
			continue
		}
		if err := renderer.RenderMarkdown(result.Report, mdPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.Source, err)
			continue
		}
		manifest.Items[i].JSONPath = jsonPath
		manifest.Items[i].MarkdownPath = mdPath

		fp := result.Report.Fingerprint
		fmt.Fprintf(os.Stderr, "✓ %s (%d claims, fingerprint %d, %s)\n",
			result.Source, len(result.Report.Result.Claims), fp.Score, fp.Confidence)
	}

	manifestPath := filepath.Join(outputDir, "manifest.json")
	if err := manifest.Write(manifestPath); err != nil {
		return err
	}

	if xlsxPath != "" {
		if err := export.NewExporter(logger).WriteClaimsXLSX(reports, xlsxPath); err != nil {
			return fmt.Errorf("export xlsx: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote workbook: %s\n", xlsxPath)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Batch complete (run %s)\n", manifest.RunID)
	fmt.Fprintf(os.Stderr, "  Total:     %d\n", manifest.Total)
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", manifest.Succeeded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", manifest.Failed)
	fmt.Fprintf(os.Stderr, "  Manifest:  %s\n", manifestPath)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}
