package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/letteraudit/internal/extract"
	"github.com/ppiankov/letteraudit/internal/model"
	"github.com/ppiankov/letteraudit/internal/pipeline"
	"github.com/ppiankov/letteraudit/internal/score"
	"github.com/ppiankov/letteraudit/internal/validate"
)

var (
	classifyParsed string
	classifyJSON   string
)

type classifyOutput struct {
	Fingerprint model.Fingerprint `json:"fingerprint"`
	Gate        model.Gate        `json:"gate"`
}

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <source>",
	Short: "Score how much a document looks like a VA decision letter",
	Long: `Classify runs the letter fingerprint: a weighted set of signals such as
the VA header, the standard section headings, diagnostic codes and rating
phrases. It prints the score, confidence, fired signals and whether AI
analysis would be allowed.

--parsed supplies a ParseResult produced earlier (for example by 'parse');
it is validated against the ParseResult schema before use.

Example:
  letteraudit classify letter.txt
  letteraudit classify letter.txt --parsed parsed.json`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(&classifyParsed, "parsed", "", "ParseResult JSON for this letter (default: parse the source)")
	classifyCmd.Flags().StringVar(&classifyJSON, "json", "", "write output JSON to this path (default: stdout)")
	addSourceFlags(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg, cmd.Flags().Changed)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
	defer cancel()

	p := newPipeline(cfg)
	ext, err := p.Loader().Load(ctx, args[0])
	if err != nil {
		return err
	}

	var result model.ParseResult
	if classifyParsed != "" {
		data, err := os.ReadFile(classifyParsed)
		if err != nil {
			return fmt.Errorf("read parsed result: %w", err)
		}
		supplied, err := validate.ParseResult(data)
		if err != nil {
			return fmt.Errorf("%s: %w", classifyParsed, err)
		}
		result = *supplied
	} else {
		result = extract.Parse(ext.Text)
	}

	fp := p.Classifier().Classify(ext.Text, result)
	out := classifyOutput{
		Fingerprint: fp,
		Gate:        pipeline.EvaluateGate(fp, p.MinConfidence()),
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Score %d/%d, confidence %s\n", fp.Score, score.MaxScore, fp.Confidence)
	}

	return writeJSON(classifyJSON, out)
}
