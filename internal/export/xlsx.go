package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ppiankov/letteraudit/internal/model"
)

const (
	ClaimsSheet    = "Claims"
	DocumentsSheet = "Documents"

	maxRationaleChars = 240
)

var claimHeaders = []string{
	"Source",
	"Condition",
	"Rating %",
	"Diagnostic Code",
	"Effective Date",
	"Rationale",
	"Extraction Confidence",
	"Fingerprint Score",
}

var documentHeaders = []string{
	"Source",
	"Looks Like Decision Letter",
	"Fingerprint Score",
	"Confidence",
	"Combined Rating %",
	"Claims",
	"Effective Dates",
	"Diagnostic Codes",
	"AI Gate",
	"Warnings",
}

// Exporter writes audit reports to an XLSX workbook
type Exporter struct {
	logger *slog.Logger
}

// NewExporter creates an Exporter. A nil logger uses slog.Default().
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{logger: logger}
}

// WriteClaimsXLSX writes one Claims row per extracted claim and one
// Documents row per report to path
func (e *Exporter) WriteClaimsXLSX(reports []*model.Report, path string) error {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// The default sheet becomes Claims so the workbook opens on it
	if err := f.SetSheetName(f.GetSheetName(0), ClaimsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(DocumentsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	writeRow(f, ClaimsSheet, 1, toAny(claimHeaders))
	writeRow(f, DocumentsSheet, 1, toAny(documentHeaders))

	claimRow, docRow := 2, 2
	for _, r := range reports {
		if r == nil {
			continue
		}
		res := r.Result

		for _, c := range res.Claims {
			var rating any = ""
			if v, ok := c.Rating(); ok {
				rating = v
			}
			writeRow(f, ClaimsSheet, claimRow, []any{
				r.Source,
				c.Name,
				rating,
				c.DiagnosticCode,
				c.EffectiveDate,
				truncate(c.RationaleSnippet, maxRationaleChars),
				string(res.ExtractionConfidence),
				r.Fingerprint.Score,
			})
			claimRow++
		}

		var combined any = ""
		if res.Facts.CombinedRatingStated != nil {
			combined = *res.Facts.CombinedRatingStated
		}
		gate := "closed"
		if r.Gate.Open {
			gate = "open"
		}
		writeRow(f, DocumentsSheet, docRow, []any{
			r.Source,
			yesNo(r.Fingerprint.LooksLikeTarget),
			r.Fingerprint.Score,
			string(r.Fingerprint.Confidence),
			combined,
			len(res.Claims),
			strings.Join(res.Facts.EffectiveDates, "; "),
			strings.Join(res.Facts.DiagnosticCodes, "; "),
			gate,
			strings.Join(res.Warnings, "; "),
		})
		docRow++
	}

	_ = f.SetColWidth(ClaimsSheet, "A", "A", 40) // source
	_ = f.SetColWidth(ClaimsSheet, "B", "B", 32) // condition
	_ = f.SetColWidth(ClaimsSheet, "C", "E", 16)
	_ = f.SetColWidth(ClaimsSheet, "F", "F", 60) // rationale
	_ = f.SetColWidth(ClaimsSheet, "G", "H", 20)
	_ = f.SetColWidth(DocumentsSheet, "A", "A", 40)
	_ = f.SetColWidth(DocumentsSheet, "B", "J", 18)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"path", path,
		"documents", docRow-2,
		"claims", claimRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// WriteClaimsXLSX writes reports with the default logger
func WriteClaimsXLSX(reports []*model.Report, path string) error {
	return NewExporter(nil).WriteClaimsXLSX(reports, path)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
