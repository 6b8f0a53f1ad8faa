package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/letteraudit/internal/model"
)

// Auditor audits one source (path or URL)
type Auditor interface {
	Audit(ctx context.Context, source string) (*model.Report, error)
}

// AuditJob audits the source at position Index of a batch
type AuditJob struct {
	Index   int
	Source  string
	Auditor Auditor
}

// Execute executes the audit job
func (j *AuditJob) Execute(ctx context.Context) Result {
	start := time.Now()
	report, err := j.Auditor.Audit(ctx, j.Source)
	return &AuditResult{
		Index:    j.Index,
		Source:   j.Source,
		Report:   report,
		Error:    err,
		Duration: time.Since(start),
	}
}

// AuditResult represents the result of an audit job
type AuditResult struct {
	Index    int
	Source   string
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the error from the audit result
func (r *AuditResult) GetError() error {
	return r.Error
}

// BatchProcessor audits many sources concurrently
type BatchProcessor struct {
	auditor     Auditor
	concurrency int
	logger      *slog.Logger
}

// NewBatchProcessor creates a new batch processor. A nil logger uses slog.Default().
func NewBatchProcessor(auditor Auditor, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		auditor:     auditor,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Process audits every source and returns results in input order
func (b *BatchProcessor) Process(ctx context.Context, sources []string) []*AuditResult {
	if len(sources) == 0 {
		return []*AuditResult{}
	}

	b.logger.Info("batch.start", "sources", len(sources), "workers", b.concurrency)
	start := time.Now()

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, source := range sources {
		pool.Submit(&AuditJob{
			Index:   i,
			Source:  source,
			Auditor: b.auditor,
		})
	}

	raw := pool.Wait()

	byIndex := make([]*AuditResult, len(sources))
	for _, r := range raw {
		ar := r.(*AuditResult)
		byIndex[ar.Index] = ar
	}

	// A cancelled context leaves queued and unsubmitted sources without a result
	results := make([]*AuditResult, 0, len(sources))
	failed := 0
	for i, ar := range byIndex {
		if ar == nil {
			ar = &AuditResult{Index: i, Source: sources[i], Error: skippedError(ctx)}
		}
		if ar.Error != nil {
			failed++
			b.logger.Warn("batch.item_failed", "source", ar.Source, "err", ar.Error)
		}
		results = append(results, ar)
	}

	b.logger.Info("batch.done",
		"sources", len(sources),
		"completed", len(results),
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return results
}

func skippedError(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("not audited: %w", err)
	}
	return fmt.Errorf("not audited")
}

// ProcessFile reads sources from a list file and audits them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AuditResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.Process(ctx, sources), nil
}

// ReadSourcesFromFile reads one path or URL per line, skipping blank lines
// and # comments and dropping duplicates
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			sources = append(sources, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}

// Manifest summarizes one batch run
type Manifest struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Items      []ManifestItem `json:"items"`
}

// ManifestItem records the outcome for one source
type ManifestItem struct {
	Source               string           `json:"source"`
	Status               string           `json:"status"` // ok, error
	Error                string           `json:"error,omitempty"`
	JSONPath             string           `json:"json_path,omitempty"`
	MarkdownPath         string           `json:"markdown_path,omitempty"`
	Claims               int              `json:"claims"`
	ExtractionConfidence model.Confidence `json:"extraction_confidence,omitempty"`
	FingerprintScore     int              `json:"fingerprint_score"`
	LooksLikeTarget      bool             `json:"looks_like_target"`
	DurationMS           int64            `json:"duration_ms"`
}

// NewManifest builds a manifest with a fresh run id
func NewManifest(startedAt time.Time, results []*AuditResult) *Manifest {
	m := &Manifest{
		RunID:      uuid.NewString(),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Total:      len(results),
		Items:      make([]ManifestItem, 0, len(results)),
	}

	for _, r := range results {
		item := ManifestItem{
			Source:     r.Source,
			Status:     "ok",
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Error != nil {
			item.Status = "error"
			item.Error = r.Error.Error()
			m.Failed++
		} else {
			m.Succeeded++
		}
		if r.Report != nil {
			item.Claims = len(r.Report.Result.Claims)
			item.ExtractionConfidence = r.Report.Result.ExtractionConfidence
			item.FingerprintScore = r.Report.Fingerprint.Score
			item.LooksLikeTarget = r.Report.Fingerprint.LooksLikeTarget
		}
		m.Items = append(m.Items, item)
	}

	return m
}

// Write saves the manifest as indented JSON
func (m *Manifest) Write(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
