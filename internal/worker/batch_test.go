package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/letteraudit/internal/model"
)

// mockAuditor fails for sources containing "bad" and sleeps longer for
// earlier sources so completion order differs from input order
type mockAuditor struct{}

func (m *mockAuditor) Audit(ctx context.Context, source string) (*model.Report, error) {
	if strings.Contains(source, "bad") {
		return nil, errors.New("audit error")
	}
	delay := 5 * time.Millisecond
	if strings.HasSuffix(source, "1.txt") {
		delay = 30 * time.Millisecond
	}
	time.Sleep(delay)
	return &model.Report{
		Source: source,
		Result: model.ParseResult{
			Claims:               []model.ClaimRecord{{Name: "tinnitus"}},
			ExtractionConfidence: model.ConfidenceMedium,
		},
		Fingerprint: model.Fingerprint{Score: 60, LooksLikeTarget: true, Confidence: model.ConfidenceHigh},
	}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeList(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "letters.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_Process_InputOrder(t *testing.T) {
	processor := NewBatchProcessor(&mockAuditor{}, 3, quietLogger())

	sources := []string{"letters/1.txt", "letters/2.txt", "letters/3.txt"}
	results := processor.Process(context.Background(), sources)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Source != sources[i] {
			t.Errorf("expected %s at index %d, got %s", sources[i], i, res.Source)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Source, res.Error)
		}
		if res.Report == nil {
			t.Error("expected report for successful audit")
		}
	}
}

func TestBatchProcessor_Process_Error(t *testing.T) {
	processor := NewBatchProcessor(&mockAuditor{}, 2, quietLogger())

	results := processor.Process(context.Background(), []string{"bad.txt", "letters/2.txt"})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error == nil || results[0].Report != nil {
		t.Error("expected first source to fail without a report")
	}
	if results[1].Error != nil {
		t.Errorf("expected second source to succeed, got %v", results[1].Error)
	}
}

func TestBatchProcessor_Process_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAuditor{}, 2, nil)

	results := processor.Process(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestReadSourcesFromFile(t *testing.T) {
	path := writeList(t, `letters/a.txt
# comment
https://va.example/b.html

letters/a.txt
   letters/c.txt   `)

	sources, err := ReadSourcesFromFile(path)
	if err != nil {
		t.Fatalf("ReadSourcesFromFile failed: %v", err)
	}

	expected := []string{"letters/a.txt", "https://va.example/b.html", "letters/c.txt"}
	if len(sources) != len(expected) {
		t.Fatalf("expected %d sources, got %d: %v", len(expected), len(sources), sources)
	}
	for i, s := range sources {
		if s != expected[i] {
			t.Errorf("expected %s at index %d, got %s", expected[i], i, s)
		}
	}
}

func TestReadSourcesFromFile_NonExistent(t *testing.T) {
	if _, err := ReadSourcesFromFile("non_existent_file.txt"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeList(t, "letters/1.txt\nletters/2.txt\n# comment\n\nletters/3.txt\n")
	processor := NewBatchProcessor(&mockAuditor{}, 2, quietLogger())

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestAuditResult_GetError(t *testing.T) {
	expected := errors.New("audit failed")
	r := &AuditResult{Source: "a.txt", Error: expected}
	if r.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r.GetError())
	}
}

func TestManifest(t *testing.T) {
	processor := NewBatchProcessor(&mockAuditor{}, 2, quietLogger())
	started := time.Now()
	results := processor.Process(context.Background(), []string{"letters/1.txt", "bad.txt"})

	m := NewManifest(started, results)

	if _, err := uuid.Parse(m.RunID); err != nil {
		t.Errorf("expected uuid run id, got %q", m.RunID)
	}
	if m.Total != 2 || m.Succeeded != 1 || m.Failed != 1 {
		t.Errorf("unexpected counts: %+v", m)
	}
	if m.Items[0].Status != "ok" || m.Items[0].FingerprintScore != 60 || m.Items[0].Claims != 1 {
		t.Errorf("unexpected first item: %+v", m.Items[0])
	}
	if m.Items[1].Status != "error" || m.Items[1].Error == "" {
		t.Errorf("unexpected second item: %+v", m.Items[1])
	}

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := m.Write(path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded Manifest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if decoded.RunID != m.RunID {
		t.Errorf("expected run id %s, got %s", m.RunID, decoded.RunID)
	}
}

// slowAuditor takes 50ms per letter unless the context ends first
type slowAuditor struct{}

func (s *slowAuditor) Audit(ctx context.Context, source string) (*model.Report, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(50 * time.Millisecond):
		return &model.Report{Source: source}, nil
	}
}

func TestBatchProcessor_Process_DeadlineKeepsEverySource(t *testing.T) {
	sources := make([]string, 20)
	for i := range sources {
		sources[i] = filepath.Join("letters", strings.Repeat("x", i+1)+".txt")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 70*time.Millisecond)
	defer cancel()

	processor := NewBatchProcessor(&slowAuditor{}, 1, quietLogger())
	results := processor.Process(ctx, sources)

	if len(results) != len(sources) {
		t.Fatalf("expected %d results, got %d", len(sources), len(results))
	}
	for i, res := range results {
		if res.Index != i || res.Source != sources[i] {
			t.Errorf("result %d out of order: %+v", i, res)
		}
	}
	last := results[len(results)-1]
	if !errors.Is(last.Error, context.DeadlineExceeded) {
		t.Errorf("expected deadline error for unaudited letter, got %v", last.Error)
	}

	m := NewManifest(time.Now(), results)
	if m.Total != len(sources) || m.Succeeded+m.Failed != len(sources) {
		t.Errorf("unexpected counts: total=%d ok=%d failed=%d", m.Total, m.Succeeded, m.Failed)
	}
	if m.Failed < len(sources)-2 {
		t.Errorf("expected unaudited letters to count as failures, got %d", m.Failed)
	}
}
