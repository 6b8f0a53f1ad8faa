package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/letteraudit/internal/model"
	"github.com/ppiankov/letteraudit/internal/pipeline"
)

// Flags shared by the commands that read a letter
var (
	timeout    time.Duration
	userAgent  string
	httpProxy  string
	httpsProxy string
	noCache    bool
	noFooter   bool
	allowURL   bool
)

// newLogger logs to stderr; library events only show with --verbose
func newLogger(cfg *model.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Output.Verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// applyFlags overlays the shared flags that were set explicitly
func applyFlags(cfg *model.Config, flagChanged func(string) bool) {
	if flagChanged("timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if flagChanged("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flagChanged("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flagChanged("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if flagChanged("allow-remote") {
		cfg.HTTP.AllowRemote = allowURL
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
}

func newPipeline(cfg *model.Config) *pipeline.Pipeline {
	return pipeline.NewPipeline(cfg, newLogger(cfg))
}

// writeJSON writes v as indented JSON to path, or to stdout when path is "" or "-"
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", path)
	}
	return nil
}

// sanitizeFilename turns a path or URL into a safe file stem
func sanitizeFilename(s string) string {
	s = strings.TrimSuffix(s, "/")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = filepath.Base(filepath.ToSlash(s))
	s = strings.TrimSuffix(s, filepath.Ext(s))

	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		case ' ':
			return '-'
		}
		return r
	}, s)

	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" || s == "." {
		s = "letter"
	}
	return s
}
