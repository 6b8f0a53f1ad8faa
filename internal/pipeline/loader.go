package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/letteraudit/internal/model"
	"github.com/ppiankov/letteraudit/internal/util"
	"github.com/ppiankov/letteraudit/internal/worker"
)

var (
	ErrFileTooLarge      = errors.New("file too large")
	ErrTooManyPages      = errors.New("too many pages")
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrRobotsDisallowed  = errors.New("disallowed by robots.txt")

	// ErrNoText carries the message shown to the veteran as-is
	ErrNoText = errors.New("we couldn't read the words from this file. This usually happens when the letter is a photo/scan instead of real text. " +
		"If possible, get a clearer copy of your decision letter or re-save it as a text-based PDF, then extract its text to a .txt file")
)

// Source formats reported on the Report
const (
	FormatText   = "text"
	FormatHTML   = "html"
	FormatRemote = "remote"
)

// fetchSleepFunc waits out a retry backoff; replaced in tests
var fetchSleepFunc = sleepContext

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

const (
	maxFetchAttempts        = 3
	retryBackoff            = 500 * time.Millisecond
	maxRedirects            = 3
	remoteRequestsPerSecond = 1
	remoteBurst             = 2
)

// pageMarkerRE matches the "--- Page N ---" separators PDF text extractors emit
var pageMarkerRE = regexp.MustCompile(`(?m)^[ \t]*-{3}[ \t]*Page[ \t]+\d+[ \t]*-{3}[ \t]*$`)

// Extraction is the text of one source plus what the loader learned about it
type Extraction struct {
	Text              string
	PageCount         int
	HadSelectableText bool
	Source            string
	Format            string
}

// Loader turns a path or URL into letter text
type Loader struct {
	limits     model.LimitsConfig
	httpConfig model.HTTPConfig
	httpClient *http.Client
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
}

// NewLoader creates a new Loader with the given configuration
func NewLoader(limits model.LimitsConfig, httpConfig model.HTTPConfig) *Loader {
	timeout := httpConfig.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(httpConfig.HTTPProxy, httpConfig.HTTPSProxy, httpConfig.NoProxy),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	return &Loader{
		limits:     limits,
		httpConfig: httpConfig,
		httpClient: client,
		robots:     util.NewRobotsChecker(httpConfig.UserAgent, client),
		limiter:    worker.NewLimiter(remoteRequestsPerSecond, remoteBurst),
	}
}

// Load reads source, which is a local path or an http(s) URL
func (l *Loader) Load(ctx context.Context, source string) (*Extraction, error) {
	if isRemote(source) {
		return l.loadRemote(ctx, source)
	}
	return l.loadFile(source)
}

// FromText builds an Extraction from text that is already in memory and
// applies the same page and empty-text gates as Load
func (l *Loader) FromText(source, format, text string) (*Extraction, error) {
	text = norm.NFC.String(strings.TrimPrefix(text, "\ufeff"))

	ext := &Extraction{
		Text:              text,
		PageCount:         countPages(text),
		HadSelectableText: strings.TrimSpace(text) != "",
		Source:            source,
		Format:            format,
	}

	if l.limits.MaxPages > 0 && ext.PageCount > l.limits.MaxPages {
		return nil, fmt.Errorf("%w: this letter has %d pages; the limit is %d", ErrTooManyPages, ext.PageCount, l.limits.MaxPages)
	}
	if !ext.HadSelectableText {
		return nil, ErrNoText
	}
	return ext, nil
}

func (l *Loader) loadFile(path string) (*Extraction, error) {
	format, err := formatForPath(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsupportedSource, path)
	}
	if limit := l.maxFileBytes(); limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%w: that file is %.1f MB; the limit is %d MB",
			ErrFileTooLarge, float64(info.Size())/(1<<20), l.limits.MaxFileMB)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return l.decode(path, format, data)
}

func (l *Loader) loadRemote(ctx context.Context, rawURL string) (*Extraction, error) {
	if !l.httpConfig.AllowRemote {
		return nil, fmt.Errorf("%w: remote sources are disabled (set http.allow_remote)", ErrUnsupportedSource)
	}

	if l.httpConfig.RespectRobots {
		allowed, delay, err := l.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("robots: %w", err)
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, rawURL)
		}
		host, err := worker.HostKey(rawURL)
		if err != nil {
			return nil, err
		}
		if err := l.limiter.WaitWithDelay(ctx, host, delay); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	} else if err := l.limiter.WaitURL(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, format, finalURL, err := l.fetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	ext, err := l.decode(finalURL, format, body)
	if err != nil {
		return nil, err
	}
	ext.Source = rawURL
	ext.Format = FormatRemote
	return ext, nil
}

// fetchWithRetry retries 429 and 5xx responses with a linear backoff
func (l *Loader) fetchWithRetry(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		body, format, finalURL, err := l.fetch(ctx, rawURL)
		if err == nil {
			return body, format, finalURL, nil
		}
		lastErr = err

		var se *statusError
		if !errors.As(err, &se) || !se.retryable() {
			return nil, "", "", err
		}
		if attempt < maxFetchAttempts {
			if err := fetchSleepFunc(ctx, time.Duration(attempt)*retryBackoff); err != nil {
				return nil, "", "", err
			}
		}
	}
	return nil, "", "", lastErr
}

func (l *Loader) fetch(ctx context.Context, rawURL string) ([]byte, string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", l.httpConfig.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, "", "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", "", &statusError{code: resp.StatusCode, status: resp.Status}
	}

	format, err := formatForResponse(resp)
	if err != nil {
		return nil, "", "", err
	}

	limit := l.maxBodyBytes()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, "", "", fmt.Errorf("%w: response exceeds %d bytes", ErrFileTooLarge, limit)
	}

	return body, format, resp.Request.URL.String(), nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.code, e.status)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// decode converts raw bytes of a known format into an Extraction
func (l *Loader) decode(source, format string, data []byte) (*Extraction, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("%w: %s looks like a binary file; extract its text first", ErrUnsupportedSource, source)
	}

	text := string(data)
	if format == FormatHTML {
		visible, err := VisibleText(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		text = visible
	}

	return l.FromText(source, format, text)
}

func (l *Loader) maxFileBytes() int64 {
	return int64(l.limits.MaxFileMB) << 20
}

func (l *Loader) maxBodyBytes() int64 {
	if l.limits.MaxBodyBytes > 0 {
		return l.limits.MaxBodyBytes
	}
	if l.limits.MaxFileMB > 0 {
		return l.maxFileBytes()
	}
	return 25 << 20
}

func isRemote(source string) bool {
	lower := strings.ToLower(source)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func formatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case "", ".txt", ".text", ".md":
		return FormatText, nil
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".pdf":
		return "", fmt.Errorf("%w: %s is a PDF; extract its text to a .txt file first", ErrUnsupportedSource, path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
	}
}

func formatForResponse(resp *http.Response) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))

	switch {
	case strings.Contains(mediaType, "html"):
		return FormatHTML, nil
	case strings.HasPrefix(mediaType, "text/"):
		return FormatText, nil
	case mediaType == "":
		if p, err := formatForPath(urlPath(resp)); err == nil {
			return p, nil
		}
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: content type %s", ErrUnsupportedSource, mediaType)
	}
}

func urlPath(resp *http.Response) string {
	if resp.Request == nil || resp.Request.URL == nil {
		return ""
	}
	return resp.Request.URL.Path
}

// countPages counts "--- Page N ---" markers, then form feeds, with a minimum of one page
func countPages(text string) int {
	if n := len(pageMarkerRE.FindAllStringIndex(text, -1)); n > 0 {
		return n
	}
	if n := strings.Count(strings.TrimRight(text, "\f"), "\f"); n > 0 {
		return n + 1
	}
	return 1
}
