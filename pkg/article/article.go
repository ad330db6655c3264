// Package article fetches a web page and extracts its readable body text.
package article

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"

	"github.com/japaniel/vocab/pkg/config"
	"github.com/japaniel/vocab/pkg/domain"
)

// Article is the cleaned content of a page.
type Article struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Text     string
}

// Fetcher downloads pages with browser-like headers.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	minText   int
	cookie    string
	log       *slog.Logger
}

// NewFetcher returns a Fetcher using the timeouts and limits in cfg.
func NewFetcher(cfg config.ArticleConfig, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		maxBody:   cfg.MaxBodyBytes,
		minText:   cfg.MinTextLength,
		cookie:    cfg.Cookie,
		log:       log.With("component", "article"),
	}
}

type fetchOptions struct {
	cookie string
}

// Option adjusts a single Fetch.
type Option func(*fetchOptions)

// WithCookie sends a Cookie header, for pages behind a login.
func WithCookie(cookie string) Option {
	return func(o *fetchOptions) { o.cookie = cookie }
}

// Fetch downloads rawURL and extracts its text. When the text is shorter
// than the configured minimum the article is still returned together with an
// error wrapping domain.ErrTextTooShort, which usually means a paywall or an
// expired session.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts ...Option) (Article, error) {
	o := fetchOptions{cookie: f.cookie}
	for _, opt := range opts {
		opt(&o)
	}

	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Scheme == "" || pageURL.Host == "" {
		return Article{}, domain.NewValidationError("url", "must be an absolute URL")
	}

	body, err := f.download(ctx, rawURL, o)
	if err != nil {
		return Article{}, err
	}

	// Ruby annotations would otherwise be duplicated into the text.
	body = SanitizeRuby(body)

	a := Article{URL: rawURL}
	parsed, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil {
		a.Title = strings.TrimSpace(parsed.Title)
		a.Byline = strings.TrimSpace(parsed.Byline)
		a.SiteName = strings.TrimSpace(parsed.SiteName)
		a.Text = collapseSpace(parsed.TextContent)
	} else {
		f.log.Debug("readability failed", "url", rawURL, "error", err)
	}

	if utf8.RuneCountInString(a.Text) < f.minText {
		if text, ok := fallbackText(body); ok && utf8.RuneCountInString(text) > utf8.RuneCountInString(a.Text) {
			a.Text = text
		}
	}

	n := utf8.RuneCountInString(a.Text)
	f.log.Info("article extracted", "url", rawURL, "title", a.Title, "chars", n)
	if n < f.minText {
		return a, fmt.Errorf("%s: got %d characters, want at least %d: %w", rawURL, n, f.minText, domain.ErrTextTooShort)
	}
	return a, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string, o fetchOptions) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "es-ES,es;q=0.9,en;q=0.8,fr;q=0.7")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if o.cookie != "" {
		req.Header.Set("Cookie", o.cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}
	if f.maxBody > 0 && resp.ContentLength > f.maxBody {
		return nil, fmt.Errorf("fetch %s: content length %d exceeds limit of %d bytes", rawURL, resp.ContentLength, f.maxBody)
	}

	r := io.Reader(resp.Body)
	if f.maxBody > 0 {
		// one extra byte tells an exact fit from a truncated body
		r = io.LimitReader(resp.Body, f.maxBody+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxBody > 0 && int64(len(body)) > f.maxBody {
		return nil, fmt.Errorf("fetch %s: body exceeds limit of %d bytes", rawURL, f.maxBody)
	}
	return body, nil
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)

	reSpace = regexp.MustCompile(`\s+`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) so furigana is not extracted next to its base text.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

func collapseSpace(s string) string {
	return strings.TrimSpace(reSpace.ReplaceAllString(s, " "))
}
