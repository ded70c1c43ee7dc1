// Package fetch retrieves web page content for LLM analysis, caching
// extracted text by URL hash so repeat sweeps never re-download a page.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultMaxBody = 512 * 1024

// Fetcher downloads pages and reduces them to plain text. Every failure mode
// (timeout, non-200, unreadable body) yields a miss, never an error: callers
// treat a miss as "skip this URL".
type Fetcher struct {
	client  *http.Client
	cache   *Cache
	maxBody int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout overrides the default 15s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// WithMaxBody overrides the response body size cap.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) {
		f.maxBody = n
	}
}

// NewFetcher creates a Fetcher backed by the given cache.
func NewFetcher(cache *Cache, opts ...Option) *Fetcher {
	f := &Fetcher{
		cache:   cache,
		maxBody: defaultMaxBody,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch returns extracted main-text content for a URL. Cache hits return
// unconditionally. On a miss the page is downloaded, stripped of noise,
// cached, and returned. ok is false when the page yielded no usable content.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (content string, ok bool) {
	if cached, hit := f.cache.Get(targetURL); hit {
		return cached, true
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		zap.L().Debug("fetch: create request", zap.String("url", targetURL), zap.Error(err))
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		zap.L().Debug("fetch: request failed", zap.String("url", targetURL), zap.Error(err))
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		zap.L().Debug("fetch: non-200 response", zap.String("url", targetURL), zap.Int("status", resp.StatusCode))
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		zap.L().Debug("fetch: read body", zap.String("url", targetURL), zap.Error(err))
		return "", false
	}

	text := ExtractText(string(body))
	if text == "" {
		return "", false
	}

	f.cache.Put(targetURL, text)
	return text, true
}

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaRe  = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]*content=["']([^"']*)["']`)
	mainRe  = regexp.MustCompile(`(?is)<(?:main|article)[^>]*>(.*?)</(?:main|article)>`)
	tagRe   = regexp.MustCompile(`<[^>]+>`)
)

// ExtractText reduces an HTML document to analysis-ready plain text: the
// title and meta description up front, then the main/article region if one
// exists, else the whole stripped page.
func ExtractText(html string) string {
	title := ""
	if m := titleRe.FindStringSubmatch(html); m != nil {
		title = strings.TrimSpace(m[1])
	}
	meta := ""
	if m := metaRe.FindStringSubmatch(html); m != nil {
		meta = strings.TrimSpace(m[1])
	}

	region := html
	if m := mainRe.FindStringSubmatch(html); m != nil {
		region = m[1]
	}

	text := stripHTML(region)
	if title == "" && meta == "" && text == "" {
		return ""
	}

	return fmt.Sprintf("タイトル: %s\n説明: %s\n\n本文:\n%s", title, meta, text)
}

// stripHTML removes scripts/styles/iframes/nav/footer, strips tags, decodes
// entities, and collapses whitespace.
func stripHTML(html string) string {
	for _, tag := range []string{"script", "style", "iframe", "nav", "footer"} {
		re := regexp.MustCompile(`(?is)<` + tag + `[^>]*>.*?</` + tag + `>`)
		html = re.ReplaceAllString(html, "")
	}

	html = tagRe.ReplaceAllString(html, " ")

	r := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	html = r.Replace(html)

	spaceRe := regexp.MustCompile(`[ \t]+`)
	html = spaceRe.ReplaceAllString(html, " ")

	nlRe := regexp.MustCompile(`\n{3,}`)
	html = nlRe.ReplaceAllString(html, "\n\n")

	return strings.TrimSpace(html)
}
