package methods

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/toseeq44/automation-fb-sub002/harvest/internal/cookiejar"
)

// DefaultLinkPatterns are the path substrings that identify a content link
// on each platform's profile markup.
func DefaultLinkPatterns() map[Platform][]string {
	return map[Platform][]string{
		PlatformYouTube:   {"/watch", "/shorts/"},
		PlatformTikTok:    {"/video/", "/photo/"},
		PlatformInstagram: {"/p/", "/reel/", "/tv/"},
		PlatformFacebook:  {"/videos/", "/reel/", "/watch"},
		PlatformTwitter:   {"/status/"},
	}
}

// ScrapeConfig configures the plain-HTTP scrape method.
type ScrapeConfig struct {
	// UserAgent sent with requests. Default mimics a desktop browser —
	// the default Go user agent is an instant block on most platforms.
	UserAgent string
	// Patterns overrides the per-platform content link patterns.
	Patterns map[Platform][]string
	// Client overrides the HTTP client (tests).
	Client *http.Client
	Logger *slog.Logger
}

func (c *ScrapeConfig) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	}
	if c.Patterns == nil {
		c.Patterns = DefaultLinkPatterns()
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scrape fetches the profile page over plain HTTP and harvests content
// anchors with goquery. Works only on platforms that still server-render
// profile markup, but costs nothing when it does.
type Scrape struct {
	cfg ScrapeConfig
}

// NewScrape creates the scrape method.
func NewScrape(cfg ScrapeConfig) *Scrape {
	cfg.defaults()
	return &Scrape{cfg: cfg}
}

func (m *Scrape) Name() string { return "scrape" }
func (m *Scrape) Ordinal() int { return 5 }

func (m *Scrape) Supports(p Platform) bool {
	_, ok := m.cfg.Patterns[p]
	return ok
}

func (m *Scrape) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	patterns, ok := m.cfg.Patterns[t.Platform]
	if !ok {
		return nil, KindNotApplicable
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.AccountURL, nil)
	if err != nil {
		return nil, KindMalformedOutput
	}
	req.Header.Set("User-Agent", m.cfg.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	if t.CookieFile != "" {
		if cookies, err := cookiejar.ParseFile(t.CookieFile, m.cfg.Logger); err == nil {
			if header := cookiejar.HeaderFor(cookies, req.URL.Hostname()); header != "" {
				req.Header.Set("Cookie", header)
			}
		}
	}

	resp, err := m.cfg.Client.Do(req)
	if err != nil {
		if kind := classifyCtx(ctx); kind != KindNone {
			return nil, kind
		}
		m.cfg.Logger.Debug("scrape: request failed", "url", t.AccountURL, "error", err)
		return nil, KindMalformedOutput
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 401 || resp.StatusCode == 403 || resp.StatusCode == 429:
		return nil, KindBlocked
	case resp.StatusCode < 200 || resp.StatusCode >= 400:
		return nil, KindEmptyResult
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, KindMalformedOutput
	}

	base := resp.Request.URL
	entries := collectAnchors(doc, base, patterns, t.MaxItems)
	if len(entries) == 0 {
		// A login wall often returns 200 with a sign-in form.
		if looksBlocked(doc.Text()) {
			return nil, KindBlocked
		}
		return nil, KindEmptyResult
	}
	return &RawResult{Entries: entries}, KindNone
}

// collectAnchors walks anchor elements, resolves hrefs against the page
// URL, and keeps those whose path matches a content pattern.
func collectAnchors(doc *goquery.Document, base *url.URL, patterns []string, max int) []RawEntry {
	var entries []RawEntry
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := base.ResolveReference(ref)
		if !matchesAny(abs.Path, patterns) {
			return true
		}
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title, _ = sel.Attr("aria-label")
		}
		entries = append(entries, RawEntry{URL: abs.String(), Title: title})
		return max <= 0 || len(entries) < max
	})
	return entries
}

func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(path, p) {
			return true
		}
	}
	return false
}
