package methods

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/toseeq44/automation-fb-sub002/harvest/internal/cookiejar"
)

// BrowserConfig configures the browser-automation method family.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via the rod launcher.
	RemoteURL string
	// ScrollPasses is how many times to scroll the profile to trigger
	// lazy loading. Default: 6.
	ScrollPasses int
	// ScrollDelay is the pause between scroll passes. Default: 1.5s.
	ScrollDelay time.Duration
	// Cap is the method-level hard item cap. Default: 200 — collecting
	// more requires scrolling long profiles for minutes.
	Cap int
	// Patterns overrides the per-platform content link patterns.
	Patterns map[Platform][]string
	Logger   *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.ScrollPasses <= 0 {
		c.ScrollPasses = 6
	}
	if c.ScrollDelay <= 0 {
		c.ScrollDelay = 1500 * time.Millisecond
	}
	if c.Cap <= 0 {
		c.Cap = 200
	}
	if c.Patterns == nil {
		c.Patterns = DefaultLinkPatterns()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// BrowserRig owns the Chrome lifecycle shared by the browser methods:
// lazy launch on first use, one browser process per service, torn down on
// Close. Pages are per-attempt and always closed.
type BrowserRig struct {
	cfg BrowserConfig

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowserRig creates a rig. Chrome is not launched until a browser
// method actually runs.
func NewBrowserRig(cfg BrowserConfig) *BrowserRig {
	cfg.defaults()
	return &BrowserRig{cfg: cfg}
}

// available reports whether a browser can be obtained at all.
func (r *BrowserRig) available() bool {
	if r.cfg.RemoteURL != "" {
		return true
	}
	_, found := launcher.LookPath()
	return found
}

// acquire returns the shared browser handle, launching Chrome on first use.
func (r *BrowserRig) acquire() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("browser rig is closed")
	}
	if r.browser != nil {
		return r.browser, nil
	}

	wsURL := r.cfg.RemoteURL
	if wsURL == "" {
		bin, found := launcher.LookPath()
		if !found {
			return nil, fmt.Errorf("no chrome/chromium binary found")
		}
		l := launcher.New().Bin(bin).
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		r.lnch = l
		r.cfg.Logger.Info("browser: launched local chrome", "url", wsURL)
	} else {
		r.cfg.Logger.Info("browser: connecting to remote", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if r.lnch != nil {
			r.lnch.Cleanup()
			r.lnch = nil
		}
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	r.browser = b
	return b, nil
}

// Close shuts down Chrome if it was launched.
func (r *BrowserRig) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.browser != nil {
		r.browser.Close()
		r.browser = nil
	}
	if r.lnch != nil {
		r.lnch.Cleanup()
		r.lnch = nil
	}
	return nil
}

// collect drives one page visit: navigate, inject cookies, scroll to
// trigger lazy loading, then harvest matching anchors from the live DOM.
func (r *BrowserRig) collect(ctx context.Context, t Target, useStealth bool) (*RawResult, ErrorKind) {
	patterns, ok := r.cfg.Patterns[t.Platform]
	if !ok {
		return nil, KindNotApplicable
	}
	if !r.available() {
		return nil, KindNotInstalled
	}

	b, err := r.acquire()
	if err != nil {
		r.cfg.Logger.Warn("browser: acquire failed", "error", err)
		return nil, KindNotInstalled
	}

	var page *rod.Page
	if useStealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		if kind := classifyCtx(ctx); kind != KindNone {
			return nil, kind
		}
		r.cfg.Logger.Debug("browser: create page failed", "error", err)
		return nil, KindMalformedOutput
	}
	defer page.Close()

	page = page.Context(ctx)

	if t.CookieFile != "" {
		if err := r.injectCookies(page, t); err != nil {
			r.cfg.Logger.Debug("browser: cookie injection failed", "error", err)
		}
	}

	if err := page.Navigate(t.AccountURL); err != nil {
		if kind := classifyCtx(ctx); kind != KindNone {
			return nil, kind
		}
		return nil, KindBlocked
	}
	if err := page.WaitLoad(); err != nil {
		if kind := classifyCtx(ctx); kind != KindNone {
			return nil, kind
		}
		r.cfg.Logger.Debug("browser: wait load", "url", t.AccountURL, "error", err)
	}

	limit := t.MaxItems
	capped := false
	if limit <= 0 || r.cfg.Cap < limit {
		capped = limit > 0
		limit = r.cfg.Cap
	}

	entries := r.scrollAndHarvest(ctx, page, t.AccountURL, patterns, limit)
	if kind := classifyCtx(ctx); kind != KindNone {
		return nil, kind
	}
	if len(entries) == 0 {
		if body, err := page.Eval(`() => document.body ? document.body.innerText : ""`); err == nil &&
			looksBlocked(body.Value.Str()) {
			return nil, KindBlocked
		}
		return nil, KindEmptyResult
	}
	// The listing is only incomplete when the cap was actually reached.
	return &RawResult{Entries: entries, Truncated: capped && len(entries) >= limit}, KindNone
}

func (r *BrowserRig) injectCookies(page *rod.Page, t Target) error {
	cookies, err := cookiejar.ParseFile(t.CookieFile, r.cfg.Logger)
	if err != nil {
		return err
	}
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   path,
		})
	}
	if len(params) == 0 {
		return nil
	}
	return page.SetCookies(params)
}

// scrollAndHarvest alternates scroll passes with anchor collection and
// stops early once the limit is reached or a pass yields nothing new.
func (r *BrowserRig) scrollAndHarvest(ctx context.Context, page *rod.Page, pageURL string, patterns []string, limit int) []RawEntry {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	var entries []RawEntry

	harvest := func() int {
		res, err := page.Eval(`() => Array.from(document.querySelectorAll("a[href]"))
			.map(a => ({href: a.getAttribute("href") || "", text: (a.innerText || a.getAttribute("aria-label") || "").trim()}))`)
		if err != nil {
			return 0
		}
		added := 0
		for _, item := range res.Value.Arr() {
			href := strings.TrimSpace(item.Get("href").Str())
			if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
				continue
			}
			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			abs := base.ResolveReference(ref)
			if !matchesAny(abs.Path, patterns) || seen[abs.String()] {
				continue
			}
			seen[abs.String()] = true
			entries = append(entries, RawEntry{URL: abs.String(), Title: item.Get("text").Str()})
			added++
			if len(entries) >= limit {
				break
			}
		}
		return added
	}

	harvest()
	for pass := 0; pass < r.cfg.ScrollPasses && len(entries) < limit; pass++ {
		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			return entries
		case <-time.After(r.cfg.ScrollDelay):
		}
		if harvest() == 0 && pass > 0 {
			break
		}
	}
	return entries
}

// Browser is the headless automation method: renders the profile with
// Chrome so client-side markup becomes harvestable.
type Browser struct{ rig *BrowserRig }

// NewBrowser creates the browser method over a shared rig.
func NewBrowser(rig *BrowserRig) *Browser { return &Browser{rig: rig} }

func (m *Browser) Name() string              { return "browser" }
func (m *Browser) Ordinal() int              { return 6 }
func (m *Browser) Supports(p Platform) bool  { _, ok := m.rig.cfg.Patterns[p]; return ok }

func (m *Browser) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	return m.rig.collect(ctx, t, false)
}

// BrowserStealth is the last-resort method: same collection logic behind a
// stealth page that masks the usual automation fingerprints.
type BrowserStealth struct{ rig *BrowserRig }

// NewBrowserStealth creates the browser-stealth method over a shared rig.
func NewBrowserStealth(rig *BrowserRig) *BrowserStealth { return &BrowserStealth{rig: rig} }

func (m *BrowserStealth) Name() string             { return "browser-stealth" }
func (m *BrowserStealth) Ordinal() int             { return 7 }
func (m *BrowserStealth) Supports(p Platform) bool { _, ok := m.rig.cfg.Patterns[p]; return ok }

func (m *BrowserStealth) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	return m.rig.collect(ctx, t, true)
}
