package methods

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

// FeedConfig configures the RSS/Atom feed method.
type FeedConfig struct {
	// Templates maps a platform to a feed URL template with one %s verb
	// for the account identifier. Platforms without a template are not
	// supported by this method.
	Templates map[Platform]string
	Logger    *slog.Logger
}

func (c *FeedConfig) defaults() {
	if c.Templates == nil {
		c.Templates = DefaultFeedTemplates()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// DefaultFeedTemplates returns the built-in feed endpoints. Only platforms
// that still publish public feeds appear here; the rest are configured at
// deploy time (e.g. a nitter instance for twitter). YouTube's endpoint
// accepts channel IDs only, so handle-style profile URLs are declined as
// not applicable rather than requested and 404ed.
func DefaultFeedTemplates() map[Platform]string {
	return map[Platform]string{
		PlatformYouTube: "https://www.youtube.com/feeds/videos.xml?channel_id=%s",
	}
}

// Feed discovers links through a platform's RSS/Atom feed. Cheap and hard
// to block, but only covers platforms that expose feeds and only the most
// recent entries.
type Feed struct {
	cfg    FeedConfig
	parser *gofeed.Parser
}

// NewFeed creates the feed method.
func NewFeed(cfg FeedConfig) *Feed {
	cfg.defaults()
	return &Feed{cfg: cfg, parser: gofeed.NewParser()}
}

func (m *Feed) Name() string { return "feed" }
func (m *Feed) Ordinal() int { return 4 }

func (m *Feed) Supports(p Platform) bool {
	_, ok := m.cfg.Templates[p]
	return ok
}

func (m *Feed) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	tmpl, ok := m.cfg.Templates[t.Platform]
	if !ok {
		return nil, KindNotApplicable
	}

	id := feedAccountID(t.Platform, t.AccountURL)
	if id == "" {
		return nil, KindNotApplicable
	}
	feedURL := fmt.Sprintf(tmpl, url.QueryEscape(id))

	feed, err := m.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		if kind := classifyCtx(ctx); kind != KindNone {
			return nil, kind
		}
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == 403 || httpErr.StatusCode == 429 || httpErr.StatusCode == 401 {
				return nil, KindBlocked
			}
			if httpErr.StatusCode == 404 {
				return nil, KindEmptyResult
			}
		}
		m.cfg.Logger.Debug("feed: parse failed", "url", feedURL, "error", err)
		return nil, KindMalformedOutput
	}

	max := t.MaxItems
	var entries []RawEntry
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		e := RawEntry{URL: item.Link, Title: item.Title}
		if item.PublishedParsed != nil {
			e.Date = item.PublishedParsed.Format("20060102")
		} else if item.UpdatedParsed != nil {
			e.Date = item.UpdatedParsed.Format("20060102")
		}
		entries = append(entries, e)
		if max > 0 && len(entries) >= max {
			break
		}
	}
	if len(entries) == 0 {
		return nil, KindEmptyResult
	}
	return &RawResult{Entries: entries}, KindNone
}

// feedAccountID extracts the identifier the platform's feed endpoint takes.
// YouTube feeds only accept channel IDs, which handle-style URLs do not
// carry; resolving a handle needs an extra page request, so those URLs
// yield "" and the method declines.
func feedAccountID(p Platform, accountURL string) string {
	if p == PlatformYouTube {
		return youtubeChannelID(accountURL)
	}
	return accountHandle(accountURL)
}

// youtubeChannelID pulls the channel ID out of a /channel/<id> profile URL.
// A bare UC-prefixed ID passes through; anything else yields "".
func youtubeChannelID(accountURL string) string {
	raw := strings.TrimSpace(accountURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "/") {
		if strings.HasPrefix(raw, "UC") {
			return raw
		}
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segs {
		if seg == "channel" && i+1 < len(segs) && segs[i+1] != "" {
			return segs[i+1]
		}
	}
	return ""
}

// accountHandle pulls the account identifier out of a profile URL: the last
// non-empty path segment, with a leading @ stripped. A bare handle passes
// through unchanged.
func accountHandle(accountURL string) string {
	raw := strings.TrimSpace(accountURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "/") {
		return strings.TrimPrefix(raw, "@")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] != "" {
			return strings.TrimPrefix(segs[i], "@")
		}
	}
	return strings.TrimPrefix(u.Host, "www.")
}
