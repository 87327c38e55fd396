package harvest

import (
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/toseeq44/automation-fb-sub002/harvest/internal/methods"
)

const (
	maxTitleRunes = 120
	untitled      = "(untitled)"
	// unknownDate marks entries whose source reported no usable date.
	unknownDate = "unknown"
)

// titlePolicy strips all markup; feed and scrape titles routinely carry
// embedded HTML.
var titlePolicy = bluemonday.StrictPolicy()

// dateLayouts are tried in order when coercing a raw date string.
var dateLayouts = []string{
	"20060102",
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// Normalize converts a method's raw entries into the uniform result shape:
// absolute URLs only, first-seen order kept, duplicates by canonical URL
// dropped, titles sanitized and bounded, dates coerced to YYYYMMDD.
// Normalizing an already-normalized list is a no-op.
func Normalize(raw []methods.RawEntry, log *slog.Logger) []LinkEntry {
	if log == nil {
		log = slog.Default()
	}

	out := make([]LinkEntry, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	dropped := 0

	for _, e := range raw {
		u, err := url.Parse(strings.TrimSpace(e.URL))
		if err != nil || !u.IsAbs() || u.Host == "" {
			dropped++
			continue
		}
		key := canonicalKey(u)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, LinkEntry{
			URL:   u.String(),
			Title: normalizeTitle(e.Title),
			Date:  normalizeDate(e.Date),
		})
	}

	if dropped > 0 {
		log.Warn("normalize: dropped malformed URLs", "count", dropped)
	}
	return out
}

// canonicalKey is the dedup identity: case-insensitive scheme and host,
// exact path and query. Two paths differing only in case are different
// content on most platforms.
func canonicalKey(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.Path + "?" + u.RawQuery
}

func normalizeTitle(s string) string {
	s = titlePolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return untitled
	}
	r := []rune(s)
	if len(r) > maxTitleRunes {
		s = string(r[:maxTitleRunes-1]) + "…"
	}
	return s
}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "na") || s == unknownDate {
		return unknownDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102")
		}
	}
	return unknownDate
}
