package methods

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// YtDlpConfig configures the yt-dlp method family.
type YtDlpConfig struct {
	// Binary is the yt-dlp executable. Default: "yt-dlp".
	Binary string
	// Cap is the method-level hard item cap. 0 means no cap beyond the
	// caller's MaxItems.
	Cap int
	Logger *slog.Logger
}

func (c *YtDlpConfig) defaults() {
	if c.Binary == "" {
		c.Binary = "yt-dlp"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ytdlpBase carries the shared plumbing for the three yt-dlp variants.
type ytdlpBase struct {
	cfg YtDlpConfig
}

func (b *ytdlpBase) Supports(Platform) bool {
	// yt-dlp has extractors for every platform we target.
	return true
}

// effectiveLimit resolves the caller's MaxItems against the method cap.
// Returns the playlist-end value and whether the cap lowered the caller's
// request. The listing only counts as truncated when the harvest actually
// filled the lowered limit, which the Run methods check.
func (b *ytdlpBase) effectiveLimit(maxItems int) (int, bool) {
	limit := maxItems
	capped := false
	if b.cfg.Cap > 0 && (limit <= 0 || b.cfg.Cap < limit) {
		if limit > 0 {
			capped = true
		}
		limit = b.cfg.Cap
	}
	return limit, capped
}

// baseArgs are the flags common to all yt-dlp listing modes.
func (b *ytdlpBase) baseArgs(t Target, limit int) []string {
	args := []string{
		"--ignore-config",
		"--no-warnings",
		"--skip-download",
		"--ignore-errors",
	}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprintf("%d", limit))
	}
	if t.CookieFile != "" {
		args = append(args, "--cookies", t.CookieFile)
	}
	return args
}

// --- ytdlp-json: single-document playlist dump (-J) ---

// YtDlpJSON runs yt-dlp -J and reads the playlist entries from the single
// JSON document. Slowest of the family but the richest metadata.
type YtDlpJSON struct{ ytdlpBase }

// NewYtDlpJSON creates the ytdlp-json method.
func NewYtDlpJSON(cfg YtDlpConfig) *YtDlpJSON {
	cfg.defaults()
	return &YtDlpJSON{ytdlpBase{cfg: cfg}}
}

func (m *YtDlpJSON) Name() string { return "ytdlp-json" }
func (m *YtDlpJSON) Ordinal() int { return 0 }

func (m *YtDlpJSON) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	limit, capped := m.effectiveLimit(t.MaxItems)
	args := append(m.baseArgs(t, limit), "-J", t.AccountURL)

	out, kind := runTool(ctx, m.cfg.Logger, m.cfg.Binary, args...)
	if kind != KindNone {
		return nil, kind
	}

	entries, err := parseYtDlpDump(out)
	if err != nil {
		m.cfg.Logger.Debug("ytdlp-json: parse failed", "error", err)
		return nil, KindMalformedOutput
	}
	if len(entries) == 0 {
		return nil, KindEmptyResult
	}
	return &RawResult{Entries: entries, Truncated: capped && len(entries) >= limit}, KindNone
}

// parseYtDlpDump decodes a -J playlist document. A single-video document
// (no entries array) degrades to one entry.
func parseYtDlpDump(out []byte) ([]RawEntry, error) {
	var doc struct {
		Entries []ytdlpEntry `json:"entries"`
		ytdlpEntry
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, fmt.Errorf("decode dump: %w", err)
	}
	if len(doc.Entries) == 0 && doc.ytdlpEntry.link() != "" {
		doc.Entries = []ytdlpEntry{doc.ytdlpEntry}
	}
	entries := make([]RawEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.link() == "" {
			continue
		}
		entries = append(entries, RawEntry{URL: e.link(), Title: e.Title, Date: e.UploadDate})
	}
	return entries, nil
}

// --- ytdlp-flat: line-delimited flat playlist (-j --flat-playlist) ---

// YtDlpFlat runs yt-dlp --flat-playlist -j, one JSON object per line.
// Much faster than -J because entries are not resolved individually.
type YtDlpFlat struct{ ytdlpBase }

// NewYtDlpFlat creates the ytdlp-flat method.
func NewYtDlpFlat(cfg YtDlpConfig) *YtDlpFlat {
	cfg.defaults()
	return &YtDlpFlat{ytdlpBase{cfg: cfg}}
}

func (m *YtDlpFlat) Name() string { return "ytdlp-flat" }
func (m *YtDlpFlat) Ordinal() int { return 1 }

func (m *YtDlpFlat) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	limit, capped := m.effectiveLimit(t.MaxItems)
	args := append(m.baseArgs(t, limit), "--flat-playlist", "-j", t.AccountURL)

	out, kind := runTool(ctx, m.cfg.Logger, m.cfg.Binary, args...)
	if kind != KindNone {
		return nil, kind
	}

	entries := parseYtDlpLines(out)
	if len(entries) == 0 {
		return nil, KindEmptyResult
	}
	return &RawResult{Entries: entries, Truncated: capped && len(entries) >= limit}, KindNone
}

// parseYtDlpLines decodes line-delimited JSON entries, skipping lines that
// do not parse instead of failing the batch.
func parseYtDlpLines(out []byte) []RawEntry {
	var entries []RawEntry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e ytdlpEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.link() == "" {
			continue
		}
		entries = append(entries, RawEntry{URL: e.link(), Title: e.Title, Date: e.UploadDate})
	}
	return entries
}

// --- ytdlp-urls: --print columns, no JSON at all ---

// YtDlpURLs runs yt-dlp --flat-playlist --print with a tab-separated
// template. The cheapest variant; survives yt-dlp versions whose JSON shape
// drifted.
type YtDlpURLs struct{ ytdlpBase }

// NewYtDlpURLs creates the ytdlp-urls method.
func NewYtDlpURLs(cfg YtDlpConfig) *YtDlpURLs {
	cfg.defaults()
	return &YtDlpURLs{ytdlpBase{cfg: cfg}}
}

func (m *YtDlpURLs) Name() string { return "ytdlp-urls" }
func (m *YtDlpURLs) Ordinal() int { return 2 }

func (m *YtDlpURLs) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	limit, capped := m.effectiveLimit(t.MaxItems)
	args := append(m.baseArgs(t, limit),
		"--flat-playlist",
		"--print", "%(url)s\t%(title)s\t%(upload_date)s",
		t.AccountURL,
	)

	out, kind := runTool(ctx, m.cfg.Logger, m.cfg.Binary, args...)
	if kind != KindNone {
		return nil, kind
	}

	entries := parseYtDlpColumns(out)
	if len(entries) == 0 {
		return nil, KindEmptyResult
	}
	return &RawResult{Entries: entries, Truncated: capped && len(entries) >= limit}, KindNone
}

// parseYtDlpColumns decodes url<TAB>title<TAB>date lines. yt-dlp prints the
// literal string "NA" for fields it cannot fill.
func parseYtDlpColumns(out []byte) []RawEntry {
	var entries []RawEntry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		url := strings.TrimSpace(parts[0])
		if url == "" || url == "NA" {
			continue
		}
		e := RawEntry{URL: url}
		if len(parts) > 1 && parts[1] != "NA" {
			e.Title = parts[1]
		}
		if len(parts) > 2 && parts[2] != "NA" {
			e.Date = parts[2]
		}
		entries = append(entries, e)
	}
	return entries
}

// ytdlpEntry is the subset of yt-dlp's JSON we rely on. Flat-playlist
// entries carry "url"; resolved entries carry "webpage_url".
type ytdlpEntry struct {
	URL        string `json:"url"`
	WebpageURL string `json:"webpage_url"`
	Title      string `json:"title"`
	UploadDate string `json:"upload_date"`
}

func (e ytdlpEntry) link() string {
	if e.WebpageURL != "" {
		return e.WebpageURL
	}
	return e.URL
}
