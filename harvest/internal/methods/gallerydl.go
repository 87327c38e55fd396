package methods

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// GalleryDlConfig configures the gallery-dl method.
type GalleryDlConfig struct {
	// Binary is the gallery-dl executable. Default: "gallery-dl".
	Binary string
	// Cap is the method-level hard item cap. Default: 500 — gallery-dl
	// walks entire accounts otherwise, which can take hours.
	Cap    int
	Logger *slog.Logger
}

func (c *GalleryDlConfig) defaults() {
	if c.Binary == "" {
		c.Binary = "gallery-dl"
	}
	if c.Cap <= 0 {
		c.Cap = 500
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// GalleryDl wraps gallery-dl --get-urls for image-centric platforms.
// gallery-dl's specialist extractors often survive markup changes that
// break scraping, and it reads the same Netscape cookie files.
type GalleryDl struct {
	cfg GalleryDlConfig
}

// NewGalleryDl creates the gallery-dl method.
func NewGalleryDl(cfg GalleryDlConfig) *GalleryDl {
	cfg.defaults()
	return &GalleryDl{cfg: cfg}
}

func (m *GalleryDl) Name() string { return "gallery-dl" }
func (m *GalleryDl) Ordinal() int { return 3 }

func (m *GalleryDl) Supports(p Platform) bool {
	switch p {
	case PlatformInstagram, PlatformTwitter, PlatformFacebook:
		return true
	}
	return false
}

func (m *GalleryDl) Run(ctx context.Context, t Target) (*RawResult, ErrorKind) {
	if !m.Supports(t.Platform) {
		return nil, KindNotApplicable
	}

	limit := t.MaxItems
	capped := false
	if limit <= 0 || m.cfg.Cap < limit {
		capped = limit > 0
		limit = m.cfg.Cap
	}

	args := []string{
		"--get-urls",
		"--range", fmt.Sprintf("1-%d", limit),
	}
	if t.CookieFile != "" {
		args = append(args, "--cookies", t.CookieFile)
	}
	args = append(args, t.AccountURL)

	out, kind := runTool(ctx, m.cfg.Logger, m.cfg.Binary, args...)
	if kind != KindNone {
		return nil, kind
	}

	var entries []RawEntry
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "http") {
			continue
		}
		entries = append(entries, RawEntry{URL: line})
	}
	if len(entries) == 0 {
		return nil, KindEmptyResult
	}
	// The listing is only incomplete when the cap was actually reached.
	return &RawResult{Entries: entries, Truncated: capped && len(entries) >= limit}, KindNone
}
