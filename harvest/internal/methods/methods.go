// Package methods contains the extraction method implementations.
//
// Every method wraps one external technique (yt-dlp in several
// configurations, gallery-dl, RSS/Atom feeds, plain HTTP scraping, browser
// automation) behind the same contract. A method never lets a raw error
// escape to the orchestrator: every failure mode is classified into an
// ErrorKind at the adapter boundary so the run loop can record it and
// advance to the next method.
package methods

import (
	"context"
	"strings"
)

// Platform identifies a content service with its own extraction quirks.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
)

// Platforms lists all supported platforms in a fixed order.
func Platforms() []Platform {
	return []Platform{
		PlatformYouTube,
		PlatformTikTok,
		PlatformInstagram,
		PlatformFacebook,
		PlatformTwitter,
	}
}

// ParsePlatform maps a string key to a known Platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Platforms() {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// ErrorKind classifies a method failure at the adapter boundary.
type ErrorKind string

const (
	// KindNone means the method produced a usable raw result.
	KindNone ErrorKind = ""
	// KindNotInstalled: the external tool or library is missing.
	KindNotInstalled ErrorKind = "not_installed"
	// KindTimeout: the method exceeded its time budget.
	KindTimeout ErrorKind = "timeout"
	// KindBlocked: the platform signalled access denial (auth wall,
	// rate limit, captcha).
	KindBlocked ErrorKind = "blocked"
	// KindEmptyResult: the method completed but yielded zero usable entries.
	KindEmptyResult ErrorKind = "empty_result"
	// KindMalformedOutput: the method's raw output could not be parsed.
	KindMalformedOutput ErrorKind = "malformed_output"
	// KindNotApplicable: the method structurally cannot run for this
	// platform. Defensive only — the selector filters these out.
	KindNotApplicable ErrorKind = "not_applicable"
	// KindCancelled: the run was aborted externally. Does not move
	// success/failure counters.
	KindCancelled ErrorKind = "cancelled"
)

// Target describes one extraction attempt against an account.
type Target struct {
	Platform   Platform
	AccountURL string
	// CookieFile is an optional Netscape-format cookie file.
	// Empty means an anonymous/public attempt — methods must accept that.
	CookieFile string
	// MaxItems caps the number of entries requested from the method.
	MaxItems int
}

// RawEntry is one discovered link as produced by a method, before
// normalization.
type RawEntry struct {
	URL   string
	Title string
	// Date is whatever the underlying tool reported; the normalizer
	// coerces it to a sortable form.
	Date string
}

// RawResult is a method's successful output.
type RawResult struct {
	Entries []RawEntry
	// Truncated is set when the method's own item cap was lower than the
	// caller's MaxItems, so the caller knows the listing is incomplete.
	Truncated bool
}

// Method is the uniform extraction contract. Implementations must not block
// past ctx's deadline and must not panic: all failures collapse to an
// ErrorKind.
type Method interface {
	// Name is the stable identifier used as the learning-cache key.
	// Immutable across runs so historical stats stay comparable.
	Name() string
	// Ordinal is the static priority used as the final ranking tie-break.
	Ordinal() int
	// Supports reports whether the method is structurally applicable to
	// the platform.
	Supports(p Platform) bool
	// Run performs one extraction attempt. ok results return KindNone;
	// everything else returns a nil result and a classified kind.
	Run(ctx context.Context, t Target) (*RawResult, ErrorKind)
}

// classifyCtx maps a context error to the timeout/cancelled kinds.
// Returns KindNone when ctx is still live.
func classifyCtx(ctx context.Context) ErrorKind {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return KindTimeout
	case context.Canceled:
		return KindCancelled
	}
	return KindNone
}

// blockMarkers are substrings in tool output that indicate the platform
// refused access rather than the tool malfunctioning.
var blockMarkers = []string{
	"http error 403",
	"http error 429",
	"429 too many requests",
	"rate limit",
	"rate-limit",
	"captcha",
	"login required",
	"log in or sign up",
	"sign in to confirm",
	"this account is private",
	"authentication required",
	"unable to download webpage: http error 4",
}

// looksBlocked reports whether tool output carries an access-denial signal.
func looksBlocked(output string) bool {
	lower := strings.ToLower(output)
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
