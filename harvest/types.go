// Package harvest discovers content URLs published by a creator account on
// a social platform.
//
// It owns an ordered set of independent extraction methods per platform,
// tracks their historical performance per (platform, account) pair in a
// persistent learning cache, decides which method to try next, executes it
// under a wall-clock budget, normalizes the heterogeneous results, and
// records what it learned for future runs.
package harvest

import (
	"time"

	"github.com/toseeq44/automation-fb-sub002/harvest/internal/memory"
	"github.com/toseeq44/automation-fb-sub002/harvest/internal/methods"
)

// Re-export method-layer types as the public API.
type (
	Platform   = methods.Platform
	ErrorKind  = methods.ErrorKind
	Method     = methods.Method
	MethodStat = memory.Stat
)

// Platform keys.
const (
	PlatformYouTube   = methods.PlatformYouTube
	PlatformTikTok    = methods.PlatformTikTok
	PlatformInstagram = methods.PlatformInstagram
	PlatformFacebook  = methods.PlatformFacebook
	PlatformTwitter   = methods.PlatformTwitter
)

// Error kinds recorded in the attempt trail.
const (
	KindNone            = methods.KindNone
	KindNotInstalled    = methods.KindNotInstalled
	KindTimeout         = methods.KindTimeout
	KindBlocked         = methods.KindBlocked
	KindEmptyResult     = methods.KindEmptyResult
	KindMalformedOutput = methods.KindMalformedOutput
	KindNotApplicable   = methods.KindNotApplicable
	KindCancelled       = methods.KindCancelled
)

// ParsePlatform maps a string key to a known Platform.
func ParsePlatform(s string) (Platform, bool) { return methods.ParsePlatform(s) }

// Platforms lists every known platform in stable order.
func Platforms() []Platform { return methods.Platforms() }

// Request is one extraction job for a (platform, account) pair.
type Request struct {
	Platform   Platform `json:"platform"`
	AccountURL string   `json:"account_url"`
	// CookieFile overrides the resolver's choice when set.
	CookieFile string `json:"cookie_file,omitempty"`
	// MaxItems caps the returned links. 0 = service default.
	MaxItems int `json:"max_items,omitempty"`
	// MethodTimeout overrides the per-method wall-clock budget.
	MethodTimeout time.Duration `json:"-"`
}

// LinkEntry is one normalized discovered content URL.
type LinkEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	// Date is a sortable YYYYMMDD string, or "unknown".
	Date string `json:"date"`
}

// Attempt records one method's outcome inside a run, in trial order.
type Attempt struct {
	Method  string        `json:"method"`
	Kind    ErrorKind     `json:"error_kind,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Result is the outcome of one extraction run. On success Links is
// non-empty and Method names the winning method; on exhaustion Exhausted is
// set and Attempts carries the full trail for diagnostics.
type Result struct {
	RunID      string        `json:"run_id"`
	Platform   Platform      `json:"platform"`
	AccountURL string        `json:"account_url"`
	Links      []LinkEntry   `json:"links,omitempty"`
	Method     string        `json:"method,omitempty"`
	// Truncated is set when the winning method's own cap returned fewer
	// items than requested.
	Truncated bool          `json:"truncated,omitempty"`
	Attempts  []Attempt     `json:"attempts"`
	Elapsed   time.Duration `json:"elapsed"`
	Exhausted bool          `json:"exhausted,omitempty"`
}
