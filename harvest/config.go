package harvest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/toseeq44/automation-fb-sub002/harvest/internal/memory"
	"github.com/toseeq44/automation-fb-sub002/harvest/internal/methods"
)

// Config controls the extraction service. The zero value works: defaults()
// fills in everything.
type Config struct {
	// CookieDir is scanned for Netscape cookie files. Default: "cookies".
	CookieDir string `yaml:"cookie_dir"`
	// CachePath is the learning-cache SQLite file. Default: "harvest.db".
	CachePath string `yaml:"cache_path"`

	// MaxItems is the default per-run link cap when the request leaves it
	// unset. Default: 200.
	MaxItems int `yaml:"max_items"`
	// MethodTimeout is the wall-clock budget for one method attempt.
	// Default: 120s.
	MethodTimeout time.Duration `yaml:"method_timeout"`
	// Workers bounds concurrent accounts in batch runs. Default: 4.
	Workers int `yaml:"workers"`

	// ProbeAfter and CooldownFor tune the ranking recency adjustments.
	ProbeAfter  time.Duration `yaml:"probe_after"`
	CooldownFor time.Duration `yaml:"cooldown_for"`

	// Tool binaries. Defaults: "yt-dlp" and "gallery-dl" on PATH.
	YtDlpPath     string `yaml:"ytdlp_path"`
	GalleryDlPath string `yaml:"gallerydl_path"`

	// Browser configures the browser-automation methods.
	Browser BrowserSettings `yaml:"browser"`

	// Platforms holds per-platform overrides keyed by platform name.
	// Unlisted platforms run with built-in defaults.
	Platforms map[string]PlatformSettings `yaml:"platforms"`
}

// BrowserSettings is the yaml-facing subset of the browser rig options.
type BrowserSettings struct {
	// RemoteURL points at an external Chrome DevTools endpoint. Empty =
	// launch a local Chrome.
	RemoteURL    string        `yaml:"remote_url"`
	ScrollPasses int           `yaml:"scroll_passes"`
	ScrollDelay  time.Duration `yaml:"scroll_delay"`
	Cap          int           `yaml:"cap"`
}

// PlatformSettings carries per-platform tuning.
type PlatformSettings struct {
	// Enabled gates the platform; nil means enabled.
	Enabled *bool `yaml:"enabled"`
	// FeedTemplate is a feed URL template with one %s verb for the account
	// handle (e.g. a nitter instance for twitter).
	FeedTemplate string `yaml:"feed_template"`
	// LinkPatterns overrides the path substrings that identify content
	// links in profile markup.
	LinkPatterns []string `yaml:"link_patterns"`
}

func (c *Config) defaults() {
	if c.CookieDir == "" {
		c.CookieDir = "cookies"
	}
	if c.CachePath == "" {
		c.CachePath = "harvest.db"
	}
	if c.MaxItems <= 0 {
		c.MaxItems = 200
	}
	if c.MethodTimeout <= 0 {
		c.MethodTimeout = 120 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
}

// LoadConfig reads a yaml config file. A missing path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("harvest: read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("harvest: parse config: %w", err)
		}
	}
	cfg.defaults()
	return cfg, nil
}

// enabled reports whether a platform is switched on.
func (c *Config) enabled(p Platform) bool {
	ps, ok := c.Platforms[string(p)]
	if !ok || ps.Enabled == nil {
		return true
	}
	return *ps.Enabled
}

// policy builds the scoring policy from the config knobs.
func (c *Config) policy() memory.Policy {
	pol := memory.DefaultPolicy()
	if c.ProbeAfter > 0 {
		pol.ProbeAfter = c.ProbeAfter
	}
	if c.CooldownFor > 0 {
		pol.CooldownFor = c.CooldownFor
	}
	return pol
}

// feedTemplates merges per-platform overrides over the built-ins.
func (c *Config) feedTemplates() map[methods.Platform]string {
	out := methods.DefaultFeedTemplates()
	for name, ps := range c.Platforms {
		p, ok := methods.ParsePlatform(name)
		if !ok || ps.FeedTemplate == "" {
			continue
		}
		out[p] = ps.FeedTemplate
	}
	return out
}

// linkPatterns merges per-platform overrides over the built-ins.
func (c *Config) linkPatterns() map[methods.Platform][]string {
	out := methods.DefaultLinkPatterns()
	for name, ps := range c.Platforms {
		p, ok := methods.ParsePlatform(name)
		if !ok || len(ps.LinkPatterns) == 0 {
			continue
		}
		out[p] = ps.LinkPatterns
	}
	return out
}
