package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/toseeq44/automation-fb-sub002/harvest/internal/cookiejar"
	"github.com/toseeq44/automation-fb-sub002/harvest/internal/memory"
	"github.com/toseeq44/automation-fb-sub002/harvest/internal/methods"
	"github.com/toseeq44/automation-fb-sub002/idgen"
)

// Service runs extractions. One Service is safe for concurrent use; the
// browser rig and the learning cache are shared across runs.
type Service struct {
	cfg     *Config
	log     *slog.Logger
	cache   *memory.Cache
	cookies *cookiejar.Resolver
	methods []Method
	rig     *methods.BrowserRig
	now     func() time.Time
	newID   idgen.Generator
}

// ServiceOption customises Service construction.
type ServiceOption func(*Service)

// WithMethods replaces the built-in method set (tests).
func WithMethods(ms ...Method) ServiceOption {
	return func(s *Service) { s.methods = ms }
}

// WithCache replaces the learning cache (tests).
func WithCache(c *memory.Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithClock replaces the wall clock (tests).
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// New builds a Service from a Config. A nil cfg means all defaults.
func New(cfg *Config, log *slog.Logger, opts ...ServiceOption) *Service {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		cfg:     cfg,
		log:     log,
		cookies: cookiejar.NewResolver(cfg.CookieDir, log),
		now:     time.Now,
		newID:   idgen.UUIDv7(),
	}
	for _, o := range opts {
		o(s)
	}

	if s.cache == nil {
		s.cache = memory.Open(cfg.CachePath, log)
	}
	if s.methods == nil {
		s.methods, s.rig = defaultMethods(cfg, log)
	}
	return s
}

// defaultMethods wires the full built-in method set. The browser rig is
// returned separately so Close can tear down Chrome.
func defaultMethods(cfg *Config, log *slog.Logger) ([]Method, *methods.BrowserRig) {
	ytCfg := methods.YtDlpConfig{Binary: cfg.YtDlpPath, Cap: cfg.MaxItems, Logger: log}
	patterns := cfg.linkPatterns()

	rig := methods.NewBrowserRig(methods.BrowserConfig{
		RemoteURL:    cfg.Browser.RemoteURL,
		ScrollPasses: cfg.Browser.ScrollPasses,
		ScrollDelay:  cfg.Browser.ScrollDelay,
		Cap:          cfg.Browser.Cap,
		Patterns:     patterns,
		Logger:       log,
	})

	ms := []Method{
		methods.NewYtDlpJSON(ytCfg),
		methods.NewYtDlpFlat(ytCfg),
		methods.NewYtDlpURLs(ytCfg),
		methods.NewGalleryDl(methods.GalleryDlConfig{Binary: cfg.GalleryDlPath, Logger: log}),
		methods.NewFeed(methods.FeedConfig{Templates: cfg.feedTemplates(), Logger: log}),
		methods.NewScrape(methods.ScrapeConfig{Patterns: patterns, Logger: log}),
		methods.NewBrowser(rig),
		methods.NewBrowserStealth(rig),
	}
	return ms, rig
}

// Extract runs one job: rank the applicable methods by learned performance
// and try them in order until one yields links or all are exhausted.
//
// The returned Result always carries the full attempt trail. On exhaustion
// the error wraps ErrExhausted and the Result is still returned.
func (s *Service) Extract(ctx context.Context, req Request) (*Result, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	runID := s.newID()
	log := s.log.With("run_id", runID, "platform", req.Platform, "account", req.AccountURL)
	started := s.now()

	res := &Result{
		RunID:      runID,
		Platform:   req.Platform,
		AccountURL: req.AccountURL,
	}

	target := methods.Target{
		Platform:   req.Platform,
		AccountURL: req.AccountURL,
		CookieFile: req.CookieFile,
		MaxItems:   req.MaxItems,
	}
	if target.MaxItems <= 0 {
		target.MaxItems = s.cfg.MaxItems
	}
	if target.CookieFile == "" {
		target.CookieFile = s.cookies.Resolve(string(req.Platform))
	}

	timeout := req.MethodTimeout
	if timeout <= 0 {
		timeout = s.cfg.MethodTimeout
	}

	order := s.plan(ctx, req)
	if len(order) == 0 {
		log.Warn("no applicable methods")
		res.Elapsed = s.now().Sub(started)
		res.Exhausted = true
		return res, fmt.Errorf("%w: no applicable methods for %s", ErrExhausted, req.Platform)
	}

	log.Info("run started", "methods", len(order), "cookie_file", target.CookieFile)

	for _, r := range order {
		m := r.Method
		attemptStart := s.now()

		mctx, cancel := context.WithTimeout(ctx, timeout)
		raw, kind := m.Run(mctx, target)
		cancel()

		latency := s.now().Sub(attemptStart)

		// A method that returned entries but only garbage URLs is an empty
		// result, not a success.
		var links []LinkEntry
		if kind == methods.KindNone {
			links = Normalize(raw.Entries, log)
			if len(links) == 0 {
				kind = methods.KindEmptyResult
			}
		}

		// A dead parent context makes the method context report a deadline
		// or cancel of its own, so the method classifies the abort as its
		// failure. The run was aborted externally: anything short of a
		// completed success is CANCELLED and says nothing about the method.
		if kind != methods.KindNone && ctx.Err() != nil {
			kind = methods.KindCancelled
		}

		res.Attempts = append(res.Attempts, Attempt{Method: m.Name(), Kind: kind, Latency: latency})
		s.record(ctx, req, m.Name(), kind, latency, len(links))

		if kind == methods.KindNone {
			res.Links = links
			res.Method = m.Name()
			res.Truncated = raw.Truncated
			res.Elapsed = s.now().Sub(started)
			log.Info("run succeeded", "method", m.Name(), "links", len(links),
				"attempts", len(res.Attempts), "elapsed", res.Elapsed)
			s.flush(log)
			return res, nil
		}

		log.Warn("method failed", "method", m.Name(), "kind", kind, "latency", latency)

		if kind == methods.KindCancelled && ctx.Err() != nil {
			res.Elapsed = s.now().Sub(started)
			return res, ctx.Err()
		}
	}

	res.Elapsed = s.now().Sub(started)
	res.Exhausted = true
	log.Warn("run exhausted", "attempts", len(res.Attempts), "elapsed", res.Elapsed)
	s.flush(log)
	return res, fmt.Errorf("%w: %d methods tried for %s", ErrExhausted, len(res.Attempts), req.AccountURL)
}

func (s *Service) validate(req Request) error {
	if strings.TrimSpace(req.AccountURL) == "" {
		return fmt.Errorf("%w: empty account URL", ErrInvalidInput)
	}
	if req.MaxItems < 0 {
		return fmt.Errorf("%w: negative max_items", ErrInvalidInput)
	}
	if _, ok := methods.ParsePlatform(string(req.Platform)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlatform, req.Platform)
	}
	if !s.cfg.enabled(req.Platform) {
		return fmt.Errorf("%w: %s", ErrPlatformDisabled, req.Platform)
	}
	return nil
}

// plan filters the method set down to the platform's supporters and ranks
// them by learned performance.
func (s *Service) plan(ctx context.Context, req Request) []ranked {
	var candidates []Method
	for _, m := range s.methods {
		if m.Supports(req.Platform) {
			candidates = append(candidates, m)
		}
	}

	stats := make(map[string]*MethodStat, len(candidates))
	all, err := s.cache.AllStats(ctx, string(req.Platform), req.AccountURL)
	if err != nil {
		s.log.Warn("stats read failed, ranking on static order", "error", err)
	}
	for _, st := range all {
		stats[st.Method] = st
	}

	return Rank(candidates, stats, s.cfg.policy(), s.now())
}

// record persists one attempt outcome. Cancellations and inapplicable
// methods say nothing about the method's health, so they are not recorded.
func (s *Service) record(ctx context.Context, req Request, method string, kind ErrorKind, latency time.Duration, yield int) {
	if kind == methods.KindCancelled || kind == methods.KindNotApplicable {
		return
	}
	// Recording must survive caller cancellation.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	ok := kind == methods.KindNone
	_ = s.cache.RecordOutcome(rctx, string(req.Platform), req.AccountURL, method, ok, latency, yield)
}

func (s *Service) flush(log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cache.Flush(ctx); err != nil {
		log.Warn("cache flush failed", "error", err)
	}
}

// ExtractBatch runs many jobs with at most cfg.Workers in flight. Results
// come back in request order; a failed job carries a Result with the trail
// and a nil Links slice. The first context cancellation aborts the batch.
func (s *Service) ExtractBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Extract(gctx, req)
			if res == nil {
				res = &Result{Platform: req.Platform, AccountURL: req.AccountURL, Exhausted: true}
			}
			results[i] = res
			// Exhaustion of one account must not abort the batch.
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// MethodStats returns the learned statistics for a (platform, account)
// pair, one record per method that has ever been attempted.
func (s *Service) MethodStats(ctx context.Context, platform Platform, account string) ([]*MethodStat, error) {
	return s.cache.AllStats(ctx, string(platform), account)
}

// Methods lists the configured method set in static priority order.
func (s *Service) Methods() []Method {
	out := make([]Method, len(s.methods))
	copy(out, s.methods)
	return out
}

// Degraded reports whether the learning cache lost its backing file.
func (s *Service) Degraded() bool { return s.cache.Degraded() }

// Close tears down the browser rig and the learning cache.
func (s *Service) Close() error {
	var first error
	if s.rig != nil {
		if err := s.rig.Close(); err != nil {
			first = err
		}
	}
	if err := s.cache.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
