package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ibeckermayer/fbsweep/internal/browser"
	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/types"
	"github.com/ibeckermayer/fbsweep/internal/view"
)

const searchURL = "https://www.facebook.com/search/posts/?q="

// ErrLoggedOut is returned when facebook redirects the search to its login page.
var ErrLoggedOut = errors.New("session cookies were rejected")

// Options is the configuration value a search session is built from.
type Options struct {
	Query          string
	ScrollBudget   int
	Stabilize      bool
	CredentialPath string

	Strategy       string
	ScrollStep     int
	ScrollDelay    time.Duration
	SettleDelay    time.Duration
	HoverTimeout   time.Duration
	RequireAuthor  bool
	SwitchToAllTab bool
	Headless       bool
	Timeout        time.Duration
	ExtractTimeout time.Duration
}

// OptionsFrom maps loaded configuration onto session options.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		Query:          cfg.Search.Query,
		ScrollBudget:   cfg.Search.ScrollBudget,
		Stabilize:      cfg.Search.Stabilize,
		CredentialPath: cfg.Auth.CredentialPath,
		Strategy:       cfg.Search.Strategy,
		ScrollStep:     cfg.Search.ScrollStep,
		ScrollDelay:    cfg.Search.ScrollDelay(),
		SettleDelay:    cfg.Search.SettleDelay(),
		HoverTimeout:   cfg.Search.HoverTimeout(),
		RequireAuthor:  cfg.Search.RequireAuthor,
		SwitchToAllTab: cfg.Search.SwitchToAllTab,
		Headless:       cfg.Browser.Headless,
	}
}

func (o Options) loop() LoopOptions {
	return LoopOptions{
		ScrollBudget: o.ScrollBudget,
		Stabilize:    o.Stabilize,
		ScrollStep:   o.ScrollStep,
		ScrollDelay:  o.ScrollDelay,
	}
}

// BatchExtractor sends captured screenshots to an external extraction service.
// Failed batches contribute no posts.
type BatchExtractor interface {
	ExtractBatches(ctx context.Context, shots [][]byte) []types.VisionPost
}

// Result is the outcome of one session.
type Result struct {
	Posts []types.PostRecord
	Stats Stats
}

// Scraper runs facebook post searches
type Scraper struct {
	opts   Options
	sel    Selectors
	log    *slog.Logger
	vision BatchExtractor
	sink   CaptureSink
}

// New creates a new scraper
func New(opts Options, log *slog.Logger) *Scraper {
	return &Scraper{opts: opts, sel: DefaultSelectors(), log: log}
}

// WithVision sets the extractor used by the vision strategy.
func (s *Scraper) WithVision(v BatchExtractor) *Scraper {
	s.vision = v
	return s
}

// WithSink saves captures for debugging.
func (s *Scraper) WithSink(sink CaptureSink) *Scraper {
	s.sink = sink
	return s
}

// Search opens a browser with cookies, runs the query and collects posts.
func (s *Scraper) Search(ctx context.Context, cookies []*network.Cookie) (*Result, error) {
	if s.opts.Strategy == config.StrategyVision && s.vision == nil {
		return nil, errors.New("vision strategy needs an extraction service")
	}

	browserCtx, cancel := browser.NewContext(ctx, s.opts.Headless)
	defer cancel()

	timeout := s.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, timeout)
	defer timeoutCancel()

	// Inject cookies before navigation
	if err := injectCookies(browserCtx, cookies); err != nil {
		return nil, fmt.Errorf("failed to inject cookies: %w", err)
	}

	if err := s.openSearch(browserCtx); err != nil {
		return nil, err
	}

	return s.Run(browserCtx, NewLivePage(browserCtx))
}

// Run collects from an already opened results page.
func (s *Scraper) Run(ctx context.Context, page Page) (*Result, error) {
	if s.opts.Strategy == config.StrategyVision {
		return s.runVision(ctx, page)
	}

	locator, err := NewLocator(s.opts.Strategy, s.sel, s.log)
	if err != nil {
		return nil, err
	}

	var hover Hoverer
	if h, ok := page.(Hoverer); ok && s.opts.Strategy == config.StrategyStructural {
		hover = h
	}
	extractor := NewExtractor(s.sel, s.opts.RequireAuthor, hover, s.opts.HoverTimeout, s.log)

	collector := NewCollector(page, locator, extractor, s.opts.loop(), s.log)
	if s.sink != nil {
		collector.WithSink(s.sink)
	}

	results, stats, err := collector.Collect(ctx)
	s.log.Info("collection finished",
		"strategy", locator.Name(),
		"posts", results.Len(),
		"iterations", stats.Iterations,
		"regions", stats.Regions,
		"discarded", stats.Discarded,
		"duplicates", stats.Duplicates,
		"stabilized", stats.Stabilized,
	)
	return &Result{Posts: results.Records(), Stats: stats}, err
}

// Replay runs locate, extract and dedup over saved snapshots in order,
// without a browser. Timestamps are never resolved since nothing can be
// hovered.
func (s *Scraper) Replay(ctx context.Context, snaps []*view.Snapshot) (*Result, error) {
	if s.opts.Strategy == config.StrategyVision {
		return nil, errors.New("saved snapshots cannot be replayed with the vision strategy")
	}
	locator, err := NewLocator(s.opts.Strategy, s.sel, s.log)
	if err != nil {
		return nil, err
	}
	extractor := NewExtractor(s.sel, s.opts.RequireAuthor, nil, 0, s.log)
	collector := NewCollector(nil, locator, extractor, s.opts.loop(), s.log)

	results := NewResultSet()
	var stats Stats
	for _, snap := range snaps {
		if err := ctx.Err(); err != nil {
			return &Result{Posts: results.Records(), Stats: stats}, err
		}
		stats.Captures++
		collector.harvest(ctx, snap, results, &stats)
	}

	s.log.Info("replay finished",
		"strategy", locator.Name(),
		"snapshots", len(snaps),
		"posts", results.Len(),
		"discarded", stats.Discarded,
		"duplicates", stats.Duplicates,
	)
	return &Result{Posts: results.Records(), Stats: stats}, nil
}

// runVision captures screenshots for the whole scroll session first, then
// hands them to the extraction service and dedups whatever comes back.
func (s *Scraper) runVision(ctx context.Context, page Page) (*Result, error) {
	shooter, ok := page.(Screenshotter)
	if !ok {
		return nil, errors.New("page cannot take screenshots")
	}
	if s.vision == nil {
		return nil, errors.New("vision strategy needs an extraction service")
	}

	collector := NewCollector(page, nil, nil, s.opts.loop(), s.log)
	if s.sink != nil {
		collector.WithSink(s.sink)
	}

	shots, stats, err := collector.Screenshots(ctx, shooter)
	if err != nil && len(shots) == 0 {
		return &Result{Posts: []types.PostRecord{}, Stats: stats}, err
	}

	// Screenshots already taken are still extracted when the browser
	// session hit its deadline or was cancelled.
	timeout := s.opts.ExtractTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	extractCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err != nil {
		s.log.Warn("screenshot loop ended early, extracting what was captured", "screenshots", len(shots), "error", err)
	}

	results := NewResultSet()
	for _, vp := range s.vision.ExtractBatches(extractCtx, shots) {
		rec := vp.Record()
		stats.Extracted++
		if rec.Author == "" && s.opts.RequireAuthor {
			stats.Discarded++
			continue
		}
		if !results.TryInsert(rec) {
			if strings.TrimSpace(rec.Text) == "" {
				stats.Discarded++
			} else {
				stats.Duplicates++
			}
		}
	}

	s.log.Info("vision collection finished",
		"screenshots", len(shots),
		"posts", results.Len(),
		"discarded", stats.Discarded,
		"duplicates", stats.Duplicates,
	)
	return &Result{Posts: results.Records(), Stats: stats}, err
}

// openSearch navigates to the query's results and waits for them to render.
func (s *Scraper) openSearch(ctx context.Context) error {
	target := searchURL + url.QueryEscape(s.opts.Query)
	s.log.Info("opening search", "url", target)

	var location string
	err := chromedp.Run(ctx,
		chromedp.Navigate(target),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.Location(&location),
	)
	if err != nil {
		return fmt.Errorf("failed to load search results: %w", err)
	}
	if strings.Contains(location, "/login") || strings.Contains(location, "/checkpoint") {
		return fmt.Errorf("%w: redirected to %s", ErrLoggedOut, location)
	}

	if s.opts.SwitchToAllTab && s.opts.Strategy == config.StrategyStructural {
		s.switchToAllTab(ctx)
	}
	return nil
}

// switchToAllTab clicks the "All" results filter. Failure is only logged.
func (s *Scraper) switchToAllTab(ctx context.Context) {
	tabCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	clickJS := fmt.Sprintf(`(function(label) {
	for (const el of document.querySelectorAll('a, [role="tab"], [role="link"], span')) {
		if ((el.textContent || '').trim() === label) {
			(el.closest('a, [role="tab"], [role="link"]') || el).click();
			return true;
		}
	}
	return false;
})(%q)`, s.sel.AllTabText)

	var clicked bool
	err := chromedp.Run(tabCtx,
		chromedp.WaitVisible(s.sel.Feed, chromedp.ByQuery),
		chromedp.Evaluate(clickJS, &clicked),
	)
	if err != nil || !clicked {
		s.log.Warn("could not switch to All tab", "selector", s.sel.AllTabText, "error", err)
		return
	}
	if err := sleepCtx(ctx, time.Second); err != nil {
		return
	}
	s.log.Info("switched to All tab")
}

// injectCookies sets cookies in the browser context
func injectCookies(ctx context.Context, cookies []*network.Cookie) error {
	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				p := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly)
				if c.SameSite != "" {
					p = p.WithSameSite(c.SameSite)
				}
				if err := p.Do(ctx); err != nil {
					return fmt.Errorf("cookie %s: %w", c.Name, err)
				}
			}
			return nil
		}),
	)
}
