package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ibeckermayer/fbsweep/internal/view"
)

// LoopOptions controls the scroll loop.
type LoopOptions struct {
	ScrollBudget int
	Stabilize    bool
	ScrollStep   int
	ScrollDelay  time.Duration
}

// Stats summarises one collection pass.
type Stats struct {
	Iterations int  `json:"iterations"`
	Captures   int  `json:"captures"`
	Regions    int  `json:"regions"`
	Extracted  int  `json:"extracted"`
	Discarded  int  `json:"discarded"`
	Duplicates int  `json:"duplicates"`
	Stabilized bool `json:"stabilized"`
}

// CaptureSink receives raw captures for debugging.
type CaptureSink interface {
	SaveCapture(kind string, index int, data []byte) error
}

// Collector drives scroll, capture, locate, extract and dedup on one page.
// It is single-threaded; the ResultSet is only touched by the loop.
type Collector struct {
	page      Page
	locator   Locator
	extractor *Extractor
	opts      LoopOptions
	log       *slog.Logger
	sink      CaptureSink
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a collector over page.
func NewCollector(page Page, locator Locator, extractor *Extractor, opts LoopOptions, log *slog.Logger) *Collector {
	return &Collector{
		page:      page,
		locator:   locator,
		extractor: extractor,
		opts:      opts,
		log:       log,
		sleep:     sleepCtx,
	}
}

// WithSink saves every capture to sink.
func (c *Collector) WithSink(sink CaptureSink) *Collector {
	c.sink = sink
	return c
}

// Collect runs the scroll loop and returns every unique record found. On
// cancellation the records gathered so far are returned with the error.
func (c *Collector) Collect(ctx context.Context) (*ResultSet, Stats, error) {
	results := NewResultSet()
	var stats Stats

	harvest := func(ctx context.Context, i int) {
		snap, err := c.page.Capture(ctx, c.locator.Stamps())
		if err != nil {
			c.log.Warn("capture failed", "iteration", i, "strategy", c.locator.Name(), "error", err)
			return
		}
		stats.Captures++
		c.saveSnapshot(i, snap)
		c.harvest(ctx, snap, results, &stats)
	}

	err := c.loop(ctx, &stats, harvest)
	return results, stats, err
}

// Screenshots runs the same scroll loop capturing the viewport instead of the DOM.
func (c *Collector) Screenshots(ctx context.Context, shooter Screenshotter) ([][]byte, Stats, error) {
	var shots [][]byte
	var stats Stats

	harvest := func(ctx context.Context, i int) {
		png, err := shooter.Screenshot(ctx)
		if err != nil {
			c.log.Warn("screenshot failed", "iteration", i, "error", err)
			return
		}
		stats.Captures++
		shots = append(shots, png)
		if c.sink != nil {
			if err := c.sink.SaveCapture("screenshot", i, png); err != nil {
				c.log.Warn("failed to save screenshot", "iteration", i, "error", err)
			}
		}
	}

	err := c.loop(ctx, &stats, harvest)
	return shots, stats, err
}

// loop harvests, scrolls and waits up to ScrollBudget times, then harvests
// once more. With Stabilize set it stops early when the content height is
// the same after two consecutive scrolls.
func (c *Collector) loop(ctx context.Context, stats *Stats, harvest func(context.Context, int)) error {
	lastHeight := int64(-1)

	for i := 0; i < c.opts.ScrollBudget; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		harvest(ctx, i)
		stats.Iterations++

		if err := c.page.ScrollBy(ctx, c.opts.ScrollStep); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			c.log.Warn("scroll failed", "iteration", i, "error", err)
		}
		if err := c.sleep(ctx, c.opts.ScrollDelay); err != nil {
			return err
		}

		h, err := c.page.ContentHeight(ctx)
		if err != nil {
			c.log.Warn("content height unavailable", "iteration", i, "error", err)
			lastHeight = -1
			continue
		}
		c.log.Debug("scrolled", "iteration", i+1, "budget", c.opts.ScrollBudget, "height", h)
		if c.opts.Stabilize && h == lastHeight {
			stats.Stabilized = true
			c.log.Info("content height stable, stopping early", "iteration", i+1, "height", h)
			break
		}
		lastHeight = h
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	harvest(ctx, stats.Iterations)
	return nil
}

// harvest locates and extracts every region in one capture. A failing
// region is logged and skipped.
func (c *Collector) harvest(ctx context.Context, snap *view.Snapshot, results *ResultSet, stats *Stats) {
	regions := c.locator.Locate(snap)
	stats.Regions += len(regions)
	c.log.Debug("located regions", "strategy", c.locator.Name(), "count", len(regions))

	for _, r := range regions {
		rec, err := c.extractor.Extract(ctx, r).Unwrap()
		if err != nil {
			stats.Discarded++
			c.log.Debug("region skipped", "strategy", r.Strategy, "region", r.Key, "error", err)
			continue
		}
		stats.Extracted++
		if !results.TryInsert(rec) {
			stats.Duplicates++
		}
	}
}

func (c *Collector) saveSnapshot(i int, snap *view.Snapshot) {
	if c.sink == nil {
		return
	}
	html, err := snap.HTML()
	if err == nil {
		err = c.sink.SaveCapture("snapshot", i, []byte(html))
	}
	if err != nil {
		c.log.Warn("failed to save snapshot", "iteration", i, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
