package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/logger"
	"github.com/ibeckermayer/fbsweep/internal/types"
	"github.com/ibeckermayer/fbsweep/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(strategy string, budget int, stabilize bool) Options {
	return Options{
		Query:        "iso web designer",
		ScrollBudget: budget,
		Stabilize:    stabilize,
		Strategy:     strategy,
		ScrollStep:   3000,
		HoverTimeout: time.Second,
	}
}

func newTestCollector(page Page, strategy string, opts LoopOptions) *Collector {
	log := logger.Discard()
	locator, _ := NewLocator(strategy, DefaultSelectors(), log)
	x := NewExtractor(DefaultSelectors(), false, nil, time.Second, log)
	c := NewCollector(page, locator, x, opts, log)
	c.sleep = noSleep
	return c
}

type memSink struct {
	kinds []string
}

func (m *memSink) SaveCapture(kind string, _ int, _ []byte) error {
	m.kinds = append(m.kinds, kind)
	return nil
}

func TestCollectThreeRegionsTwoUniqueTexts(t *testing.T) {
	page := &fakePage{
		pages: []string{anchorPage(
			anchorPost{y: 100, author: "Jane", text: "Need a web designer"},
			anchorPost{y: 500, author: "Bo", text: "Need a  web\ndesigner"},
			anchorPost{y: 900, author: "Al", text: "ISO logo designer"},
		)},
		heights: []int64{4000},
	}

	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 1})
	results, stats, err := c.Collect(context.Background())
	require.NoError(t, err)

	recs := results.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "Need a web designer", recs[0].Text)
	assert.Equal(t, "Jane", recs[0].Author)
	assert.Equal(t, "ISO logo designer", recs[1].Text)
	assert.Equal(t, 6, stats.Regions) // two captures of three regions
	assert.Equal(t, 4, stats.Duplicates)
}

func TestCollectDedupsAcrossScrolls(t *testing.T) {
	page := &fakePage{
		pages: []string{
			anchorPage(anchorPost{y: 100, text: "one"}, anchorPost{y: 600, text: "two"}),
			// After scrolling, "two" moved up and "three" appeared.
			anchorPage(anchorPost{y: -400, text: "two"}, anchorPost{y: 200, text: "three"}),
			anchorPage(anchorPost{y: 50, text: "four"}),
		},
		heights: []int64{2000, 3000, 4000},
	}

	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 2})
	results, stats, err := c.Collect(context.Background())
	require.NoError(t, err)

	var texts []string
	for _, r := range results.Records() {
		texts = append(texts, r.Text)
	}
	assert.Equal(t, []string{"one", "two", "three", "four"}, texts)
	assert.Equal(t, 2, stats.Iterations)
	assert.Equal(t, 3, stats.Captures)
	assert.Equal(t, 2, page.scrolls)
}

func TestCollectStopsWhenHeightStable(t *testing.T) {
	page := &fakePage{
		pages:   []string{anchorPage(anchorPost{y: 1, text: "only"})},
		heights: []int64{1000, 2000, 2000, 2000},
	}

	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 10, Stabilize: true})
	_, stats, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.Stabilized)
	assert.Equal(t, 3, stats.Iterations)
	assert.Less(t, stats.Iterations, 10)
}

func TestCollectWithoutStabilizeUsesWholeBudget(t *testing.T) {
	page := &fakePage{
		pages:   []string{anchorPage(anchorPost{y: 1, text: "only"})},
		heights: []int64{1000},
	}

	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 5})
	_, stats, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Stabilized)
	assert.Equal(t, 5, stats.Iterations)
	assert.Equal(t, 5, page.scrolls)
}

func TestCollectHeightErrorsDoNotStabilize(t *testing.T) {
	page := &fakePage{pages: []string{anchorPage(anchorPost{y: 1, text: "only"})}}

	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 3, Stabilize: true})
	_, stats, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Iterations)
}

func TestCollectCaptureFailureIsNotFatal(t *testing.T) {
	page := &fakePage{
		pages:      []string{anchorPage(anchorPost{y: 1, text: "only"})},
		heights:    []int64{1},
		captureErr: errors.New("target closed"),
	}

	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 2})
	results, stats, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, results.Len())
	assert.Equal(t, 0, stats.Captures)
}

func TestCollectCancelled(t *testing.T) {
	page := &fakePage{pages: []string{anchorPage(anchorPost{y: 1, text: "only"})}, heights: []int64{1, 2, 3}}
	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 5})

	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	results, _, err := c.Collect(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, results.Len())
}

func TestCollectSavesSnapshots(t *testing.T) {
	page := &fakePage{pages: []string{anchorPage(anchorPost{y: 1, text: "only"})}, heights: []int64{1}}
	sink := &memSink{}

	c := newTestCollector(page, config.StrategyAnchor, LoopOptions{ScrollBudget: 1}).WithSink(sink)
	_, _, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshot", "snapshot"}, sink.kinds)
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, sleepCtx(ctx, time.Hour))
}

func TestScraperRunStructuralHoversThroughPage(t *testing.T) {
	page := &hoverPage{
		fakePage: &fakePage{
			pages: []string{structuralPage(
				structuralPost{y: 0, author: "Jane", profile: "/jane", text: "Need a web designer", hoverID: "fbs1"},
			)},
			heights: []int64{1},
		},
		tooltips: map[string]string{"fbs1": "Friday, 7 March 2025 at 09:12"},
	}

	s := New(testOptions(config.StrategyStructural, 1, true), logger.Discard())
	res, err := s.Run(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "Friday, 7 March 2025 at 09:12", res.Posts[0].Timestamp)
	assert.Contains(t, page.stamps, DefaultSelectors().HoverTarget)
}

func TestScraperRunVision(t *testing.T) {
	page := &shotPage{fakePage: &fakePage{heights: []int64{100, 100}}}
	vision := &fakeVision{posts: []types.VisionPost{
		{Author: "Jane", Snippet: "Need a web designer", PermalinkHint: "/posts/1"},
		{Author: "Jane", Snippet: "Need a  web designer"},
		{Author: "Bo", Snippet: "   "},
		{Author: "Al", Snippet: "ISO logo designer", Timestamp: "2h"},
	}}

	s := New(testOptions(config.StrategyVision, 4, true), logger.Discard()).WithVision(vision)
	res, err := s.Run(context.Background(), page)
	require.NoError(t, err)

	// Stabilized after two scrolls, plus the final capture.
	assert.Equal(t, 3, vision.got)
	require.Len(t, res.Posts, 2)
	assert.Equal(t, "/posts/1", res.Posts[0].Permalink)
	assert.Equal(t, "2h", res.Posts[1].Timestamp)
	assert.Equal(t, 1, res.Stats.Discarded)
	assert.Equal(t, 1, res.Stats.Duplicates)
}

func TestScraperRunVisionEmptyBatch(t *testing.T) {
	page := &shotPage{fakePage: &fakePage{heights: []int64{100}}}
	s := New(testOptions(config.StrategyVision, 1, false), logger.Discard()).WithVision(&fakeVision{})

	res, err := s.Run(context.Background(), page)
	require.NoError(t, err)
	assert.NotNil(t, res.Posts)
	assert.Empty(t, res.Posts)
}

func TestScraperRunVisionExtractsAfterSessionEnds(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	page := &cutShortPage{
		shotPage: &shotPage{fakePage: &fakePage{heights: []int64{100, 200, 300, 400}}},
		after:    2,
		cancel:   cancel,
	}
	vision := &ctxVision{fakeVision: fakeVision{posts: []types.VisionPost{
		{Author: "Jane", Snippet: "Need a web designer"},
	}}}

	s := New(testOptions(config.StrategyVision, 4, true), logger.Discard()).WithVision(vision)
	res, err := s.Run(ctx, page)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)

	assert.NoError(t, vision.ctxErr)
	assert.True(t, vision.hasDeadline)
	assert.Equal(t, 2, vision.got)
	require.Len(t, res.Posts, 1)
	assert.Equal(t, "Need a web designer", res.Posts[0].Text)
}

func TestScraperRunVisionNeedsScreenshots(t *testing.T) {
	s := New(testOptions(config.StrategyVision, 1, false), logger.Discard()).WithVision(&fakeVision{})
	_, err := s.Run(context.Background(), &fakePage{pages: []string{"<html></html>"}})
	assert.Error(t, err)
}

func TestOptionsFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Query = "logo"
	opts := OptionsFrom(cfg)
	assert.Equal(t, "logo", opts.Query)
	assert.Equal(t, 6, opts.ScrollBudget)
	assert.True(t, opts.Stabilize)
	assert.Equal(t, cfg.Auth.CredentialPath, opts.CredentialPath)
	assert.Equal(t, 1500*time.Millisecond, opts.ScrollDelay)
}

func TestScraperReplaySnapshots(t *testing.T) {
	snaps := []*view.Snapshot{
		mustSnapshot(t, anchorPage(
			anchorPost{y: 100, author: "Jane", text: "Need a web designer"},
			anchorPost{y: 500, text: "ISO logo designer"},
		)),
		mustSnapshot(t, anchorPage(
			anchorPost{y: 100, author: "Jane", text: "Need a web designer"},
			anchorPost{y: 500, author: "Al", text: "Shopify help", permalink: "https://www.facebook.com/groups/1/posts/9"},
		)),
	}

	s := New(testOptions(config.StrategyAnchor, 1, true), logger.Discard())
	res, err := s.Replay(context.Background(), snaps)
	require.NoError(t, err)

	require.Len(t, res.Posts, 3)
	assert.Equal(t, "", res.Posts[1].Author)
	assert.Equal(t, "https://www.facebook.com/groups/1/posts/9", res.Posts[2].Permalink)
	assert.Equal(t, 2, res.Stats.Captures)
	assert.Equal(t, 1, res.Stats.Duplicates)
}

func TestScraperReplayRejectsVision(t *testing.T) {
	s := New(testOptions(config.StrategyVision, 1, true), logger.Discard())
	_, err := s.Replay(context.Background(), nil)
	assert.Error(t, err)
}
